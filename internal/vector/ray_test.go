/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"math"
	"testing"
)

func TestRayGroundPlane(t *testing.T) {
	r := Ray{Origin: V(0, 100, 0), Dir: V(1, -1, 0)}
	p, ok := r.IntersectPlane(Ground)
	if !ok || !p.ApproxEqual(V(100, 0, 0), 1e-9) {
		t.Fatalf("unexpected hit %v %+v", ok, p)
	}
	if _, ok := (Ray{Origin: V(0, 100, 0), Dir: V(0, 1, 0)}).IntersectPlane(Ground); ok {
		t.Fatalf("ray pointing up should miss")
	}
	if _, ok := (Ray{Origin: V(0, 100, 0), Dir: V(1, 0, 0)}).IntersectPlane(Ground); ok {
		t.Fatalf("parallel ray should miss")
	}
}

func TestRayBox(t *testing.T) {
	b := BoxAt(Vec3{}, V(2, 2, 2))
	tt, ok := (Ray{Origin: V(-5, 0, 0), Dir: V(1, 0, 0)}).IntersectBox(b)
	if !ok || math.Abs(tt-4) > eps {
		t.Fatalf("expected t=4, got %v %v", tt, ok)
	}
	if _, ok := (Ray{Origin: V(-5, 3, 0), Dir: V(1, 0, 0)}).IntersectBox(b); ok {
		t.Fatalf("offset ray should miss")
	}
	if _, ok := (Ray{Origin: V(5, 0, 0), Dir: V(1, 0, 0)}).IntersectBox(b); ok {
		t.Fatalf("box behind the ray should miss")
	}
	if tt, ok := (Ray{Origin: V(0, 0, 0), Dir: V(0, 0, 1)}).IntersectBox(b); !ok || tt != 0 {
		t.Fatalf("inside origin should hit at 0, got %v %v", tt, ok)
	}
}

func TestRaySphere(t *testing.T) {
	tt, ok := (Ray{Origin: V(0, 0, -10), Dir: V(0, 0, 1)}).IntersectSphere(Vec3{}, 2)
	if !ok || math.Abs(tt-8) > eps {
		t.Fatalf("expected t=8, got %v %v", tt, ok)
	}
	if _, ok := (Ray{Origin: V(3, 0, -10), Dir: V(0, 0, 1)}).IntersectSphere(Vec3{}, 2); ok {
		t.Fatalf("expected miss")
	}
}

func TestPickScaledEllipsoidKeepsWorldDistance(t *testing.T) {
	s := EllipsoidShape{Box: BoxAt(Vec3{}, V(100, 100, 100))}
	xf := Transform{Position: V(0, 50, 0), Scale: V(3, 1, 1)}
	r := Ray{Origin: V(-1000, 50, 0), Dir: V(1, 0, 0)}
	tt, ok := Pick(s, xf, r)
	if !ok || math.Abs(tt-850) > 1e-6 {
		t.Fatalf("expected world distance 850, got %v %v", tt, ok)
	}
	// corner of the bounding box is outside the ellipsoid
	if _, ok := Pick(s, xf, Ray{Origin: V(-1000, 99, 49), Dir: V(1, 0, 0)}); ok {
		t.Fatalf("corner ray should miss the ellipsoid")
	}
}

func TestPickCompositeNearestPart(t *testing.T) {
	s := CompositeShape{Parts: []Box3{BoxAt(V(0, 0, 10), V(2, 2, 2)), BoxAt(V(0, 0, 3), V(2, 2, 2))}}
	tt, ok := Pick(s, IdentityTransform, Ray{Origin: V(0, 0, -10), Dir: V(0, 0, 1)})
	if !ok || math.Abs(tt-12) > eps {
		t.Fatalf("expected nearest part at t=12, got %v %v", tt, ok)
	}
	if _, ok := Pick(s, IdentityTransform, Ray{Origin: V(0, 0, 6), Dir: V(1, 0, 0)}); ok {
		t.Fatalf("gap between parts should miss")
	}
	b := s.Bounds()
	if !b.Min.ApproxEqual(V(-1, -1, 2), eps) || !b.Max.ApproxEqual(V(1, 1, 11), eps) {
		t.Fatalf("unexpected composite bounds %+v", b)
	}
}

func TestPickDegenerateScaleMisses(t *testing.T) {
	xf := Transform{Scale: V(1, 0, 1)}
	if _, ok := Pick(BoxShape{Box: BoxAt(Vec3{}, V(1, 1, 1))}, xf, Ray{Origin: V(-5, 0, 0), Dir: V(1, 0, 0)}); ok {
		t.Fatalf("zero scale should never be pickable")
	}
}
