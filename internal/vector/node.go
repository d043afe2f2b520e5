/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Shape is local-space geometry that can report its bounds and be hit by a ray.
// Placement lives in a Transform; Pick and WorldBounds combine the two.
type Shape interface {
	Bounds() Box3
	IntersectLocal(r Ray) (float64, bool)
}

// BoxShape is a solid axis-aligned box.
type BoxShape struct{ Box Box3 }

func (s BoxShape) Bounds() Box3                         { return s.Box }
func (s BoxShape) IntersectLocal(r Ray) (float64, bool) { return r.IntersectBox(s.Box) }

// EllipsoidShape is the ellipsoid inscribed in Box. Spheres under non-uniform
// scale end up here.
type EllipsoidShape struct{ Box Box3 }

func (s EllipsoidShape) Bounds() Box3 { return s.Box }

func (s EllipsoidShape) IntersectLocal(r Ray) (float64, bool) {
	h := s.Box.HalfExtents()
	if h.HasZero() {
		return 0, false
	}
	c := s.Box.Center()
	unit := Ray{Origin: r.Origin.Sub(c).Div(h), Dir: r.Dir.Div(h)}
	return unit.IntersectSphere(Vec3{}, 1)
}

// CompositeShape is a set of part boxes, e.g. the meshes of a loaded model.
// A hit on any part counts as a hit on the whole.
type CompositeShape struct{ Parts []Box3 }

func (s CompositeShape) Bounds() Box3 {
	b := EmptyBox()
	for _, p := range s.Parts {
		b = b.Union(p)
	}
	return b
}

func (s CompositeShape) IntersectLocal(r Ray) (float64, bool) {
	best, hit := 0.0, false
	for _, p := range s.Parts {
		if t, ok := r.IntersectBox(p); ok && (!hit || t < best) {
			best, hit = t, true
		}
	}
	return best, hit
}

// WorldBounds returns the world-space axis-aligned box of s placed by xf.
func WorldBounds(s Shape, xf Transform) Box3 { return xf.Bounds(s.Bounds()) }

// Pick intersects a world ray with s placed by xf and returns the world hit distance.
func Pick(s Shape, xf Transform, r Ray) (float64, bool) {
	lr, ok := xf.LocalRay(r)
	if !ok {
		return 0, false
	}
	return s.IntersectLocal(lr)
}
