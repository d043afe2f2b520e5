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

const eps = 1e-9

func TestBoxAtAndExtents(t *testing.T) {
	b := BoxAt(V(0, 50, 0), V(100, 100, 40))
	if !b.Min.ApproxEqual(V(-50, 0, -20), eps) || !b.Max.ApproxEqual(V(50, 100, 20), eps) {
		t.Fatalf("unexpected box: %+v", b)
	}
	if h := b.HalfExtents(); !h.ApproxEqual(V(50, 50, 20), eps) {
		t.Fatalf("unexpected half extents: %+v", h)
	}
	if !b.Contains(V(0, 0, 0)) || b.Contains(V(0, -1, 0)) {
		t.Fatalf("contains mismatch")
	}
}

func TestEmptyBoxUnion(t *testing.T) {
	e := EmptyBox()
	if !e.IsEmpty() {
		t.Fatalf("expected empty")
	}
	if s := e.Size(); s != (Vec3{}) {
		t.Fatalf("empty box size should be zero, got %+v", s)
	}
	b := e.Union(BoxAt(V(1, 1, 1), V(2, 2, 2)))
	if !b.Min.ApproxEqual(V(0, 0, 0), eps) || !b.Max.ApproxEqual(V(2, 2, 2), eps) {
		t.Fatalf("unexpected union: %+v", b)
	}
}

func TestEulerYawRotatesXTowardMinusZ(t *testing.T) {
	m := Euler{Y: math.Pi / 2}.Matrix()
	got := m.Apply(V(1, 0, 0))
	if !got.ApproxEqual(V(0, 0, -1), 1e-12) {
		t.Fatalf("yaw 90deg: got %+v", got)
	}
	// rotation matrices are orthonormal
	id := m.Mul(m.Transpose())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(id[i][j]-Ident3[i][j]) > 1e-12 {
				t.Fatalf("not orthonormal: %+v", id)
			}
		}
	}
}

func TestEulerOrderXYZ(t *testing.T) {
	e := Euler{X: 0.3, Y: -0.7, Z: 1.1}
	rx := Euler{X: e.X}.Matrix()
	ry := Euler{Y: e.Y}.Matrix()
	rz := Euler{Z: e.Z}.Matrix()
	want := rx.Mul(ry).Mul(rz)
	got := e.Matrix()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(got[i][j]-want[i][j]) > 1e-12 {
				t.Fatalf("order mismatch at %d,%d: %v vs %v", i, j, got[i][j], want[i][j])
			}
		}
	}
}

func TestTransformBoundsRotated(t *testing.T) {
	xf := Transform{Position: V(10, 0, 0), Rotation: Euler{Y: math.Pi / 2}, Scale: V(2, 1, 1)}
	b := xf.Bounds(BoxAt(Vec3{}, V(100, 10, 20)))
	// scaled width 200 ends up along Z after the yaw
	if s := b.Size(); !s.ApproxEqual(V(20, 10, 200), 1e-9) {
		t.Fatalf("unexpected size: %+v", s)
	}
	if c := b.Center(); !c.ApproxEqual(V(10, 0, 0), 1e-9) {
		t.Fatalf("unexpected center: %+v", c)
	}
}

func TestParseAxis(t *testing.T) {
	for in, want := range map[string]Axis{"x": AxisX, "Height": AxisY, " depth ": AxisZ, "w": AxisX} {
		got, err := ParseAxis(in)
		if err != nil || got != want {
			t.Errorf("ParseAxis(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseAxis("q"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFloatRound(t *testing.T) {
	if got := FloatRound(1.23456, 2); got != 1.23 {
		t.Fatalf("got %v", got)
	}
	if got := FloatRound(1.5, -1); got != 1.5 {
		t.Fatalf("negative places should be identity, got %v", got)
	}
}
