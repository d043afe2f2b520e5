/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Euler holds rotations in radians applied in XYZ order (M = Rx * Ry * Rz),
// the convention used by the stored scene documents.
type Euler struct{ X, Y, Z float64 }

func (e Euler) Array() [3]float64 { return [3]float64{e.X, e.Y, e.Z} }

func EulerFromArray(a [3]float64) Euler { return Euler{a[0], a[1], a[2]} }

// Matrix returns the rotation matrix for e.
func (e Euler) Matrix() Mat3 {
	a, b := math.Cos(e.X), math.Sin(e.X)
	c, d := math.Cos(e.Y), math.Sin(e.Y)
	f, g := math.Cos(e.Z), math.Sin(e.Z)
	ae, af, be, bf := a*f, a*g, b*f, b*g
	return Mat3{
		{c * f, -c * g, d},
		{af + be*d, ae - bf*d, -b * c},
		{bf - ae*d, be + af*d, a * c},
	}
}

// Mat3 is a row-major 3x3 matrix.
type Mat3 [3][3]float64

// Ident3 is the 3x3 identity.
var Ident3 = Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

func (m Mat3) Mul(n Mat3) Mat3 {
	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j]
		}
	}
	return out
}

func (m Mat3) Apply(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

func (m Mat3) Transpose() Mat3 {
	return Mat3{
		{m[0][0], m[1][0], m[2][0]},
		{m[0][1], m[1][1], m[2][1]},
		{m[0][2], m[1][2], m[2][2]},
	}
}

// Transform is a position/rotation/scale triple. A point p in local space maps
// to Position + R * (Scale * p).
type Transform struct {
	Position Vec3
	Rotation Euler
	Scale    Vec3
}

// IdentityTransform has unit scale and no rotation or translation.
var IdentityTransform = Transform{Scale: Splat(1)}

func (t Transform) Apply(p Vec3) Vec3 {
	return t.Position.Add(t.Rotation.Matrix().Apply(p.Mul(t.Scale)))
}

// Bounds transforms the eight corners of a local box and returns their
// world-space axis-aligned hull.
func (t Transform) Bounds(local Box3) Box3 {
	if local.IsEmpty() {
		return local
	}
	r := t.Rotation.Matrix()
	out := EmptyBox()
	for _, c := range local.Corners() {
		out = out.Expand(t.Position.Add(r.Apply(c.Mul(t.Scale))))
	}
	return out
}

// LocalRay maps a world ray into local space. The direction is not
// renormalized, so hit distances stay comparable with world-space distances.
// ok is false when the scale is degenerate.
func (t Transform) LocalRay(r Ray) (Ray, bool) {
	if t.Scale.HasZero() {
		return Ray{}, false
	}
	inv := t.Rotation.Matrix().Transpose()
	o := inv.Apply(r.Origin.Sub(t.Position)).Div(t.Scale)
	d := inv.Apply(r.Dir).Div(t.Scale)
	return Ray{Origin: o, Dir: d}, true
}
