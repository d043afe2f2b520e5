/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import "math"

// Ray is a half line Origin + t*Dir, t >= 0.
type Ray struct{ Origin, Dir Vec3 }

func (r Ray) At(t float64) Vec3 { return r.Origin.Add(r.Dir.Scale(t)) }

// Plane is the set of points p with Normal·p + D = 0.
type Plane struct {
	Normal Vec3
	D      float64
}

// Ground is the floor plane y = 0.
var Ground = Plane{Normal: Vec3{Y: 1}}

// IntersectPlane returns the point where r crosses pl. Rays parallel to the
// plane or pointing away from it miss.
func (r Ray) IntersectPlane(pl Plane) (Vec3, bool) {
	den := pl.Normal.Dot(r.Dir)
	if math.Abs(den) < 1e-12 {
		return Vec3{}, false
	}
	t := -(pl.Normal.Dot(r.Origin) + pl.D) / den
	if t < 0 {
		return Vec3{}, false
	}
	return r.At(t), true
}

// IntersectBox uses the slab method. A ray starting inside b hits at t = 0.
func (r Ray) IntersectBox(b Box3) (float64, bool) {
	if b.IsEmpty() {
		return 0, false
	}
	tmin, tmax := math.Inf(-1), math.Inf(1)
	o := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	d := [3]float64{r.Dir.X, r.Dir.Y, r.Dir.Z}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, false
			}
			continue
		}
		t1 := (lo[i] - o[i]) / d[i]
		t2 := (hi[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	return math.Max(tmin, 0), true
}

// IntersectSphere returns the nearest non-negative hit with the sphere.
func (r Ray) IntersectSphere(center Vec3, radius float64) (float64, bool) {
	oc := r.Origin.Sub(center)
	a := r.Dir.Dot(r.Dir)
	if a == 0 {
		return 0, false
	}
	b := 2 * oc.Dot(r.Dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := (-b - sq) / (2 * a)
	if t < 0 {
		t = (-b + sq) / (2 * a)
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}
