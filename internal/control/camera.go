/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package control

import (
	"math"

	"layoutquote/internal/vector"
)

// Viewport is the pointer coordinate space, origin top-left, y down.
type Viewport struct{ Width, Height float64 }

// Camera is a perspective camera looking at Target.
type Camera struct {
	Position vector.Vec3
	Target   vector.Vec3
	Up       vector.Vec3
	FovY     float64 // vertical field of view in degrees
}

// FitCamera frames a square floor of side areaWidth from the front and above.
func FitCamera(areaWidth float64) Camera {
	return Camera{
		Position: vector.V(0, areaWidth*0.35, areaWidth*0.7),
		Up:       vector.V(0, 1, 0),
		FovY:     75,
	}
}

// TopDown looks straight down at the floor from height h. The screen's up
// direction maps to -z.
func TopDown(h float64) Camera {
	return Camera{Position: vector.V(0, h, 0), Up: vector.V(0, 0, -1), FovY: 60}
}

// Ray returns the world ray through pointer position (x, y) of vp.
func (c Camera) Ray(x, y float64, vp Viewport) vector.Ray {
	w, h := vp.Width, vp.Height
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	ndcX := 2*x/w - 1
	ndcY := 1 - 2*y/h
	fwd := c.Target.Sub(c.Position).Normalize()
	right := fwd.Cross(c.Up).Normalize()
	up := right.Cross(fwd)
	tanH := math.Tan(c.FovY * math.Pi / 360)
	aspect := w / h
	dir := fwd.Add(right.Scale(ndcX * tanH * aspect)).Add(up.Scale(ndcY * tanH))
	return vector.Ray{Origin: c.Position, Dir: dir.Normalize()}
}
