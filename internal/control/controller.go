/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package control turns pointer input into selection, drag and rotate
// gestures on a scene.
package control

import (
	"fmt"

	"layoutquote/internal/scene"
	"layoutquote/internal/vector"

	"github.com/google/uuid"
)

// DefaultSensitivity is the rotation per pointer pixel in radians.
const DefaultSensitivity = 0.01

type State int

const (
	Idle State = iota
	Dragging
	Rotating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Rotating:
		return "rotating"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Surface tells where a pointer event originated.
type Surface int

const (
	// SurfaceScene is the 3D view.
	SurfaceScene Surface = iota
	// SurfaceControl covers buttons, inputs and side panels.
	SurfaceControl
)

// PointerEvent is one pointer sample in viewport pixels.
type PointerEvent struct {
	X, Y    float64
	Shift   bool
	Surface Surface
}

// Controller is the selection and manipulation state machine. It holds no
// scene; every call gets the scene it operates on.
type Controller struct {
	Camera      Camera
	Viewport    Viewport
	Sensitivity float64

	state  State
	target uuid.UUID
	lastX  float64
	lastY  float64
}

func New(cam Camera, vp Viewport) *Controller {
	return &Controller{Camera: cam, Viewport: vp, Sensitivity: DefaultSensitivity}
}

func (c *Controller) State() State { return c.state }

// Reset drops any gesture in progress, e.g. when the scene is replaced.
func (c *Controller) Reset() {
	c.state = Idle
	c.target = uuid.Nil
}

// Pick returns the nearest placed instance under the pointer.
func (c *Controller) Pick(s *scene.Scene, x, y float64) (*scene.Instance, bool) {
	return PickRay(s, c.Camera.Ray(x, y, c.Viewport))
}

// PickRay returns the nearest instance hit by r. Pending placements are not
// instances and can never be hit.
func PickRay(s *scene.Scene, r vector.Ray) (*scene.Instance, bool) {
	var best *scene.Instance
	bestT := 0.0
	for _, in := range s.Instances() {
		if t, ok := in.Pick(r); ok && (best == nil || t < bestT) {
			best, bestT = in, t
		}
	}
	return best, best != nil
}

// PointerDown starts a gesture on a hit or clears the selection on a miss.
// It reports whether the selection or gesture state changed.
func (c *Controller) PointerDown(s *scene.Scene, ev PointerEvent) bool {
	if ev.Surface != SurfaceScene {
		return false
	}
	in, ok := c.Pick(s, ev.X, ev.Y)
	if !ok {
		_, had := s.Selected()
		s.ClearSelection()
		c.Reset()
		return had
	}
	_ = s.Select(in.ID)
	c.target = in.ID
	c.lastX, c.lastY = ev.X, ev.Y
	if ev.Shift {
		c.state = Rotating
	} else {
		c.state = Dragging
	}
	return true
}

// PointerMove advances the active gesture. Without one it does nothing.
// It reports whether the scene changed.
func (c *Controller) PointerMove(s *scene.Scene, ev PointerEvent) bool {
	if ev.Surface != SurfaceScene || c.state == Idle {
		return false
	}
	if _, err := s.Instance(c.target); err != nil {
		// the target went away mid-gesture
		c.Reset()
		return false
	}
	switch c.state {
	case Rotating:
		dx, dy := ev.X-c.lastX, ev.Y-c.lastY
		c.lastX, c.lastY = ev.X, ev.Y
		if dx == 0 && dy == 0 {
			return false
		}
		_ = s.Rotate(c.target, dx*c.Sensitivity, dy*c.Sensitivity)
		return true
	case Dragging:
		c.lastX, c.lastY = ev.X, ev.Y
		p, ok := c.Camera.Ray(ev.X, ev.Y, c.Viewport).IntersectPlane(vector.Ground)
		if !ok {
			return false
		}
		_ = s.MoveOnFloor(c.target, p.X, p.Z)
		return true
	}
	return false
}

// PointerUp ends the gesture wherever the pointer is. Selection is kept.
func (c *Controller) PointerUp(_ *scene.Scene, _ PointerEvent) bool {
	was := c.state != Idle
	c.Reset()
	return was
}
