/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package attach computes where a new instance goes when it is added above or
// in front of an existing one. Extents come from world bounding boxes, so
// loaded meshes attach correctly whatever their authoring scale.
package attach

import (
	"fmt"
	"strings"

	"layoutquote/internal/domain"
	"layoutquote/internal/vector"
)

// Margin is the clearance between the two objects in millimeters.
const Margin = 1.0

type Mode int

const (
	Above Mode = iota
	Front
)

func (m Mode) String() string {
	switch m {
	case Above:
		return "above"
	case Front:
		return "front"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "above", "top":
		return Above, nil
	case "front":
		return Front, nil
	}
	return 0, fmt.Errorf("attach mode %q: %w", s, domain.ErrInvalidInput)
}

// PlanAbove centers the new object on the reference's x/z and stacks it on top.
// refPos is the reference's position; refBounds and newBounds are world boxes.
func PlanAbove(refPos vector.Vec3, refBounds, newBounds vector.Box3) vector.Vec3 {
	rh, nh := refBounds.HalfExtents(), newBounds.HalfExtents()
	return vector.V(refPos.X, refPos.Y+rh.Y+nh.Y+Margin, refPos.Z)
}

// PlanFront keeps the reference's x/y and places the new object along +z.
func PlanFront(refPos vector.Vec3, refBounds, newBounds vector.Box3) vector.Vec3 {
	rh, nh := refBounds.HalfExtents(), newBounds.HalfExtents()
	return vector.V(refPos.X, refPos.Y, refPos.Z+rh.Z+nh.Z+Margin)
}

// Plan dispatches on mode.
func Plan(mode Mode, refPos vector.Vec3, refBounds, newBounds vector.Box3) (vector.Vec3, error) {
	switch mode {
	case Above:
		return PlanAbove(refPos, refBounds, newBounds), nil
	case Front:
		return PlanFront(refPos, refBounds, newBounds), nil
	}
	return vector.Vec3{}, fmt.Errorf("attach: %s: %w", mode, domain.ErrInvalidInput)
}
