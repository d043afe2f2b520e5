/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders quotes and floor plans to files: a quote PDF, a
// top-down plan as PNG or SVG, a zip bundle, and preset driven batches.
package export

import (
	"fmt"
	"sort"

	"layoutquote/internal/catalog"
	"layoutquote/internal/domain"
	"layoutquote/internal/scene"
)

// Plan is the input of the floor plan renderers.
type Plan struct {
	AreaWidth float64 // full side length of the square floor, mm
	Instances []*scene.Instance
}

// PlanOf captures the placed instances of a scene.
func PlanOf(s *scene.Scene) Plan {
	return Plan{AreaWidth: s.AreaWidth(), Instances: s.Instances()}
}

// footprint is an instance projected onto the floor, in mm.
type footprint struct {
	Label      string
	Color      domain.Color
	MinX, MinZ float64
	MaxX, MaxZ float64
	Top        float64
	Round      bool
}

// footprints projects instances and orders them bottom-up so that stacked
// objects are drawn over the ones they rest on.
func (p Plan) footprints() []footprint {
	out := make([]footprint, 0, len(p.Instances))
	for _, in := range p.Instances {
		b := in.Bounds()
		if b.IsEmpty() {
			continue
		}
		k := in.Item.Kind
		out = append(out, footprint{
			Label: in.Item.Name,
			Color: in.Color,
			MinX:  b.Min.X,
			MinZ:  b.Min.Z,
			MaxX:  b.Max.X,
			MaxZ:  b.Max.Z,
			Top:   b.Max.Y,
			Round: k == catalog.KindSphere || k == catalog.KindCylinder || k == catalog.KindDisc,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Top < out[j].Top })
	return out
}

func (p Plan) validate() error {
	if p.AreaWidth <= 0 {
		return fmt.Errorf("plan area width %g: %w", p.AreaWidth, domain.ErrInvalidInput)
	}
	return nil
}

// gridStep is the spacing of the floor grid, mm.
const gridStep = 500.0
