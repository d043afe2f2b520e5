/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package ui is the desktop editor. The Fyne front end is compiled with
// -tags fyne; headless builds get a stub Run.
package ui

import (
	"math"

	"layoutquote/internal/catalog"
	"layoutquote/internal/control"
	"layoutquote/internal/meshload"
	"layoutquote/internal/scene"
	"layoutquote/internal/session"
	"layoutquote/internal/storage"
)

// Options wires the editor to its collaborators. Only Catalog is required.
type Options struct {
	Catalog *catalog.Catalog
	Loader  meshload.Loader
	Events  session.Events
	// Gateway receives submitted projects; nil hides the submit action.
	Gateway session.Gateway
	// Workspace and Index back the save and export actions.
	Workspace *storage.Workspace
	Index     *storage.Index
	// Scene is opened from Workspace on start when set.
	Scene       string
	AreaWidth   float64
	Sensitivity float64
	FontPath    string
}

// planMargin leaves a border of floor-free space around the plan.
const planMargin = 1.1

// planCamera looks straight down from a height at which the floor plus its
// margin exactly fills the vertical field of view.
func planCamera(areaWidth float64) control.Camera {
	cam := control.TopDown(1)
	half := areaWidth * planMargin / 2
	cam.Position.Y = half / math.Tan(cam.FovY*math.Pi/360)
	return cam
}

// planView maps floor millimeters to view pixels for a planCamera. Screen x
// follows world x and screen y follows world z.
type planView struct {
	W, H      float64
	AreaWidth float64
}

func (v planView) scale() float64 {
	if v.AreaWidth <= 0 || v.H <= 0 {
		return 0
	}
	return v.H / (v.AreaWidth * planMargin)
}

func (v planView) toScreen(x, z float64) (float64, float64) {
	s := v.scale()
	return v.W/2 + x*s, v.H/2 + z*s
}

func (v planView) toFloor(px, py float64) (x, z float64) {
	s := v.scale()
	if s == 0 {
		return 0, 0
	}
	return (px - v.W/2) / s, (py - v.H/2) / s
}

// footprint returns the screen rectangle covered by in seen from above.
func (v planView) footprint(in *scene.Instance) (x, y, w, h float64) {
	b := in.Bounds()
	x0, y0 := v.toScreen(b.Min.X, b.Min.Z)
	x1, y1 := v.toScreen(b.Max.X, b.Max.Z)
	return x0, y0, x1 - x0, y1 - y0
}

func isRound(k catalog.Kind) bool {
	return k == catalog.KindSphere || k == catalog.KindCylinder || k == catalog.KindDisc
}
