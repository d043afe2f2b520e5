//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"
	"sort"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"layoutquote/internal/control"
	"layoutquote/internal/scene"
	"layoutquote/internal/session"
)

const planGridStep = 500.0 // mm

var (
	planBackground = color.NRGBA{R: 30, G: 30, B: 34, A: 255}
	planFloor      = color.NRGBA{R: 244, G: 244, B: 244, A: 255}
	planGrid       = color.NRGBA{R: 210, G: 210, B: 210, A: 255}
	planStroke     = color.NRGBA{R: 34, G: 34, B: 34, A: 255}
	planSelection  = color.NRGBA{R: 0, G: 170, B: 255, A: 255}
)

// PlanCanvas draws the scene from above and turns mouse input into pointer
// events for the session. Pointer positions are in canvas pixels, the same
// space the session's top-down camera uses.
type PlanCanvas struct {
	widget.BaseWidget

	view    session.View
	showLbl bool

	// OnPointer receives down, move and up events. Moves are only forwarded
	// while a button is held.
	OnPointer func(kind PointerKind, ev control.PointerEvent)
	// OnResize reports the new viewport whenever the canvas changes size.
	OnResize func(control.Viewport)

	pressed bool
}

// PointerKind distinguishes the three pointer callbacks.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
)

func NewPlanCanvas() *PlanCanvas {
	p := &PlanCanvas{showLbl: true}
	p.view.AreaWidth = scene.DefaultAreaWidth
	p.ExtendBaseWidget(p)
	return p
}

// SetView replaces the drawn state. Call on the UI goroutine.
func (p *PlanCanvas) SetView(v session.View) {
	p.view = v
	p.Refresh()
}

// SetLabels toggles the name labels.
func (p *PlanCanvas) SetLabels(on bool) {
	p.showLbl = on
	p.Refresh()
}

func (p *PlanCanvas) planView() planView {
	sz := p.Size()
	return planView{W: float64(sz.Width), H: float64(sz.Height), AreaWidth: p.view.AreaWidth}
}

// PreferredSize sets a decent default size for the widget.
func (p *PlanCanvas) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

func (p *PlanCanvas) Resize(size fyne.Size) {
	p.BaseWidget.Resize(size)
	if p.OnResize != nil && size.Width > 0 && size.Height > 0 {
		p.OnResize(control.Viewport{Width: float64(size.Width), Height: float64(size.Height)})
	}
}

func (p *PlanCanvas) emit(kind PointerKind, ev *desktop.MouseEvent) {
	if p.OnPointer == nil {
		return
	}
	p.OnPointer(kind, control.PointerEvent{
		X:       float64(ev.Position.X),
		Y:       float64(ev.Position.Y),
		Shift:   ev.Modifier&fyne.KeyModifierShift != 0,
		Surface: control.SurfaceScene,
	})
}

func (p *PlanCanvas) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	p.pressed = true
	p.emit(PointerDown, ev)
}

func (p *PlanCanvas) MouseUp(ev *desktop.MouseEvent) {
	p.pressed = false
	p.emit(PointerUp, ev)
}

func (p *PlanCanvas) MouseIn(*desktop.MouseEvent) {}

func (p *PlanCanvas) MouseMoved(ev *desktop.MouseEvent) {
	if p.pressed {
		p.emit(PointerMove, ev)
	}
}

// MouseOut ends any gesture; the release may never reach the canvas.
func (p *PlanCanvas) MouseOut() {
	if !p.pressed {
		return
	}
	p.pressed = false
	if p.OnPointer != nil {
		p.OnPointer(PointerUp, control.PointerEvent{Surface: control.SurfaceScene})
	}
}

func (p *PlanCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(planBackground)
	floor := canvas.NewRectangle(planFloor)
	floor.StrokeColor = planStroke
	floor.StrokeWidth = 1
	sel := canvas.NewRectangle(color.Transparent)
	sel.StrokeColor = planSelection
	sel.StrokeWidth = 2
	sel.Hide()
	r := &planCanvasRenderer{pc: p, bg: bg, floor: floor, sel: sel}
	r.rebuild()
	return r
}

// planCanvasRenderer rebuilds its shapes on every refresh; scenes are small.
type planCanvasRenderer struct {
	pc      *PlanCanvas
	bg      *canvas.Rectangle
	floor   *canvas.Rectangle
	sel     *canvas.Rectangle
	grid    []*canvas.Line
	shapes  []fyne.CanvasObject
	labels  []*canvas.Text
	objects []fyne.CanvasObject
}

func (r *planCanvasRenderer) Destroy()                     {}
func (r *planCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *planCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(200, 150) }

func (r *planCanvasRenderer) Refresh() {
	r.rebuild()
	r.Layout(r.pc.Size())
	canvas.Refresh(r.pc)
}

// rebuild creates one shape and label per instance, lowest top first so
// that taller objects are drawn over the ones they cover.
func (r *planCanvasRenderer) rebuild() {
	insts := append([]*scene.Instance(nil), r.pc.view.Instances...)
	sort.SliceStable(insts, func(i, j int) bool { return insts[i].Bounds().Max.Y < insts[j].Bounds().Max.Y })

	half := r.pc.view.AreaWidth / 2
	r.grid = r.grid[:0]
	for v := -half + planGridStep; v < half; v += planGridStep {
		r.grid = append(r.grid, canvas.NewLine(planGrid), canvas.NewLine(planGrid))
	}

	r.shapes = r.shapes[:0]
	r.labels = r.labels[:0]
	for _, in := range insts {
		fill := in.Color.NRGBA()
		fill.A = 0xcc
		if isRound(in.Item.Kind) {
			c := canvas.NewCircle(fill)
			c.StrokeColor = planStroke
			c.StrokeWidth = 1
			r.shapes = append(r.shapes, c)
		} else {
			rc := canvas.NewRectangle(fill)
			rc.StrokeColor = planStroke
			rc.StrokeWidth = 1
			r.shapes = append(r.shapes, rc)
		}
		t := canvas.NewText(in.Item.Name, planStroke)
		t.TextSize = 11
		t.Alignment = fyne.TextAlignCenter
		if !r.pc.showLbl {
			t.Hide()
		}
		r.labels = append(r.labels, t)
	}
	r.pc.view.Instances = insts

	objs := []fyne.CanvasObject{r.bg, r.floor}
	for _, g := range r.grid {
		objs = append(objs, g)
	}
	objs = append(objs, r.shapes...)
	for _, t := range r.labels {
		objs = append(objs, t)
	}
	r.objects = append(objs, r.sel)
}

func (r *planCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	pv := planView{W: float64(size.Width), H: float64(size.Height), AreaWidth: r.pc.view.AreaWidth}
	half := pv.AreaWidth / 2
	x0, y0 := pv.toScreen(-half, -half)
	x1, y1 := pv.toScreen(half, half)
	r.floor.Move(fyne.NewPos(float32(x0), float32(y0)))
	r.floor.Resize(fyne.NewSize(float32(x1-x0), float32(y1-y0)))

	i := 0
	for v := -half + planGridStep; v < half && i+1 < len(r.grid); v += planGridStep {
		vx, _ := pv.toScreen(v, 0)
		_, hy := pv.toScreen(0, v)
		r.grid[i].Position1, r.grid[i].Position2 = fyne.NewPos(float32(vx), float32(y0)), fyne.NewPos(float32(vx), float32(y1))
		r.grid[i+1].Position1, r.grid[i+1].Position2 = fyne.NewPos(float32(x0), float32(hy)), fyne.NewPos(float32(x1), float32(hy))
		i += 2
	}

	r.sel.Hide()
	for k, in := range r.pc.view.Instances {
		if k >= len(r.shapes) {
			break
		}
		x, y, w, h := pv.footprint(in)
		pos, sz := fyne.NewPos(float32(x), float32(y)), fyne.NewSize(float32(w), float32(h))
		r.shapes[k].Move(pos)
		r.shapes[k].Resize(sz)
		r.labels[k].Move(fyne.NewPos(float32(x+w/2), float32(y+h/2-7)))
		if in.ID == r.pc.view.Selected {
			r.sel.Move(fyne.NewPos(pos.X-3, pos.Y-3))
			r.sel.Resize(fyne.NewSize(sz.Width+6, sz.Height+6))
			r.sel.Show()
		}
	}
}
