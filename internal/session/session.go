/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session ties the editor together. A Session owns one scene and
// applies user input, mesh load completions and document loads to it one at
// a time. After every accepted change the projector receives a fresh View
// with a recomputed quote.
//
// Session methods must be called from a single goroutine, normally the one
// running Run. Only mesh loads run elsewhere; they hand their results back
// through Loads.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"layoutquote/internal/attach"
	"layoutquote/internal/catalog"
	"layoutquote/internal/control"
	"layoutquote/internal/domain"
	applog "layoutquote/internal/log"
	"layoutquote/internal/meshload"
	"layoutquote/internal/pricing"
	"layoutquote/internal/scene"
	"layoutquote/internal/scenefile"
	"layoutquote/internal/undo"
	"layoutquote/internal/vector"

	"github.com/google/uuid"
)

// ErrNoSelection is returned by commands that act on the selected instance.
var ErrNoSelection = fmt.Errorf("nothing selected: %w", domain.ErrNotFound)

// View is what a projection needs to draw the editor.
type View struct {
	AreaWidth float64
	Instances []*scene.Instance
	Pending   int
	Selected  uuid.UUID
	State     control.State
	Quote     pricing.Quote
	CanUndo   bool
	CanRedo   bool
}

// SelectedInstance returns the selected instance of the view, if any.
func (v View) SelectedInstance() (*scene.Instance, bool) {
	for _, in := range v.Instances {
		if in.ID == v.Selected {
			return in, true
		}
	}
	return nil, false
}

// Projector renders views and surfaces errors to the user.
type Projector interface {
	Render(View)
	Report(error)
}

// Events receives anonymous usage events. *telemetry.Client implements it.
type Events interface {
	Event(name string, props map[string]any)
}

// Gateway persists a named scene document together with its total.
type Gateway interface {
	SaveProject(ctx context.Context, name string, doc []byte, total int64) (string, error)
}

// LoadResult is the outcome of an external-mesh load.
type LoadResult struct {
	PendingID uuid.UUID
	URL       string
	Mesh      domain.MeshInfo
	Err       error
}

// Input is one unit of work for Run.
type Input func(*Session) error

type Options struct {
	Catalog   *catalog.Catalog
	Loader    meshload.Loader
	Cache     *meshload.Cache
	Projector Projector
	Events    Events
	// AreaWidth of the initial floor; 0 means scene.DefaultAreaWidth.
	AreaWidth   float64
	Viewport    control.Viewport
	Sensitivity float64
	// Camera frames a floor of the given width; nil means control.FitCamera.
	Camera func(areaWidth float64) control.Camera
	// History overrides the undo configuration when non-nil.
	History *undo.Config
}

type attachRequest struct {
	mode attach.Mode
	ref  uuid.UUID
}

type Session struct {
	cat    *catalog.Catalog
	sc     *scene.Scene
	ctl    *control.Controller
	fit    func(float64) control.Camera
	loader meshload.Loader
	cache  *meshload.Cache
	proj   Projector
	events Events
	hist   *undo.Manager
	log    *slog.Logger

	ctx     context.Context
	loads   chan LoadResult
	attachs map[uuid.UUID]attachRequest
	// encoded scene captured when the current gesture began
	gesture []byte
	now     func() time.Time

	lastMu sync.Mutex
	last   []byte
}

func New(opts Options) (*Session, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("session: catalog is required: %w", domain.ErrInvalidInput)
	}
	w := opts.AreaWidth
	if w == 0 {
		w = scene.DefaultAreaWidth
	}
	sc, err := scene.NewWithAreaWidth(w)
	if err != nil {
		return nil, err
	}
	vp := opts.Viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = control.Viewport{Width: 1280, Height: 800}
	}
	fit := opts.Camera
	if fit == nil {
		fit = control.FitCamera
	}
	ctl := control.New(fit(w), vp)
	if opts.Sensitivity > 0 {
		ctl.Sensitivity = opts.Sensitivity
	}
	hc := undo.Config{MaxDepth: 100, MinInterval: 300 * time.Millisecond}
	if opts.History != nil {
		hc = *opts.History
	}
	s := &Session{
		cat:     opts.Catalog,
		sc:      sc,
		ctl:     ctl,
		fit:     fit,
		loader:  opts.Loader,
		cache:   opts.Cache,
		proj:    opts.Projector,
		events:  opts.Events,
		hist:    undo.NewManager(hc),
		log:     applog.WithComponent("session"),
		ctx:     context.Background(),
		loads:   make(chan LoadResult, 16),
		attachs: map[uuid.UUID]attachRequest{},
		now:     time.Now,
	}
	if s.cache == nil {
		s.cache = meshload.NewCache()
	}
	if s.proj == nil {
		s.proj = nopProjector{}
	}
	if s.events == nil {
		s.events = nopEvents{}
	}
	return s, nil
}

// Scene exposes the live scene for read-only use (export, CLI summaries).
func (s *Session) Scene() *scene.Scene { return s.sc }

func (s *Session) Catalog() *catalog.Catalog { return s.cat }

func (s *Session) Controller() *control.Controller { return s.ctl }

// Loads delivers completed mesh loads. Run consumes it; callers that drive
// the session by hand pass each result to ApplyLoad.
func (s *Session) Loads() <-chan LoadResult { return s.loads }

// Quote computes the current quote.
func (s *Session) Quote() pricing.Quote { return pricing.Compute(s.sc) }

// View snapshots the state for a projection.
func (s *Session) View() View {
	v := View{
		AreaWidth: s.sc.AreaWidth(),
		Pending:   len(s.sc.Pending()),
		State:     s.ctl.State(),
		Quote:     pricing.Compute(s.sc),
		CanUndo:   s.hist.CanUndo(),
		CanRedo:   s.hist.CanRedo(),
	}
	for _, in := range s.sc.Instances() {
		v.Instances = append(v.Instances, in.Clone())
	}
	if sel, ok := s.sc.Selected(); ok {
		v.Selected = sel.ID
	}
	return v
}

// Run processes inputs and load completions one at a time until ctx is done
// or inputs is closed. Errors from inputs are reported to the projector and
// do not stop the loop.
func (s *Session) Run(ctx context.Context, inputs <-chan Input) error {
	s.ctx = ctx
	s.render()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-inputs:
			if !ok {
				return nil
			}
			if err := in(s); err != nil {
				s.proj.Report(err)
			}
		case res := <-s.loads:
			if err := s.ApplyLoad(res); err != nil {
				s.proj.Report(err)
			}
		}
	}
}

// Add places a new instance of the catalog item. External meshes that are
// not cached yet become pending and are loaded in the background; the
// returned id is then the pending id the instance will carry.
func (s *Session) Add(category, name string) (uuid.UUID, error) {
	item, err := s.cat.Lookup(category, name)
	if err != nil {
		return uuid.Nil, err
	}
	var id uuid.UUID
	err = s.mutate("add", func() error {
		if item.Kind.IsMesh() {
			if m, ok := s.cache.Mesh(item.URL); ok {
				in, err := s.sc.PlaceMesh(item, m)
				if err != nil {
					return err
				}
				id = in.ID
				return nil
			}
			p, err := s.startLoad(item)
			if err != nil {
				return err
			}
			id = p.ID
			return nil
		}
		in, err := s.sc.Place(item)
		if err != nil {
			return err
		}
		id = in.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	s.events.Event("instance_added", map[string]any{"kind": string(item.Kind), "category": item.Category})
	return id, nil
}

// Attach places a new instance above or in front of the selected one.
func (s *Session) Attach(mode attach.Mode, category, name string) (uuid.UUID, error) {
	ref, ok := s.sc.Selected()
	if !ok {
		return uuid.Nil, ErrNoSelection
	}
	item, err := s.cat.Lookup(category, name)
	if err != nil {
		return uuid.Nil, err
	}
	refID := ref.ID
	var id uuid.UUID
	err = s.mutate("attach", func() error {
		var in *scene.Instance
		var err error
		switch {
		case item.Kind.IsMesh():
			m, cached := s.cache.Mesh(item.URL)
			if !cached {
				p, err := s.startLoad(item)
				if err != nil {
					return err
				}
				s.attachs[p.ID] = attachRequest{mode: mode, ref: refID}
				id = p.ID
				return nil
			}
			in, err = s.sc.PlaceMesh(item, m)
		default:
			in, err = s.sc.Place(item)
		}
		if err != nil {
			return err
		}
		if err := s.placeRelative(in, mode, refID); err != nil {
			_ = s.sc.Remove(in.ID)
			_ = s.sc.Select(refID)
			return err
		}
		id = in.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	s.events.Event("instance_attached", map[string]any{"kind": string(item.Kind), "mode": mode.String()})
	return id, nil
}

func (s *Session) placeRelative(in *scene.Instance, mode attach.Mode, refID uuid.UUID) error {
	ref, err := s.sc.Instance(refID)
	if err != nil {
		return err
	}
	pos, err := attach.Plan(mode, ref.Position, ref.Bounds(), in.Bounds())
	if err != nil {
		return err
	}
	return s.sc.SetPosition(in.ID, pos)
}

func (s *Session) startLoad(item catalog.Item) (*scene.Pending, error) {
	if s.loader == nil {
		return nil, fmt.Errorf("load %s: no mesh loader configured: %w", item.URL, domain.ErrLoadFailed)
	}
	p, err := s.sc.AddPending(item, nil)
	if err != nil {
		return nil, err
	}
	s.load(p)
	return p, nil
}

func (s *Session) load(p *scene.Pending) {
	ctx, url, id, loader := s.ctx, p.Item.URL, p.ID, s.loader
	s.log.Debug("mesh load started", slog.String("url", url), slog.String("pending", id.String()))
	go func() {
		m, err := loader.Load(ctx, url)
		select {
		case s.loads <- LoadResult{PendingID: id, URL: url, Mesh: m, Err: err}:
		case <-ctx.Done():
		}
	}()
}

// ApplyLoad promotes or discards the pending placement a load belongs to.
// Results for placements that no longer exist are ignored.
func (s *Session) ApplyLoad(res LoadResult) error {
	l := applog.WithOperation(s.log, "apply_load").With(slog.String("url", res.URL))
	req, hasReq := s.attachs[res.PendingID]
	delete(s.attachs, res.PendingID)
	if _, ok := s.sc.PendingByID(res.PendingID); !ok {
		l.Debug("stale load result ignored")
		if res.Err == nil {
			s.cache.Put(res.URL, res.Mesh)
		}
		return nil
	}
	if res.Err != nil {
		s.sc.Discard(res.PendingID)
		s.render()
		s.events.Event("mesh_load_failed", nil)
		if !errors.Is(res.Err, domain.ErrLoadFailed) {
			return fmt.Errorf("load %s: %w: %v", res.URL, domain.ErrLoadFailed, res.Err)
		}
		return res.Err
	}
	in, err := s.sc.Promote(res.PendingID, res.Mesh)
	if err != nil {
		s.sc.Discard(res.PendingID)
		s.render()
		return err
	}
	s.cache.Put(res.URL, res.Mesh)
	if hasReq {
		if err := s.placeRelative(in, req.mode, req.ref); err != nil {
			// the reference was removed while loading; keep the default spot
			l.Info("attach reference gone", slog.Any("err", err))
		}
	}
	l.Info("mesh placed", slog.String("id", in.ID.String()))
	s.render()
	return nil
}

// Remove deletes the selected instance.
func (s *Session) Remove() error {
	sel, ok := s.sc.Selected()
	if !ok {
		return ErrNoSelection
	}
	return s.mutate("remove", func() error { return s.sc.Remove(sel.ID) })
}

// Resize sets the real size of the selected instance along one axis.
func (s *Session) Resize(axis vector.Axis, realSize float64) error {
	sel, ok := s.sc.Selected()
	if !ok {
		return ErrNoSelection
	}
	return s.mutate("resize", func() error { return s.sc.Resize(sel.ID, axis, realSize) })
}

// SetColor recolors the selected instance.
func (s *Session) SetColor(c domain.Color) error {
	sel, ok := s.sc.Selected()
	if !ok {
		return ErrNoSelection
	}
	return s.mutate("color", func() error { return s.sc.SetColor(sel.ID, c) })
}

// SetVerticalPosition sets y of the selected instance.
func (s *Session) SetVerticalPosition(y float64) error {
	sel, ok := s.sc.Selected()
	if !ok {
		return ErrNoSelection
	}
	return s.mutate("height", func() error { return s.sc.SetVerticalPosition(sel.ID, y) })
}

// SetAreaWidth resizes the floor and refits the camera.
func (s *Session) SetAreaWidth(w float64) error {
	err := s.mutate("area", func() error { return s.sc.SetAreaWidth(w) })
	if err != nil {
		return err
	}
	s.ctl.Camera = s.fit(w)
	s.render()
	return nil
}

// SetViewport updates the pointer coordinate space after the view was resized.
func (s *Session) SetViewport(vp control.Viewport) {
	if vp.Width <= 0 || vp.Height <= 0 {
		return
	}
	s.ctl.Viewport = vp
}

// Select changes the selection without a pointer gesture.
func (s *Session) Select(id uuid.UUID) error {
	if err := s.sc.Select(id); err != nil {
		return err
	}
	s.render()
	return nil
}

// PointerDown forwards to the controller. A gesture that later changes the
// scene is recorded as one undo step.
func (s *Session) PointerDown(ev control.PointerEvent) {
	changed := s.ctl.PointerDown(s.sc, ev)
	s.gesture = nil
	if s.ctl.State() != control.Idle {
		s.gesture, _ = s.checkpoint()
	}
	if changed {
		s.render()
	}
}

func (s *Session) PointerMove(ev control.PointerEvent) {
	if !s.ctl.PointerMove(s.sc, ev) {
		return
	}
	if s.gesture != nil {
		s.hist.Record(undo.Snapshot{Label: "gesture", Blob: s.gesture, TS: s.now()})
		s.gesture = nil
	}
	s.render()
}

func (s *Session) PointerUp(ev control.PointerEvent) {
	s.gesture = nil
	if s.ctl.PointerUp(s.sc, ev) {
		s.render()
	}
}

// Undo reverts the last recorded change.
func (s *Session) Undo() (bool, error) {
	cur, err := s.checkpoint()
	if err != nil {
		return false, err
	}
	snap, ok := s.hist.Undo(cur)
	if !ok {
		return false, nil
	}
	return true, s.restore(snap.Blob)
}

// Redo re-applies the last undone change.
func (s *Session) Redo() (bool, error) {
	cur, err := s.checkpoint()
	if err != nil {
		return false, err
	}
	snap, ok := s.hist.Redo(cur)
	if !ok {
		return false, nil
	}
	return true, s.restore(snap.Blob)
}

// Save encodes the current scene as a document.
func (s *Session) Save() ([]byte, error) {
	b, err := s.encode()
	if err != nil {
		return nil, err
	}
	s.events.Event("scene_saved", map[string]any{"objects": s.sc.Len()})
	return b, nil
}

// Load replaces the scene with the one in data. The current scene is kept
// when the document is rejected. Entries with unknown presets are skipped
// and returned.
func (s *Session) Load(data []byte) ([]scenefile.Skip, error) {
	sc, skips, err := scenefile.Load(data, s.cat, s.cache)
	if err != nil {
		return nil, err
	}
	s.hist.Clear()
	s.ctl.Camera = s.fit(sc.AreaWidth())
	s.adopt(sc, nil)
	s.events.Event("scene_loaded", map[string]any{"objects": sc.Len(), "skipped": len(skips)})
	return skips, nil
}

// adopt swaps in sc and starts loads for its pending placements. The
// placements in inflight are already loading; they join sc as they are and
// keep their attach requests.
func (s *Session) adopt(sc *scene.Scene, inflight []*scene.Pending) {
	reqs := s.attachs
	s.attachs = map[uuid.UUID]attachRequest{}
	s.sc = sc
	s.ctl.Reset()
	s.gesture = nil
	for _, p := range sc.Pending() {
		if s.loader == nil {
			sc.Discard(p.ID)
			s.proj.Report(fmt.Errorf("load %s: no mesh loader configured: %w", p.Item.URL, domain.ErrLoadFailed))
			continue
		}
		s.load(p)
	}
	for _, p := range inflight {
		sc.RestorePending(p)
		if r, ok := reqs[p.ID]; ok {
			s.attachs[p.ID] = r
		}
	}
	s.render()
}

// Submit stores the current document and total through gw.
func (s *Session) Submit(ctx context.Context, gw Gateway, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("submit: empty name: %w", domain.ErrInvalidInput)
	}
	doc, err := s.encode()
	if err != nil {
		return "", err
	}
	total := pricing.Total(s.sc)
	id, err := gw.SaveProject(ctx, name, doc, total)
	if err != nil {
		return "", fmt.Errorf("submit %q: %w", name, err)
	}
	applog.WithOperation(s.log, "submit").Info("project saved", slog.String("id", id), slog.Int64("total", total))
	s.events.Event("project_submitted", map[string]any{"objects": s.sc.Len()})
	return id, nil
}

// mutate records the pre-change scene and renders when fn succeeds.
// fn must leave the scene untouched when it fails.
func (s *Session) mutate(label string, fn func() error) error {
	before, err := s.checkpoint()
	if err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	s.hist.Record(undo.Snapshot{Label: label, Blob: before, TS: s.now()})
	s.render()
	return nil
}

func (s *Session) encode() ([]byte, error) {
	return scenefile.Encode(scenefile.Serialize(s.sc))
}

func (s *Session) render() {
	if doc, err := s.encode(); err == nil {
		s.lastMu.Lock()
		s.last = doc
		s.lastMu.Unlock()
	}
	s.proj.Render(s.View())
}

// Snapshot returns the document as of the last render. It may be called
// from any goroutine, including a deferred crash handler.
func (s *Session) Snapshot() []byte {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	return append([]byte(nil), s.last...)
}

type nopProjector struct{}

func (nopProjector) Render(View)  {}
func (nopProjector) Report(error) {}

type nopEvents struct{}

func (nopEvents) Event(string, map[string]any) {}
