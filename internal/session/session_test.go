/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"layoutquote/internal/attach"
	"layoutquote/internal/catalog"
	"layoutquote/internal/control"
	"layoutquote/internal/domain"
	"layoutquote/internal/meshload"
	"layoutquote/internal/undo"
	"layoutquote/internal/vector"
)

var shelf = domain.MeshInfo{Bounds: vector.Box3{Min: vector.V(-0.6, 0, -0.2), Max: vector.V(0.6, 0.9, 0.2)}}

type recorder struct {
	mu    sync.Mutex
	views []View
	errs  []error
	seen  chan View
}

func newRecorder() *recorder { return &recorder{seen: make(chan View, 256)} }

func (r *recorder) Render(v View) {
	r.mu.Lock()
	r.views = append(r.views, v)
	r.mu.Unlock()
	select {
	case r.seen <- v:
	default:
	}
}

func (r *recorder) Report(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) last() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.views[len(r.views)-1]
}

type gatewayFunc func(ctx context.Context, name string, doc []byte, total int64) (string, error)

func (f gatewayFunc) SaveProject(ctx context.Context, name string, doc []byte, total int64) (string, error) {
	return f(ctx, name, doc, total)
}

func newSession(t *testing.T, loader meshload.Loader) (*Session, *recorder) {
	t.Helper()
	rec := newRecorder()
	s, err := New(Options{
		Catalog:   catalog.Builtin(),
		Loader:    loader,
		Projector: rec,
		AreaWidth: 2000,
		Viewport:  control.Viewport{Width: 1000, Height: 1000},
		History:   &undo.Config{},
	})
	if err != nil {
		t.Fatal(err)
	}
	s.Controller().Camera = control.TopDown(1000)
	return s, rec
}

func shelfLoader() meshload.Loader {
	return meshload.LoaderFunc(func(context.Context, string) (domain.MeshInfo, error) { return shelf, nil })
}

func nextLoad(t *testing.T, s *Session) LoadResult {
	t.Helper()
	select {
	case res := <-s.Loads():
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mesh load")
		return LoadResult{}
	}
}

func TestAddPrimitiveRendersQuote(t *testing.T) {
	s, rec := newSession(t, nil)
	id, err := s.Add(catalog.CategoryDesign, "상자")
	if err != nil {
		t.Fatal(err)
	}
	v := rec.last()
	if v.Quote.Total != 7000 || len(v.Instances) != 1 || v.Selected != id {
		t.Fatalf("unexpected view %+v", v)
	}
	if _, err := s.Add(catalog.CategoryDesign, "없음"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddMeshLoadsAsynchronously(t *testing.T) {
	s, rec := newSession(t, shelfLoader())
	id, err := s.Add(catalog.CategoryFixture, "1200 모델")
	if err != nil {
		t.Fatal(err)
	}
	if v := rec.last(); v.Pending != 1 || v.Quote.Total != 0 || len(v.Instances) != 0 {
		t.Fatalf("pending mesh must not be priced or shown: %+v", v)
	}
	if err := s.ApplyLoad(nextLoad(t, s)); err != nil {
		t.Fatal(err)
	}
	v := rec.last()
	if v.Pending != 0 || len(v.Instances) != 1 || v.Quote.Total != 150000 || v.Selected != id {
		t.Fatalf("after load: %+v", v)
	}
	// the second placement is served from the cache without a load
	if _, err := s.Add(catalog.CategoryFixture, "1200 모델"); err != nil {
		t.Fatal(err)
	}
	if s.Scene().Len() != 2 || len(s.Scene().Pending()) != 0 {
		t.Fatalf("cached mesh should be placed at once")
	}
}

func TestLoadFailureLeavesNoInstance(t *testing.T) {
	s, _ := newSession(t, meshload.LoaderFunc(func(context.Context, string) (domain.MeshInfo, error) {
		return domain.MeshInfo{}, errors.New("connection refused")
	}))
	if _, err := s.Add(catalog.CategoryFixture, "1500 모델"); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyLoad(nextLoad(t, s)); !errors.Is(err, domain.ErrLoadFailed) {
		t.Fatalf("expected ErrLoadFailed, got %v", err)
	}
	if s.Scene().Len() != 0 || len(s.Scene().Pending()) != 0 {
		t.Fatalf("failed load must leave nothing behind")
	}
}

func TestAddMeshWithoutLoader(t *testing.T) {
	s, _ := newSession(t, nil)
	if _, err := s.Add(catalog.CategoryFixture, "1200 모델"); !errors.Is(err, domain.ErrLoadFailed) {
		t.Fatalf("expected ErrLoadFailed, got %v", err)
	}
	if len(s.Scene().Pending()) != 0 {
		t.Fatalf("no pending placement expected")
	}
}

func TestStaleLoadIsIgnored(t *testing.T) {
	s, _ := newSession(t, shelfLoader())
	if _, err := s.Add(catalog.CategoryFixture, "1200 모델"); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Undo(); !ok || err != nil {
		t.Fatalf("undo: %v %v", ok, err)
	}
	if err := s.ApplyLoad(nextLoad(t, s)); err != nil {
		t.Fatalf("stale result should be ignored, got %v", err)
	}
	if s.Scene().Len() != 0 {
		t.Fatalf("stale result must not add an instance")
	}
}

func TestUndoKeepsMeshStillLoading(t *testing.T) {
	s, rec := newSession(t, shelfLoader())
	if _, err := s.Add(catalog.CategoryFixture, "1200 모델"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(catalog.CategoryDesign, "상자"); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Undo(); !ok || err != nil {
		t.Fatalf("undo: %v %v", ok, err)
	}
	if v := rec.last(); len(v.Instances) != 0 || v.Pending != 1 {
		t.Fatalf("undoing the box must keep the loading model: %+v", v)
	}
	if err := s.ApplyLoad(nextLoad(t, s)); err != nil {
		t.Fatal(err)
	}
	if v := rec.last(); len(v.Instances) != 1 || v.Pending != 0 || v.Quote.Total != 150000 {
		t.Fatalf("model should be placed after the undo: %+v", v)
	}

	// the redo entry still lists the model as loading; it comes back from the cache
	if ok, err := s.Redo(); !ok || err != nil {
		t.Fatalf("redo: %v %v", ok, err)
	}
	v := rec.last()
	if len(v.Instances) != 2 || v.Pending != 0 || v.Quote.Total != 157000 {
		t.Fatalf("redo should restore box and model: %+v", v)
	}
	select {
	case res := <-s.Loads():
		t.Fatalf("no second load expected, got %+v", res)
	default:
	}
}

func TestAttachAbovePrimitive(t *testing.T) {
	s, _ := newSession(t, nil)
	if _, err := s.Add(catalog.CategoryDesign, "상자"); err != nil {
		t.Fatal(err)
	}
	id, err := s.Attach(attach.Above, catalog.CategoryDesign, "구")
	if err != nil {
		t.Fatal(err)
	}
	in, err := s.Scene().Instance(id)
	if err != nil {
		t.Fatal(err)
	}
	// box center 50 + box half 50 + sphere half 50 + 1 mm margin
	if !in.Position.ApproxEqual(vector.V(0, 151, 0), 1e-9) {
		t.Fatalf("attached at %+v", in.Position)
	}
	if sel, _ := s.Scene().Selected(); sel.ID != id {
		t.Fatalf("attached instance should be selected")
	}
}

func TestAttachNeedsSelection(t *testing.T) {
	s, _ := newSession(t, nil)
	_, err := s.Attach(attach.Front, catalog.CategoryDesign, "구")
	if !errors.Is(err, ErrNoSelection) || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
}

func TestAttachPendingMeshAppliesAfterLoad(t *testing.T) {
	s, _ := newSession(t, shelfLoader())
	boxID, _ := s.Add(catalog.CategoryDesign, "상자")
	_ = s.Scene().MoveOnFloor(boxID, 200, -100)
	id, err := s.Attach(attach.Above, catalog.CategoryFixture, "1200 모델")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyLoad(nextLoad(t, s)); err != nil {
		t.Fatal(err)
	}
	in, err := s.Scene().Instance(id)
	if err != nil {
		t.Fatal(err)
	}
	// model height 0.9 * 1000 gives a half height of 450
	if !in.Position.ApproxEqual(vector.V(200, 551, -100), 1e-6) {
		t.Fatalf("attached mesh at %+v", in.Position)
	}
}

func TestUndoRedoResize(t *testing.T) {
	s, _ := newSession(t, nil)
	if _, err := s.Add(catalog.CategoryDesign, "상자"); err != nil {
		t.Fatal(err)
	}
	if err := s.Resize(vector.AxisX, 300); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Undo(); !ok || err != nil {
		t.Fatalf("undo: %v %v", ok, err)
	}
	if w := s.Scene().Instances()[0].RealSize().X; w != 100 {
		t.Fatalf("width after undo %v, want 100", w)
	}
	if ok, err := s.Redo(); !ok || err != nil {
		t.Fatalf("redo: %v %v", ok, err)
	}
	if w := s.Scene().Instances()[0].RealSize().X; math.Abs(w-300) > 1e-9 {
		t.Fatalf("width after redo %v, want 300", w)
	}
	_, _ = s.Undo()
	_, _ = s.Undo()
	if s.Scene().Len() != 0 {
		t.Fatalf("undoing the add should empty the scene")
	}
	if ok, _ := s.Undo(); ok {
		t.Fatalf("history should be exhausted")
	}
}

func TestForbiddenEditIsNotRecorded(t *testing.T) {
	cat, err := catalog.New(catalog.Item{
		Name: "계산대", Category: "집기", Kind: catalog.KindBox, Fixed: true, Price: 90000,
		Footprint: catalog.Size{Width: 1200, Height: 900, Depth: 600}, Color: domain.White,
	})
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(Options{Catalog: cat, History: &undo.Config{}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add("집기", "계산대"); err != nil {
		t.Fatal(err)
	}
	if err := s.Resize(vector.AxisY, 1000); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := s.SetColor(domain.MustColor("#000000")); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, depth, _ := s.hist.Stats(); depth != 1 {
		t.Fatalf("only the add should be in history, got %d", depth)
	}
	if err := s.SetVerticalPosition(1200); err != nil {
		t.Fatalf("height is always editable: %v", err)
	}
}

func TestDragGestureIsOneUndoStep(t *testing.T) {
	s, _ := newSession(t, nil)
	if _, err := s.Add(catalog.CategoryDesign, "상자"); err != nil {
		t.Fatal(err)
	}
	s.PointerDown(control.PointerEvent{X: 500, Y: 500})
	if s.Controller().State() != control.Dragging {
		t.Fatalf("expected dragging, got %v", s.Controller().State())
	}
	for x := 520.0; x <= 700; x += 20 {
		s.PointerMove(control.PointerEvent{X: x, Y: 500})
	}
	s.PointerUp(control.PointerEvent{X: 700, Y: 500})
	if x := s.Scene().Instances()[0].Position.X; x <= 0 {
		t.Fatalf("box should have moved right, x=%v", x)
	}
	if _, depth, _ := s.hist.Stats(); depth != 2 {
		t.Fatalf("want add + one gesture in history, got %d", depth)
	}
	_, _ = s.Undo()
	if p := s.Scene().Instances()[0].Position; p != vector.V(0, 50, 0) {
		t.Fatalf("undo should restore the pre-drag position, got %+v", p)
	}
}

func TestClickWithoutMoveRecordsNothing(t *testing.T) {
	s, _ := newSession(t, nil)
	_, _ = s.Add(catalog.CategoryDesign, "상자")
	s.PointerDown(control.PointerEvent{X: 500, Y: 500})
	s.PointerUp(control.PointerEvent{X: 500, Y: 500})
	if _, depth, _ := s.hist.Stats(); depth != 1 {
		t.Fatalf("a click is not an edit, history depth %d", depth)
	}
}

func TestLoadKeepsSceneOnCorruptDocument(t *testing.T) {
	s, _ := newSession(t, nil)
	_, _ = s.Add(catalog.CategoryDesign, "상자")
	for _, doc := range []string{"{", `{"areaWidth": 0, "objects": []}`, `{"objects": []}`} {
		if _, err := s.Load([]byte(doc)); !errors.Is(err, domain.ErrCorruptDocument) {
			t.Errorf("%s: expected ErrCorruptDocument, got %v", doc, err)
		}
	}
	if s.Scene().Len() != 1 || s.Scene().AreaWidth() != 2000 {
		t.Fatalf("previous scene must survive a rejected load")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := newSession(t, shelfLoader())
	_, _ = s.Add(catalog.CategoryDesign, "상자")
	_ = s.SetColor(domain.MustColor("#123456"))
	_, _ = s.Add(catalog.CategoryFixture, "1200 모델")
	if err := s.ApplyLoad(nextLoad(t, s)); err != nil {
		t.Fatal(err)
	}
	data, err := s.Save()
	if err != nil {
		t.Fatal(err)
	}

	other, rec := newSession(t, shelfLoader())
	skips, err := other.Load(data)
	if err != nil || len(skips) != 0 {
		t.Fatalf("load: %v %v", err, skips)
	}
	// the model was never loaded in this session, so it arrives later
	if other.Scene().Len() != 1 || len(other.Scene().Pending()) != 1 {
		t.Fatalf("want 1 instance + 1 pending, got %d + %d", other.Scene().Len(), len(other.Scene().Pending()))
	}
	if err := other.ApplyLoad(nextLoad(t, other)); err != nil {
		t.Fatal(err)
	}
	v := rec.last()
	if v.Quote.Total != 157000 || len(v.Instances) != 2 {
		t.Fatalf("quote after load %+v", v.Quote)
	}
	if v.Instances[0].Color != domain.MustColor("#123456") {
		t.Fatalf("color lost: %v", v.Instances[0].Color)
	}
	if _, ok := v.SelectedInstance(); ok {
		t.Fatalf("a document load keeps the selection empty")
	}
}

func TestSubmit(t *testing.T) {
	s, _ := newSession(t, nil)
	_, _ = s.Add(catalog.CategoryDesign, "구")
	var gotName string
	var gotTotal int64
	var gotDoc []byte
	gw := gatewayFunc(func(_ context.Context, name string, doc []byte, total int64) (string, error) {
		gotName, gotDoc, gotTotal = name, doc, total
		return "p-1", nil
	})
	id, err := s.Submit(context.Background(), gw, "매장 A")
	if err != nil || id != "p-1" {
		t.Fatalf("submit: %v %q", err, id)
	}
	if gotName != "매장 A" || gotTotal != 10000 || len(gotDoc) == 0 {
		t.Fatalf("gateway got %q %d %d bytes", gotName, gotTotal, len(gotDoc))
	}
	if _, err := s.Submit(context.Background(), gw, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("empty name: expected ErrInvalidInput, got %v", err)
	}
	boom := gatewayFunc(func(context.Context, string, []byte, int64) (string, error) { return "", errors.New("boom") })
	if _, err := s.Submit(context.Background(), boom, "x"); err == nil {
		t.Fatalf("gateway error must be returned")
	}
}

func TestSetAreaWidth(t *testing.T) {
	s, rec := newSession(t, nil)
	if err := s.SetAreaWidth(5000); err != nil {
		t.Fatal(err)
	}
	if rec.last().AreaWidth != 5000 || s.Scene().HalfExtent() != 2500 {
		t.Fatalf("area not applied")
	}
	if err := s.SetAreaWidth(-1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRunSerializesInputsAndLoads(t *testing.T) {
	gate := make(chan struct{})
	s, rec := newSession(t, meshload.LoaderFunc(func(ctx context.Context, _ string) (domain.MeshInfo, error) {
		<-gate
		return shelf, nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	inputs := make(chan Input)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, inputs) }()

	inputs <- func(s *Session) error {
		_, err := s.Add(catalog.CategoryFixture, "1500 모델")
		return err
	}
	inputs <- func(s *Session) error { return s.Remove() }
	inputs <- func(*Session) error { close(gate); return nil }

	deadline := time.After(5 * time.Second)
	for resolved := false; !resolved; {
		select {
		case v := <-rec.seen:
			resolved = len(v.Instances) == 1 && v.Pending == 0
		case <-deadline:
			t.Fatal("mesh load never reached the projection")
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("run returned %v", err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	// Remove ran before the load resolved, with nothing selected
	if len(rec.errs) != 1 || !errors.Is(rec.errs[0], ErrNoSelection) {
		t.Fatalf("expected one reported ErrNoSelection, got %v", rec.errs)
	}
}

func TestCameraOptionFollowsAreaWidth(t *testing.T) {
	s, err := New(Options{
		Catalog:   catalog.Builtin(),
		AreaWidth: 2000,
		Camera:    func(w float64) control.Camera { return control.TopDown(w) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Controller().Camera.Position.Y; got != 2000 {
		t.Fatalf("camera height = %v, want 2000", got)
	}
	if err := s.SetAreaWidth(3000); err != nil {
		t.Fatal(err)
	}
	if got := s.Controller().Camera.Position.Y; got != 3000 {
		t.Fatalf("camera height after resize = %v, want 3000", got)
	}
	s.SetViewport(control.Viewport{Width: 640, Height: 480})
	s.SetViewport(control.Viewport{})
	if vp := s.Controller().Viewport; vp.Width != 640 || vp.Height != 480 {
		t.Fatalf("viewport = %+v", vp)
	}
}

func TestSnapshotTracksLastRender(t *testing.T) {
	s, _ := newSession(t, nil)
	if _, err := s.Add(catalog.CategoryDesign, "상자"); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	doc, err := s.Save()
	if err != nil {
		t.Fatal(err)
	}
	if string(snap) != string(doc) {
		t.Fatalf("snapshot = %s, want %s", snap, doc)
	}
}
