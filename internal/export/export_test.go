/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"layoutquote/internal/catalog"
	"layoutquote/internal/domain"
	"layoutquote/internal/pricing"
	"layoutquote/internal/scene"
	"layoutquote/internal/storage"
)

// sampleScene has a box at (200, -200) and a sphere at (-300, 300) on a 1000mm floor.
func sampleScene(t *testing.T) *scene.Scene {
	t.Helper()
	cat := catalog.Builtin()
	s, err := scene.NewWithAreaWidth(1000)
	if err != nil {
		t.Fatal(err)
	}
	place := func(name string, x, z float64) {
		it, err := cat.Lookup(catalog.CategoryDesign, name)
		if err != nil {
			t.Fatal(err)
		}
		in, err := s.Place(it)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.MoveOnFloor(in.ID, x, z); err != nil {
			t.Fatal(err)
		}
	}
	place("상자", 200, -200)
	place("구", -300, 300)
	s.ClearSelection()
	return s
}

func TestRenderPlanPlacesFootprints(t *testing.T) {
	img, err := RenderPlan(PlanOf(sampleScene(t)), PNGOptions{Size: 1000, NoLabels: true})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if img.Bounds().Dx() != 1000 {
		t.Fatalf("unexpected size %v", img.Bounds())
	}
	// box spans 650..750 x 250..350 in pixels
	if c := img.RGBAAt(700, 300); c == floorColor {
		t.Fatalf("box footprint not drawn: %v", c)
	}
	if c := img.RGBAAt(651, 251); c == floorColor {
		t.Fatalf("box interior near corner not drawn: %v", c)
	}
	// sphere footprint is round: its bounding box corner stays floor
	if c := img.RGBAAt(152, 752); c != floorColor {
		t.Fatalf("sphere corner should stay floor, got %v", c)
	}
	if c := img.RGBAAt(200, 800); c == floorColor {
		t.Fatalf("sphere center not drawn")
	}
	if c := img.RGBAAt(100, 900); c != floorColor {
		t.Fatalf("empty floor changed: %v", c)
	}
}

func TestRenderPlanRejectsZeroArea(t *testing.T) {
	if _, err := RenderPlan(Plan{}, PNGOptions{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestWritePlanPNGWithLabels(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePlanPNG(PlanOf(sampleScene(t)), &buf, PNGOptions{Size: 400, IncludeGrid: true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 400 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
}

func TestLoadFaceMissingFont(t *testing.T) {
	_, err := RenderPlan(PlanOf(sampleScene(t)), PNGOptions{FontPath: filepath.Join(t.TempDir(), "none.ttf")})
	if err == nil {
		t.Fatalf("expected an error for a missing font")
	}
}

func TestRenderPlanSVG(t *testing.T) {
	b, err := RenderPlanSVG(PlanOf(sampleScene(t)), SVGOptions{SizePx: 500, IncludeGrid: true})
	if err != nil {
		t.Fatalf("svg: %v", err)
	}
	s := string(b)
	for _, want := range []string{`viewBox="0 0 1000 1000"`, `<rect x="650" y="250" width="100" height="100"`, "<ellipse", ">상자</text>", "<line"} {
		if !strings.Contains(s, want) {
			t.Errorf("svg missing %q", want)
		}
	}
	if got := escText(`a<b & "c"`); got != `a&lt;b &amp; "c"` {
		t.Errorf("escText = %q", got)
	}
}

func TestWriteQuotePDF(t *testing.T) {
	q := pricing.Compute(sampleScene(t))
	var buf bytes.Buffer
	if err := WriteQuotePDF(q, &buf, PDFOptions{Date: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", buf.Bytes()[:8])
	}
}

func TestExportQuotePDFBadFont(t *testing.T) {
	out := filepath.Join(t.TempDir(), "q.pdf")
	err := ExportQuotePDF(pricing.Quote{}, out, PDFOptions{FontPath: filepath.Join(t.TempDir(), "missing.ttf")})
	if err == nil {
		t.Fatalf("expected error for missing font")
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Fatalf("partial pdf left behind: %v", statErr)
	}
}

func TestExportBundle(t *testing.T) {
	s := sampleScene(t)
	out := filepath.Join(t.TempDir(), "share")
	b := Bundle{Name: "demo", Plan: PlanOf(s), Quote: pricing.Compute(s), Document: []byte(`{"areaWidth":1000,"objects":[]}`)}
	if err := ExportBundle(b, out, PNGOptions{Size: 200, NoLabels: true}); err != nil {
		t.Fatalf("bundle: %v", err)
	}
	rd, err := zip.OpenReader(out + ".zip")
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	defer func() { _ = rd.Close() }()
	var names []string
	var man Manifest
	for _, f := range rd.File {
		names = append(names, f.Name)
		if f.Name == "manifest.json" {
			r, err := f.Open()
			if err != nil {
				t.Fatal(err)
			}
			if err := json.NewDecoder(r).Decode(&man); err != nil {
				t.Fatalf("manifest: %v", err)
			}
			_ = r.Close()
		}
	}
	sort.Strings(names)
	want := []string{"manifest.json", "plan.png", "plan.svg", "quote.json", "scene.json"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("entries = %v", names)
	}
	if man.Name != "demo" || man.Total != 17000 || man.Objects != 2 || len(man.Files) != 4 {
		t.Fatalf("unexpected manifest %+v", man)
	}
}

func TestBatchExportPresets(t *testing.T) {
	ws, err := storage.InitWorkspace(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := sampleScene(t)

	cases := []struct {
		preset PresetName
		files  []string
	}{
		{PresetPrint, []string{"demo-quote.pdf", "demo-plan.png"}},
		{PresetWeb, []string{"demo-plan.png", "demo-plan.svg", "demo-quote.json"}},
	}
	for _, tc := range cases {
		written, err := BatchExport(ws, "demo", s, BatchOptions{Preset: tc.preset, SizePx: 256})
		if err != nil {
			t.Fatalf("%s: %v", tc.preset, err)
		}
		if len(written) != len(tc.files) {
			t.Fatalf("%s: wrote %v", tc.preset, written)
		}
		for _, f := range tc.files {
			p := filepath.Join(ws.ExportsDir(), string(tc.preset), f)
			st, err := os.Stat(p)
			if err != nil {
				t.Fatalf("missing %s: %v", p, err)
			}
			if st.Size() <= 0 {
				t.Fatalf("empty file: %s", p)
			}
		}
	}

	var q pricing.Quote
	b, err := os.ReadFile(filepath.Join(ws.ExportsDir(), "web", "demo-quote.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(b, &q); err != nil || q.Total != 17000 {
		t.Fatalf("quote json: total=%d err=%v", q.Total, err)
	}
}

func TestBatchExportErrors(t *testing.T) {
	s := sampleScene(t)
	if _, err := BatchExport(nil, "demo", s, BatchOptions{Preset: PresetWeb}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("relative dir without workspace: %v", err)
	}
	if _, err := BatchExport(nil, "../x", s, BatchOptions{OutDir: t.TempDir()}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("bad name: %v", err)
	}
	if _, err := BatchExport(nil, "demo", s, BatchOptions{OutDir: t.TempDir(), Formats: []string{"gif"}}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown format: %v", err)
	}
	written, err := BatchExport(nil, "demo", s, BatchOptions{OutDir: t.TempDir(), Formats: []string{"zip"}})
	if err != nil || len(written) != 1 || !strings.HasSuffix(written[0], "demo.zip") {
		t.Fatalf("zip: %v %v", written, err)
	}
}
