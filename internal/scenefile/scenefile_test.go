/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scenefile

import (
	"errors"
	"strings"
	"testing"

	"layoutquote/internal/catalog"
	"layoutquote/internal/domain"
	"layoutquote/internal/pricing"
	"layoutquote/internal/scene"
	"layoutquote/internal/vector"
)

type meshMap map[string]domain.MeshInfo

func (m meshMap) Mesh(url string) (domain.MeshInfo, bool) {
	mi, ok := m[url]
	return mi, ok
}

var legs = domain.MeshInfo{Bounds: vector.Box3{Min: vector.V(-0.6, 0, -0.2), Max: vector.V(0.6, 0.9, 0.2)}}

func buildScene(t *testing.T) (*scene.Scene, *catalog.Catalog) {
	t.Helper()
	c := catalog.Builtin()
	s, _ := scene.NewWithAreaWidth(3640)
	box, _ := c.Lookup(catalog.CategoryDesign, "상자")
	sphere, _ := c.Lookup(catalog.CategoryDesign, "구")
	model, _ := c.Lookup(catalog.CategoryFixture, "1200 모델")

	b, _ := s.Place(box)
	_ = s.Resize(b.ID, vector.AxisX, 250)
	_ = s.MoveOnFloor(b.ID, 120.5, -300)
	_ = s.SetColor(b.ID, domain.MustColor("#ff8800"))
	sp, _ := s.Place(sphere)
	_ = s.Rotate(sp.ID, 0.7, -0.2)
	_ = s.SetVerticalPosition(sp.ID, 400)
	m, _ := s.PlaceMesh(model, legs)
	_ = s.Resize(m.ID, vector.AxisX, 1500)
	return s, c
}

func TestSerializeRebuildRoundTrip(t *testing.T) {
	s, c := buildScene(t)
	if _, err := s.AddPending(mustItem(t, c, catalog.CategoryFixture, "1500 모델"), nil); err != nil {
		t.Fatal(err)
	}
	data, err := Encode(Serialize(s))
	if err != nil {
		t.Fatal(err)
	}
	got, skips, err := Load(data, c, meshMap{mustItem(t, c, catalog.CategoryFixture, "1200 모델").URL: legs})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(skips) != 0 {
		t.Fatalf("unexpected skips %v", skips)
	}
	if got.AreaWidth() != 3640 || got.Len() != s.Len() {
		t.Fatalf("area %v count %d, want 3640 and %d", got.AreaWidth(), got.Len(), s.Len())
	}
	if len(got.Pending()) != 0 {
		t.Fatalf("pending placements must not be serialized")
	}
	if pricing.Total(got) != pricing.Total(s) {
		t.Fatalf("total %d, want %d", pricing.Total(got), pricing.Total(s))
	}
	for i, want := range s.Instances() {
		in := got.Instances()[i]
		if in.Item.Key() != want.Item.Key() {
			t.Fatalf("#%d item %s, want %s", i, in.Item.Key(), want.Item.Key())
		}
		if !in.Position.ApproxEqual(want.Position, 1e-9) || !in.Scale.ApproxEqual(want.Scale, 1e-9) {
			t.Fatalf("#%d transform mismatch: %+v vs %+v", i, in, want)
		}
		if in.Rotation != want.Rotation || in.Color != want.Color {
			t.Fatalf("#%d rotation/color mismatch: %+v vs %+v", i, in, want)
		}
	}
	if _, ok := got.Selected(); ok {
		t.Fatalf("a loaded scene has no selection")
	}
}

func TestRebuildLeavesUncachedMeshesPending(t *testing.T) {
	s, c := buildScene(t)
	doc := Serialize(s)
	got, _, err := Rebuild(doc, c, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 2 || len(got.Pending()) != 1 {
		t.Fatalf("want 2 instances and 1 pending, got %d and %d", got.Len(), len(got.Pending()))
	}
	p := got.Pending()[0]
	if p.Placement == nil || p.Placement.Scale.X != 1250 {
		t.Fatalf("pending placement should carry the stored transform, got %+v", p.Placement)
	}
}

func TestUnknownPresetIsSkipped(t *testing.T) {
	c := catalog.Builtin()
	doc := `{"areaWidth": 2000, "objects": [
	  {"presetName":"상자","category":"디자인물","price":7000,"position":[0,50,0],"rotation":[0,0,0],"scale":[1,1,1],"color":"#3399ff"},
	  {"presetName":"냉장고","category":"집기","price":1,"position":[0,0,0],"rotation":[0,0,0],"scale":[1,1,1]},
	  {"presetName":"구","category":"디자인물","price":10000,"position":[100,50,0],"rotation":[0,0,0,"XYZ"],"scale":[1,1,1],"color":"#00ff00"},
	  {"presetName":"원","category":"디자인물","price":5000,"position":[0,5,100],"rotation":[0,0,0],"scale":[2,1,2]}
	]}`
	s, skips, err := Load([]byte(doc), c, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("want 3 instances, got %d", s.Len())
	}
	if len(skips) != 1 || skips[0].Index != 1 || !errors.Is(skips[0].Err, domain.ErrNotFound) {
		t.Fatalf("unexpected skips %v", skips)
	}
	if s.HalfExtent() != 1000 {
		t.Fatalf("half extent %v, want 1000", s.HalfExtent())
	}
	disc := s.Instances()[2]
	if disc.Color != disc.Item.Color {
		t.Fatalf("missing color should fall back to the catalog color")
	}
	if pricing.Total(s) != 22000 {
		t.Fatalf("price must come from the catalog, total %d", pricing.Total(s))
	}
}

func TestCorruptDocuments(t *testing.T) {
	c := catalog.Builtin()
	cases := map[string]string{
		"not json":        `{"areaWidth": 10, "objects": [`,
		"missing objects": `{"areaWidth": 10}`,
		"zero area":       `{"areaWidth": 0, "objects": []}`,
		"short position":  `{"areaWidth": 10, "objects": [{"presetName":"상자","category":"디자인물","position":[0,0],"rotation":[0,0,0],"scale":[1,1,1]}]}`,
		"bad order":       `{"areaWidth": 10, "objects": [{"presetName":"상자","category":"디자인물","position":[0,0,0],"rotation":[0,0,0,"ZYX"],"scale":[1,1,1]}]}`,
		"bad color":       `{"areaWidth": 10, "objects": [{"presetName":"상자","category":"디자인물","position":[0,0,0],"rotation":[0,0,0],"scale":[1,1,1],"color":"blue"}]}`,
		"unknown field":   `{"areaWidth": 10, "objects": [], "camera": {}}`,
		"string number":   `{"areaWidth": "10", "objects": []}`,
		"stretched model": `{"areaWidth": 10, "objects": [{"presetName":"1200 모델","category":"집기","position":[0,0,0],"rotation":[0,0,0],"scale":[1000,1500,1000]}]}`,
	}
	for name, doc := range cases {
		s, _, err := Load([]byte(doc), c, nil)
		if !errors.Is(err, domain.ErrCorruptDocument) {
			t.Errorf("%s: expected ErrCorruptDocument, got %v", name, err)
		}
		if s != nil {
			t.Errorf("%s: no scene may be returned on failure", name)
		}
	}
}

func TestEncodeIsIndentedThreeElementRotation(t *testing.T) {
	s, _ := buildScene(t)
	data, err := Encode(Serialize(s))
	if err != nil {
		t.Fatal(err)
	}
	txt := string(data)
	if !strings.Contains(txt, "\n  \"objects\": [") {
		t.Fatalf("expected indented output:\n%s", txt)
	}
	if strings.Contains(txt, "XYZ") {
		t.Fatalf("rotation order suffix must not be written")
	}
	if _, err := Decode(data); err != nil {
		t.Fatalf("encoded output must validate: %v", err)
	}
	if len(Schema()) == 0 {
		t.Fatalf("schema must be embedded")
	}
}

func mustItem(t *testing.T, c *catalog.Catalog, cat, name string) catalog.Item {
	t.Helper()
	it, err := c.Lookup(cat, name)
	if err != nil {
		t.Fatal(err)
	}
	return it
}
