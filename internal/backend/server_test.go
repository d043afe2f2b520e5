/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"layoutquote/internal/catalog"
	"layoutquote/internal/domain"
	"layoutquote/internal/version"
)

const sceneDoc = `{"areaWidth":3640,"objects":[
 {"presetName":"상자","category":"디자인물","price":7000,"position":[0,50,0],"rotation":[0,0,0],"scale":[1,1,1]},
 {"presetName":"구","category":"디자인물","price":10000,"position":[300,50,0],"rotation":[0,0,0,"XYZ"],"scale":[1,1,1]}
]}`

func newTestClient(t *testing.T, st Store) *Client {
	t.Helper()
	srv := httptest.NewServer(NewHandler(st))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", "")
}

func TestHealthAndVersion(t *testing.T) {
	st := newMemStore()
	srv := httptest.NewServer(NewHandler(st))
	defer srv.Close()

	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready", "/version": version.String()} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		b, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK || string(b) != want {
			t.Fatalf("GET %s: status=%d body=%q", path, resp.StatusCode, b)
		}
	}

	st.setPingErr(errors.New("down"))
	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing db: %d", resp.StatusCode)
	}
}

func TestProjectRoundTrip(t *testing.T) {
	c := newTestClient(t, newMemStore())
	ctx := context.Background()

	id, err := c.SaveProject(ctx, "매장 A", []byte(sceneDoc), 17000)
	if err != nil || id == "" {
		t.Fatalf("save: id=%q err=%v", id, err)
	}
	if _, err := c.SaveProject(ctx, "매장 B", []byte(`{"areaWidth":2000,"objects":[]}`), 0); err != nil {
		t.Fatalf("save second: %v", err)
	}

	list, err := c.ListProjects(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "매장 B" || list[1].Objects != 2 || list[1].TotalPrice != 17000 {
		t.Fatalf("unexpected list: %+v", list)
	}
	if one, _ := c.ListProjects(ctx, 1); len(one) != 1 {
		t.Fatalf("limit not applied: %d", len(one))
	}

	rec, err := c.GetProject(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Name != "매장 A" || !strings.Contains(string(rec.Document), `"presetName":"상자"`) {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestProjectErrorsMapToTaxonomy(t *testing.T) {
	c := newTestClient(t, newMemStore())
	ctx := context.Background()

	if _, err := c.GetProject(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.SaveProject(ctx, "", []byte(sceneDoc), 1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("blank name: expected ErrInvalidInput, got %v", err)
	}
	if _, err := c.SaveProject(ctx, "x", []byte(`{"objects":[]}`), 1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("corrupt document: expected 400, got %v", err)
	}
	if _, err := c.SaveProject(ctx, "x", []byte(sceneDoc), -5); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("negative total: expected ErrInvalidInput, got %v", err)
	}
}

func TestInvalidLimit(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newMemStore()))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/api/projects?limit=abc")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPresetCRUDFeedsCatalog(t *testing.T) {
	c := newTestClient(t, newMemStore())
	ctx := context.Background()

	shelf := catalog.Item{
		Name: "선반", Category: catalog.CategoryFixture, Kind: catalog.KindBox,
		Footprint: catalog.Size{Width: 1200, Height: 900, Depth: 400},
		Color:     domain.MustColor("#cccccc"), Fixed: true, Price: 120000,
	}
	p, err := c.CreatePreset(ctx, shelf)
	if err != nil || p.ID == "" {
		t.Fatalf("create: %+v err=%v", p, err)
	}
	if _, err := c.CreatePreset(ctx, shelf); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate: expected ErrConflict, got %v", err)
	}
	bad := shelf
	bad.Name = "음수"
	bad.Price = -1
	if _, err := c.CreatePreset(ctx, bad); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("invalid preset: expected ErrInvalidInput, got %v", err)
	}

	cat, err := c.Catalog(ctx)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	got, err := cat.Lookup(catalog.CategoryFixture, "선반")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Price != 120000 || got.Color.Hex() != "#cccccc" || !got.Fixed || got.Footprint.Width != 1200 {
		t.Fatalf("preset did not survive the wire: %+v", got)
	}

	if err := c.DeletePreset(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.DeletePreset(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(NewHandler(newMemStore()))
	defer srv.Close()
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/api/projects", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestBearerTokenForwarded(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, []Preset{})
	}))
	defer srv.Close()
	if _, err := NewClient(srv.URL, "secret").ListPresets(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got != "Bearer secret" {
		t.Fatalf("authorization header = %q", got)
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := parseVersion("migrations/0002_project_objects.sql"); err != nil || v != 2 {
		t.Fatalf("v=%d err=%v", v, err)
	}
	if _, err := parseVersion("init.sql"); err == nil {
		t.Fatalf("expected error for filename without version")
	}
	files, err := migrationFiles()
	if err != nil || len(files) != 2 || files[0] != "0001_init.sql" {
		t.Fatalf("embedded migrations: %v err=%v", files, err)
	}
}
