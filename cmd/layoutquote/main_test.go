/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"layoutquote/internal/config"
	applog "layoutquote/internal/log"
	"layoutquote/internal/pricing"
)

const storeScene = `{
  "areaWidth": 2000,
  "objects": [
    {"presetName": "상자", "category": "디자인물", "price": 7000, "position": [200, 50, -200], "rotation": [0, 0, 0], "scale": [1, 1, 1], "color": "#ff0000"},
    {"presetName": "구", "category": "디자인물", "price": 10000, "position": [-300, 50, 300], "rotation": [0, 0, 0], "scale": [1, 1, 1]}
  ]
}`

type nopEvents struct{}

func (nopEvents) Event(string, map[string]any) {}

func newCLI() (*cli, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return &cli{cfg: config.Defaults(), out: &out, errOut: &errOut, events: nopEvents{}, log: applog.Discard()}, &out, &errOut
}

func writeScene(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(p, []byte(storeScene), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestVersionAndUsage(t *testing.T) {
	c, out, _ := newCLI()
	if code := c.run(context.Background(), []string{"version"}); code != 0 || strings.TrimSpace(out.String()) == "" {
		t.Fatalf("version: code=%d out=%q", code, out)
	}
	c, _, errOut := newCLI()
	if code := c.run(context.Background(), []string{"frobnicate"}); code != 2 || !strings.Contains(errOut.String(), "Usage:") {
		t.Fatalf("unknown command: code=%d err=%q", code, errOut)
	}
	c, _, _ = newCLI()
	if code := c.run(context.Background(), []string{"quote"}); code != 2 {
		t.Fatalf("missing argument must be a usage error, got %d", code)
	}
}

func TestCatalogCommand(t *testing.T) {
	c, out, _ := newCLI()
	if code := c.run(context.Background(), []string{"catalog", "집기"}); code != 0 {
		t.Fatalf("catalog failed")
	}
	s := out.String()
	if !strings.Contains(s, "1200 모델") || strings.Contains(s, "상자") {
		t.Fatalf("unexpected listing:\n%s", s)
	}
	c, _, _ = newCLI()
	if code := c.run(context.Background(), []string{"catalog", "없음"}); code != 1 {
		t.Fatalf("unknown category must fail, got %d", code)
	}
}

func TestQuoteCommand(t *testing.T) {
	path := writeScene(t)
	c, out, _ := newCLI()
	if code := c.run(context.Background(), []string{"quote", path}); code != 0 {
		t.Fatalf("quote failed")
	}
	if !strings.Contains(out.String(), "Total: 17,000원") {
		t.Fatalf("unexpected quote output:\n%s", out)
	}

	c, out, _ = newCLI()
	if code := c.run(context.Background(), []string{"quote", path, "--json"}); code != 0 {
		t.Fatalf("quote --json failed")
	}
	var q pricing.Quote
	if err := json.Unmarshal(out.Bytes(), &q); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if q.Total != 17000 || len(q.Lines) != 2 {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestQuoteRejectsCorruptScene(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(p, []byte(`{"objects": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	c, _, errOut := newCLI()
	if code := c.run(context.Background(), []string{"quote", p}); code != 1 || !strings.Contains(errOut.String(), "Error:") {
		t.Fatalf("corrupt scene: code=%d err=%q", code, errOut)
	}
}

func TestExportCommand(t *testing.T) {
	path := writeScene(t)
	outDir := t.TempDir()
	c, out, _ := newCLI()
	if code := c.run(context.Background(), []string{"export", path, outDir, "web"}); code != 0 {
		t.Fatalf("export failed")
	}
	for _, f := range []string{"store-plan.png", "store-plan.svg", "store-quote.json"} {
		if _, err := os.Stat(filepath.Join(outDir, f)); err != nil {
			t.Fatalf("missing %s: %v\n%s", f, err, out)
		}
	}
	c, _, _ = newCLI()
	if code := c.run(context.Background(), []string{"export", path, outDir, "poster"}); code != 1 {
		t.Fatalf("unknown preset must fail, got %d", code)
	}
}

func TestSaveAndHistory(t *testing.T) {
	path := writeScene(t)
	root := t.TempDir()
	c, out, errOut := newCLI()
	if code := c.run(context.Background(), []string{"save", root, path, "매장"}); code != 0 {
		t.Fatalf("save failed: %s", errOut)
	}
	if !strings.Contains(out.String(), "17,000원") {
		t.Fatalf("unexpected save output %q", out)
	}
	if _, err := os.Stat(filepath.Join(root, "scenes", "매장.json")); err != nil {
		t.Fatalf("scene file missing: %v", err)
	}

	c, out, _ = newCLI()
	if code := c.run(context.Background(), []string{"history", root}); code != 0 {
		t.Fatalf("history failed")
	}
	if !strings.Contains(out.String(), "매장") {
		t.Fatalf("project not listed:\n%s", out)
	}

	c, out, _ = newCLI()
	if code := c.run(context.Background(), []string{"history", root, "매장"}); code != 0 {
		t.Fatalf("history of scene failed")
	}
	if strings.Count(out.String(), "\n") != 2 {
		t.Fatalf("expected header and one version:\n%s", out)
	}

	c, _, _ = newCLI()
	if code := c.run(context.Background(), []string{"history", root, "없음"}); code != 1 {
		t.Fatalf("unknown scene must fail, got %d", code)
	}
}
