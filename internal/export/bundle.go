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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"layoutquote/internal/pricing"
	"layoutquote/internal/version"
)

// Bundle is everything needed to share a layout: the plan, the quote and
// the scene document that reproduces it.
type Bundle struct {
	Name     string
	Plan     Plan
	Quote    pricing.Quote
	Document []byte
}

// Manifest describes the contents of a bundle archive.
type Manifest struct {
	Name      string    `json:"name"`
	Total     int64     `json:"total_price"`
	Objects   int       `json:"objects"`
	CreatedAt time.Time `json:"created_at"`
	Generator string    `json:"generator"`
	Files     []string  `json:"files"`
}

// ExportBundle writes a zip archive with plan.png, plan.svg, quote.json,
// scene.json and manifest.json.
func ExportBundle(b Bundle, outPath string, png PNGOptions) error {
	if !strings.HasSuffix(strings.ToLower(outPath), ".zip") {
		outPath = outPath + ".zip"
	}
	var imgBuf bytes.Buffer
	if err := WritePlanPNG(b.Plan, &imgBuf, png); err != nil {
		return err
	}
	svg, err := RenderPlanSVG(b.Plan, SVGOptions{SizePx: png.Size, IncludeGrid: png.IncludeGrid})
	if err != nil {
		return err
	}
	quote, err := json.MarshalIndent(b.Quote, "", "  ")
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	entries := []zipEntry{
		{"plan.png", imgBuf.Bytes()},
		{"plan.svg", svg},
		{"quote.json", quote},
	}
	if len(b.Document) > 0 {
		entries = append(entries, zipEntry{"scene.json", b.Document})
	}

	man := Manifest{
		Name:      b.Name,
		Total:     b.Quote.Total,
		Objects:   len(b.Quote.Lines),
		CreatedAt: time.Now().UTC(),
		Generator: "layoutquote " + version.String(),
	}
	for _, e := range entries {
		man.Files = append(man.Files, e.name)
	}
	manifest, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	zw, f, err := createZip(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	for _, e := range entries {
		if err := addZipFile(zw, e.name, e.data); err != nil {
			return fmt.Errorf("zip add %s: %w", e.name, err)
		}
	}
	if err := addZipFile(zw, "manifest.json", manifest); err != nil {
		return fmt.Errorf("zip add manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return f.Close()
}

type zipEntry struct {
	name string
	data []byte
}

func createZip(outPath string) (*zip.Writer, *os.File, error) {
	// Ensure directory exists
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("create zip: %w", err)
	}
	return zip.NewWriter(f), f, nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
