/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"layoutquote/internal/domain"
	"layoutquote/internal/pricing"
	"layoutquote/internal/scene"
	"layoutquote/internal/scenefile"
	"layoutquote/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls batch export across formats.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under <workspace>/exports/<OutDir or preset>/.
//   - Files are named <name>-quote.pdf, <name>-plan.png, <name>-plan.svg,
//     <name>-quote.json and <name>.zip.
type BatchOptions struct {
	Preset      PresetName
	Formats     []string // allowed: pdf, png, svg, json, zip; empty means preset defaults
	OutDir      string
	FontPath    string
	SizePx      int   // when > 0 overrides the preset's raster size
	IncludeGrid *bool // when set, overrides the preset's default
}

// BatchExport renders the scene with the formats of a preset and returns
// the written paths.
func BatchExport(ws *storage.Workspace, name string, s *scene.Scene, opt BatchOptions) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("scene is nil: %w", domain.ErrInvalidInput)
	}
	if err := storage.ValidName(name); err != nil {
		return nil, err
	}

	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if !filepath.IsAbs(baseOut) {
		if ws == nil {
			return nil, fmt.Errorf("relative output %q needs a workspace: %w", baseOut, domain.ErrInvalidInput)
		}
		baseOut = filepath.Join(ws.ExportsDir(), baseOut)
	}
	if err := os.MkdirAll(baseOut, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}

	grid := presetIncludeGrid(opt.Preset)
	if opt.IncludeGrid != nil {
		grid = *opt.IncludeGrid
	}
	size := presetSize(opt.Preset)
	if opt.SizePx > 0 {
		size = opt.SizePx
	}
	pngOpt := PNGOptions{Size: size, IncludeGrid: grid, FontPath: opt.FontPath}

	plan := PlanOf(s)
	quote := pricing.Compute(s)
	var written []string
	for _, f := range formats {
		var out string
		var err error
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "pdf":
			out = filepath.Join(baseOut, name+"-quote.pdf")
			err = ExportQuotePDF(quote, out, PDFOptions{FontPath: opt.FontPath})
		case "png":
			out = filepath.Join(baseOut, name+"-plan.png")
			err = ExportPlanPNG(plan, out, pngOpt)
		case "svg":
			out = filepath.Join(baseOut, name+"-plan.svg")
			err = ExportPlanSVG(plan, out, SVGOptions{SizePx: size, IncludeGrid: grid})
		case "json":
			out = filepath.Join(baseOut, name+"-quote.json")
			err = writeJSONFile(out, quote)
		case "zip":
			out = filepath.Join(baseOut, name+".zip")
			var doc []byte
			doc, err = scenefile.Encode(scenefile.Serialize(s))
			if err == nil {
				err = ExportBundle(Bundle{Name: name, Plan: plan, Quote: quote, Document: doc}, out, pngOpt)
			}
		default:
			return written, fmt.Errorf("unknown format %q: %w", f, domain.ErrInvalidInput)
		}
		if err != nil {
			return written, fmt.Errorf("%s export: %w", f, err)
		}
		written = append(written, out)
	}
	return written, nil
}

func writeJSONFile(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg", "json"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"pdf"}
	}
}

func presetIncludeGrid(p PresetName) bool {
	switch p {
	case PresetWeb:
		return false
	default:
		return true
	}
}

func presetSize(p PresetName) int {
	if p == PresetPrint {
		return 2048
	}
	return 1024
}
