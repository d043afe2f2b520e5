/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// SVGOptions controls SVG export behavior.
// The coordinate system is the floor in millimeters with the origin at the
// top-left corner; width/height attributes use SizePx.
type SVGOptions struct {
	SizePx      int
	IncludeGrid bool
}

// RenderPlanSVG returns the floor plan as an SVG document.
func RenderPlanSVG(p Plan, opt SVGOptions) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	px := opt.SizePx
	if px <= 0 {
		px = 1024
	}
	a := p.AreaWidth
	half := a / 2

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%dpx\" height=\"%dpx\" viewBox=\"0 0 %g %g\">\n", px, px, a, a)
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"#f4f4f4\" stroke=\"#222222\" stroke-width=\"%g\"/>\n", a, a, a/500)

	if opt.IncludeGrid {
		wf("  <g stroke=\"#dddddd\" stroke-width=\"%g\">\n", a/1000)
		for v := gridStep; v < a; v += gridStep {
			wf("    <line x1=\"%g\" y1=\"0\" x2=\"%g\" y2=\"%g\"/>\n", v, v, a)
			wf("    <line x1=\"0\" y1=\"%g\" x2=\"%g\" y2=\"%g\"/>\n", v, a, v)
		}
		wf("  </g>\n")
	}

	fontSize := a / 60
	for _, fp := range p.footprints() {
		x, y := fp.MinX+half, fp.MinZ+half
		w, h := fp.MaxX-fp.MinX, fp.MaxZ-fp.MinZ
		fill := fp.Color.Hex()
		if fp.Round {
			wf("  <ellipse cx=\"%g\" cy=\"%g\" rx=\"%g\" ry=\"%g\" fill=\"%s\" fill-opacity=\"0.75\" stroke=\"#222222\" stroke-width=\"%g\"/>\n",
				x+w/2, y+h/2, w/2, h/2, fill, a/1000)
		} else {
			wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\" fill-opacity=\"0.75\" stroke=\"#222222\" stroke-width=\"%g\"/>\n",
				x, y, w, h, fill, a/1000)
		}
		if fp.Label != "" {
			wf("  <text x=\"%g\" y=\"%g\" font-family=\"%s\" font-size=\"%g\" text-anchor=\"middle\" dominant-baseline=\"middle\" fill=\"#000\">%s</text>\n",
				x+w/2, y+h/2, escAttr("Noto Sans KR, sans-serif"), fontSize, escText(fp.Label))
		}
	}

	wf("</svg>\n")
	if werr != nil {
		return nil, fmt.Errorf("build svg: %w", werr)
	}
	return buf.Bytes(), nil
}

// ExportPlanSVG writes the plan to outPath, creating parent directories.
func ExportPlanSVG(p Plan, outPath string, opt SVGOptions) error {
	b, err := RenderPlanSVG(p, opt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func escAttr(s string) string {
	// naive escaping sufficient for our simple usage
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, '&', 'q', 'u', 'o', 't', ';')
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, '&', 'a', 'm', 'p', ';')
		case '<':
			out = append(out, '&', 'l', 't', ';')
		case '>':
			out = append(out, '&', 'g', 't', ';')
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
