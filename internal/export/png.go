/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// PNGOptions controls floor plan rasterization.
// - Size: edge length of the square image in pixels (default 1024)
// - IncludeGrid: draw a 500mm floor grid
// - FontPath: TTF/OTF used for labels; the built-in 7x13 face only covers ASCII
type PNGOptions struct {
	Size        int
	IncludeGrid bool
	FontPath    string
	NoLabels    bool
}

var (
	floorColor  = color.RGBA{R: 0xf4, G: 0xf4, B: 0xf4, A: 0xff}
	gridColor   = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	strokeColor = color.RGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
)

// RenderPlan draws the top-down floor plan. Screen up is -Z, matching the
// editor's top view.
func RenderPlan(p Plan, opt PNGOptions) (*image.RGBA, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	size := opt.Size
	if size <= 0 {
		size = 1024
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: floorColor}, image.Point{}, draw.Src)

	scale := float64(size) / p.AreaWidth
	half := p.AreaWidth / 2
	toPx := func(v float64) int { return int(math.Round((v + half) * scale)) }

	if opt.IncludeGrid {
		for v := -half + gridStep; v < half; v += gridStep {
			x := toPx(v)
			for y := 0; y < size; y++ {
				img.SetRGBA(x, y, gridColor)
				img.SetRGBA(y, x, gridColor)
			}
		}
	}
	strokeRect(img, 0, 0, size-1, size-1, strokeColor)

	var face font.Face
	if !opt.NoLabels {
		f, err := loadFace(opt.FontPath, 12)
		if err != nil {
			return nil, err
		}
		face = f
	}

	for _, fp := range p.footprints() {
		x0, y0 := toPx(fp.MinX), toPx(fp.MinZ)
		x1, y1 := toPx(fp.MaxX)-1, toPx(fp.MaxZ)-1
		fill := color.NRGBA{R: fp.Color.R, G: fp.Color.G, B: fp.Color.B, A: 0xc0}
		if fp.Round {
			fillEllipse(img, x0, y0, x1, y1, fill)
		} else {
			draw.Draw(img, image.Rect(x0, y0, x1+1, y1+1), &image.Uniform{C: fill}, image.Point{}, draw.Over)
		}
		strokeRect(img, x0, y0, x1, y1, strokeColor)
		if face != nil && fp.Label != "" {
			drawLabel(img, face, fp.Label, (x0+x1)/2, (y0+y1)/2)
		}
	}
	return img, nil
}

// WritePlanPNG encodes the plan to w.
func WritePlanPNG(p Plan, w io.Writer, opt PNGOptions) error {
	img, err := RenderPlan(p, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// ExportPlanPNG writes the plan to outPath, creating parent directories.
func ExportPlanPNG(p Plan, outPath string, opt PNGOptions) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := WritePlanPNG(p, f, opt); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

func loadFace(path string, sizePt float64) (font.Face, error) {
	if path == "" {
		return basicfont.Face7x13, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: sizePt, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	return face, nil
}

// drawLabel centers s on (cx, cy).
func drawLabel(img *image.RGBA, face font.Face, s string, cx, cy int) {
	d := &font.Drawer{Dst: img, Src: image.NewUniform(strokeColor), Face: face}
	w := d.MeasureString(s).Round()
	m := face.Metrics()
	h := (m.Ascent - m.Descent).Round()
	d.Dot = fixed.P(cx-w/2, cy+h/2)
	d.DrawString(s)
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	// top and bottom
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	// left and right
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

// fillEllipse blends col over the ellipse inscribed in the box.
func fillEllipse(img *image.RGBA, x0, y0, x1, y1 int, col color.NRGBA) {
	cx, cy := float64(x0+x1)/2, float64(y0+y1)/2
	rx, ry := float64(x1-x0+1)/2, float64(y1-y0+1)/2
	if rx <= 0 || ry <= 0 {
		return
	}
	src := &image.Uniform{C: col}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx, dy := (float64(x)-cx)/rx, (float64(y)-cy)/ry
			if dx*dx+dy*dy <= 1 {
				draw.Draw(img, image.Rect(x, y, x+1, y+1), src, image.Point{}, draw.Over)
			}
		}
	}
}
