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
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	applog "layoutquote/internal/log"
	"layoutquote/internal/pricing"
)

// PDFOptions controls the quote document.
// Without FontPath the core Helvetica font is used with English headings;
// Hangul item names then only render with a UTF-8 TTF such as Noto Sans KR.
type PDFOptions struct {
	FontPath string
	Title    string
	Date     time.Time // zero means now
}

type quoteLabels struct {
	title, total, name, category, price, position string
}

var (
	labelsKO = quoteLabels{"견적서", "총 견적", "이름", "카테고리", "가격", "위치(x, y, z)"}
	labelsEN = quoteLabels{"Quote", "Total", "Name", "Category", "Price", "Position (x, y, z)"}
)

// column widths in mm; they add up to the A4 width minus margins
var quoteCols = [4]float64{60, 35, 35, 60}

// WriteQuotePDF renders an A4 portrait quote: title, total, category
// subtotals and one table row per priced instance.
func WriteQuotePDF(q pricing.Quote, w io.Writer, opt PDFOptions) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	date := opt.Date
	if date.IsZero() {
		date = time.Now()
	}
	pdf.SetCreationDate(date)
	pdf.SetAuthor("layoutquote", true)

	family := "Helvetica"
	lb := labelsEN
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if opt.FontPath != "" {
		family = "quote"
		pdf.AddUTF8Font(family, "", opt.FontPath)
		pdf.AddUTF8Font(family, "B", opt.FontPath)
		lb = labelsKO
		tr = func(s string) string { return s }
	} else {
		applog.WithOperation(applog.WithComponent("export"), "quote_pdf").
			Debug("no UTF-8 font configured, using core font", slog.Int("lines", len(q.Lines)))
	}
	title := opt.Title
	if title == "" {
		title = lb.title
	}
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont(family, "B", 18)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont(family, "B", 13)
	pdf.CellFormat(0, 8, tr(lb.total+": "+pricing.FormatWon(q.Total)), "", 1, "L", false, 0, "")
	pdf.SetFont(family, "", 11)
	if s := q.Summary(); s != "" {
		pdf.MultiCell(0, 6, tr(s), "", "L", false)
	}
	pdf.SetFont(family, "", 9)
	pdf.CellFormat(0, 6, date.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(family, "B", 11)
	pdf.SetFillColor(0xf0, 0xf0, 0xf0)
	for i, h := range []string{lb.name, lb.category, lb.price, lb.position} {
		pdf.CellFormat(quoteCols[i], 8, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 10)
	for _, ln := range q.Lines {
		pos := fmt.Sprintf("%.1f, %.1f, %.1f", ln.Position.X, ln.Position.Y, ln.Position.Z)
		pdf.CellFormat(quoteCols[0], 7, tr(ln.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(quoteCols[1], 7, tr(ln.Category), "1", 0, "L", false, 0, "")
		pdf.CellFormat(quoteCols[2], 7, tr(pricing.FormatWon(ln.Price)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(quoteCols[3], 7, pos, "1", 1, "R", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportQuotePDF writes the quote to outPath, creating parent directories.
func ExportQuotePDF(q pricing.Quote, outPath string, opt PDFOptions) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := WriteQuotePDF(q, f, opt); err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close pdf: %w", err)
	}
	return nil
}
