package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a landscape table, one page per week
// when the dataset carries a "week" column.
type PDFExporter struct {
	widths map[string]float64
}

// NewPDFExporter constructs a PDF exporter. widths optionally fixes the width
// in millimetres of named columns; the rest share what is left.
func NewPDFExporter(widths map[string]float64) *PDFExporter {
	return &PDFExporter{widths: widths}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	// Core fonts are cp1252; labels arrive as UTF-8.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	widths := e.columnWidths(data.Headers, 277)

	header := func() {
		if title != "" {
			pdf.SetFont("Arial", "B", 13)
			pdf.CellFormat(0, 9, tr(title), "", 1, "L", false, 0, "")
			pdf.Ln(2)
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}

	pdf.AddPage()
	header()
	week := ""
	for _, row := range data.Rows {
		if w, ok := row["week"]; ok && week != "" && w != week {
			pdf.AddPage()
			header()
		}
		week = row["week"]
		for i, h := range data.Headers {
			pdf.CellFormat(widths[i], 6, tr(row[h]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) columnWidths(headers []string, total float64) []float64 {
	widths := make([]float64, len(headers))
	remaining := total
	flexible := 0
	for i, h := range headers {
		if w, ok := e.widths[h]; ok && w > 0 {
			widths[i] = w
			remaining -= w
			continue
		}
		flexible++
	}
	if flexible == 0 {
		return widths
	}
	share := remaining / float64(flexible)
	if share < 10 {
		share = 10
	}
	for i := range widths {
		if widths[i] == 0 {
			widths[i] = share
		}
	}
	return widths
}
