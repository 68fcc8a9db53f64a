package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth   = 277.0
	labelWidth  = 25.0
	lineHeight  = 4.5
	minRowLines = 3
)

// PDFExporter renders grids into a landscape A4 table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render draws the title, a header row of column labels and one bordered row per grid row.
func (e *PDFExporter) Render(grid Grid) ([]byte, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()

	if grid.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, grid.Title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	colWidth := (pageWidth - labelWidth) / float64(len(grid.Columns))

	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(labelWidth, 10, grid.Corner, "1", 0, "C", true, 0, "")
	for _, column := range grid.Columns {
		pdf.CellFormat(colWidth, 10, column, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 7)
	for i, label := range grid.Rows {
		lines := minRowLines
		for _, cell := range grid.Cells[i] {
			if n := len(pdf.SplitLines([]byte(cell), colWidth-2)); n > lines {
				lines = n
			}
		}
		height := float64(lines) * lineHeight

		x, y := pdf.GetXY()
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(labelWidth, height, label, "1", 0, "C", false, 0, "")
		pdf.SetFont("Arial", "", 7)
		for j, cell := range grid.Cells[i] {
			cx := x + labelWidth + float64(j)*colWidth
			pdf.Rect(cx, y, colWidth, height, "D")
			pdf.SetXY(cx+1, y+0.5)
			pdf.MultiCell(colWidth-2, lineHeight, strings.TrimSpace(cell), "", "C", false)
		}
		pdf.SetXY(x, y+height)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
