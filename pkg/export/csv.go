package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// CSVExporter renders grids into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render writes a header of column labels followed by one record per row.
// Multi-line cells are joined with " | ".
func (e *CSVExporter) Render(grid Grid) ([]byte, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	header := append([]string{grid.Corner}, grid.Columns...)
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for i, label := range grid.Rows {
		record := make([]string, 0, len(grid.Columns)+1)
		record = append(record, label)
		for _, cell := range grid.Cells[i] {
			record = append(record, strings.ReplaceAll(cell, "\n", " | "))
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
