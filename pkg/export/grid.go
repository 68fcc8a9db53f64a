// Package export renders weekly timetable grids as CSV or PDF documents.
package export

import "fmt"

// Grid is a day-by-period table. Cells[i][j] belongs to Rows[i] and Columns[j];
// a cell may hold several lines separated by "\n".
type Grid struct {
	Title   string
	Corner  string
	Columns []string
	Rows    []string
	Cells   [][]string
}

// Validate checks that every row has one cell per column.
func (g Grid) Validate() error {
	if len(g.Columns) == 0 {
		return fmt.Errorf("grid requires at least one column")
	}
	if len(g.Cells) != len(g.Rows) {
		return fmt.Errorf("grid has %d rows but %d cell rows", len(g.Rows), len(g.Cells))
	}
	for i, row := range g.Cells {
		if len(row) != len(g.Columns) {
			return fmt.Errorf("grid row %q has %d cells, want %d", g.Rows[i], len(row), len(g.Columns))
		}
	}
	return nil
}
