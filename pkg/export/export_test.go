package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGrid() Grid {
	return Grid{
		Title:   "Dr. Rao - 2024-2025 / 5",
		Corner:  "Day",
		Columns: []string{"P1 09:00-09:50", "P2 09:50-10:40"},
		Rows:    []string{"MONDAY", "TUESDAY"},
		Cells: [][]string{
			{"CS3011\nCSE-2022 A", ""},
			{"", "CS3051\nCSE-2022"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleGrid())
	require.NoError(t, err)
	assert.Equal(t, "Day,P1 09:00-09:50,P2 09:50-10:40\nMONDAY,CS3011 | CSE-2022 A,\nTUESDAY,,CS3051 | CSE-2022\n", string(out))
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleGrid())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestGridValidate(t *testing.T) {
	grid := sampleGrid()
	grid.Cells[1] = []string{"only one"}
	assert.Error(t, grid.Validate())

	_, err := NewCSVExporter().Render(Grid{})
	assert.Error(t, err)
}
