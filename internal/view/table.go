package view

import "github.com/sagar-developer08/idp/internal/domain/detail"

// TableColumns returns the column names of a table, taken from its first row only.
// A table without rows has no columns.
func TableColumns(t detail.Table) []string {
	if len(t.Rows) == 0 {
		return []string{}
	}
	keys := t.Rows[0].Keys()
	cols := make([]string, len(keys))
	copy(cols, keys)
	return cols
}

// Grid is a table laid out against a fixed column set.
type Grid struct {
	Columns    []string   `json:"columns"`
	Cells      [][]string `json:"cells"`
	Confidence *float64   `json:"confidence,omitempty"`
}

// Tabulate lays every row out against the columns of the first row.
// Missing cells are blank; keys absent from the first row are not shown.
func Tabulate(t detail.Table) Grid {
	cols := TableColumns(t)
	cells := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		line := make([]string, len(cols))
		for j, c := range cols {
			line[j] = r.Cell(c)
		}
		cells[i] = line
	}
	return Grid{Columns: cols, Cells: cells, Confidence: t.Confidence}
}
