package detail

import (
	"bytes"
	"encoding/json"
)

// Entity is a named entity extracted from a document.
type Entity struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// Row is a table row: cells keyed by column name, with the column order of the source record.
type Row struct {
	keys  []string
	cells map[string]string
}

// NewRow creates a row. Keys without a cell render as blank.
func NewRow(keys []string, cells map[string]string) Row {
	return Row{keys: keys, cells: cells}
}

// Keys returns the column names in source order.
func (r Row) Keys() []string { return r.keys }

// Cell returns the value of column, or "" when the row has no such column.
func (r Row) Cell(column string) string { return r.cells[column] }

// Len returns the number of columns present in the row.
func (r Row) Len() int { return len(r.keys) }

// MarshalJSON encodes the row as an object preserving column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.cells[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Table is an extracted table. Confidence is in [0,1] when present.
type Table struct {
	Rows       []Row    `json:"rows"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Detail is the extraction result for a single document.
type Detail struct {
	DocumentID string `json:"document_id"`
	ServerID   string `json:"server_id"`

	Summary       string   `json:"summary"`
	ExtractedText string   `json:"extracted_text"`
	Tables        []Table  `json:"tables"`
	Entities      []Entity `json:"entities"`
	PageCount     int      `json:"page_count"`

	SegmentationScore float64 `json:"segmentation_score"`
	LayoutScore       float64 `json:"layout_score"`
}
