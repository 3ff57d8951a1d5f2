package detail

import (
	"encoding/json"
	"testing"
)

func TestRow_CellMissingIsBlank(t *testing.T) {
	r := NewRow([]string{"Item"}, map[string]string{"Item": "Widget"})

	if r.Cell("Item") != "Widget" {
		t.Errorf("Cell(Item) = %q", r.Cell("Item"))
	}
	if r.Cell("Price") != "" {
		t.Errorf("Cell(Price) = %q, want blank", r.Cell("Price"))
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestRow_MarshalJSONKeepsOrder(t *testing.T) {
	r := NewRow([]string{"zeta", "alpha", "mid"}, map[string]string{
		"zeta": "1", "alpha": "2", "mid": `"q"`,
	})

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"zeta":"1","alpha":"2","mid":"\"q\""}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestRow_MarshalJSONEmpty(t *testing.T) {
	data, err := json.Marshal(Row{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("got %s", data)
	}
}
