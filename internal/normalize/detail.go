package normalize

import (
	"fmt"
	"math"

	"github.com/buger/jsonparser"

	"github.com/sagar-developer08/idp/internal/domain/detail"
	"github.com/sagar-developer08/idp/internal/domain/document"
)

var (
	summaryFields = []accessor{
		at("document_summary"),
		at("summary"),
		at("segmentation_output", "document_summary"),
	}
	extractedTextFields = []accessor{
		at("segmentation_output", "metadata", "additional_info", "markdown"),
		at("segmentation_output", "extracted_text"),
		at("extracted_text"),
	}
	tablesFields = []accessor{
		at("segmentation_output", "tables_data"),
		at("tables_data"),
		at("tables"),
	}
	entitiesFields = []accessor{
		at("entities"),
		at("segmentation_output", "entities"),
		at("named_entities"),
	}
	pageCountFields = []accessor{
		at("segmentation_output", "metadata", "num_pages"),
		at("num_pages"),
		at("page_count"),
	}
	segmentationScoreFields = []accessor{
		at("segmentation_accuracy"),
		at("segmentation_output", "confidence_scores", "document_scores", "segmentation_score"),
	}
	layoutScoreFields = []accessor{
		at("segmentation_output", "confidence_scores", "document_scores", "layout_score"),
	}

	tableRowsFields       = []accessor{at("rows"), at("data"), at("table_data")}
	tableHeaderFields     = []accessor{at("headers"), at("columns")}
	tableConfidenceFields = []accessor{at("confidence"), at("confidence_score")}

	entityCategoryFields = []accessor{at("type"), at("entity_type"), at("category"), at("label")}
	entityValueFields    = []accessor{at("value"), at("text"), at("entity")}
)

// PlaceholderSummary is shown when the backend has not produced a summary.
func PlaceholderSummary(name string) string {
	if name == "" {
		name = "this document"
	}
	return fmt.Sprintf("%s has been processed. No summary was generated; see the extracted text and entities below.", name)
}

// DocumentDetail maps a document-detail record. Scores missing from the record fall back to the
// accuracies of the registry entry: segmentation to SegmentationAccuracy, layout to ExtractionAccuracy.
func DocumentDetail(raw []byte, fallback document.Document) (detail.Detail, error) {
	if !isObject(raw) {
		return detail.Detail{}, ErrNotObject
	}

	d := detail.Detail{
		DocumentID:        fallback.ID,
		ServerID:          fallback.ServerID,
		Tables:            tables(raw),
		Entities:          Entities(raw),
		PageCount:         1,
		SegmentationScore: scoreOr(raw, segmentationScoreFields, fallback.SegmentationAccuracy),
		LayoutScore:       scoreOr(raw, layoutScoreFields, fallback.ExtractionAccuracy),
	}

	if s, ok := textOf(raw, summaryFields); ok {
		d.Summary = s
	} else {
		d.Summary = PlaceholderSummary(fallback.DisplayName())
	}
	d.ExtractedText, _ = textOf(raw, extractedTextFields)

	if n, ok := numberOf(raw, pageCountFields); ok && n >= 1 {
		d.PageCount = int(math.Floor(n))
	}
	return d, nil
}

func scoreOr(raw []byte, accs []accessor, def float64) float64 {
	if v, ok := numberOf(raw, accs); ok {
		return Percent(v)
	}
	return Percent(def)
}

// tables resolves the table list. A single table object, a list of tables, a list of row objects
// and a JSON-encoded string of any of those are all accepted.
func tables(raw []byte) []detail.Table {
	out := []detail.Table{}
	v, typ, ok := first(raw, tablesFields)
	if !ok {
		return out
	}
	v, typ = embedded(v, typ)

	switch typ {
	case jsonparser.Object:
		return append(out, table(v))
	case jsonparser.Array:
		if isRowList(v) {
			return append(out, detail.Table{Rows: rows(v, nil)})
		}
		_, _ = jsonparser.ArrayEach(v, func(item []byte, it jsonparser.ValueType, _ int, _ error) {
			item, it = embedded(item, it)
			switch it {
			case jsonparser.Object:
				out = append(out, table(item))
			case jsonparser.Array:
				out = append(out, detail.Table{Rows: rows(item, nil)})
			}
		})
	}
	return out
}

// isRowList reports whether arr is a list of row objects rather than a list of tables.
func isRowList(arr []byte) bool {
	v, typ, _, err := jsonparser.Get(arr, "[0]")
	if err != nil || typ != jsonparser.Object {
		return false
	}
	for _, fields := range [][]accessor{tableRowsFields, tableHeaderFields, tableConfidenceFields} {
		if _, _, found := first(v, fields); found {
			return false
		}
	}
	return true
}

func table(v []byte) detail.Table {
	t := detail.Table{Rows: []detail.Row{}}
	if c, ok := numberOf(v, tableConfidenceFields); ok {
		f := Fraction(c)
		t.Confidence = &f
	}

	var headers []string
	if hv, ht, ok := first(v, tableHeaderFields); ok && ht == jsonparser.Array {
		_, _ = jsonparser.ArrayEach(hv, func(h []byte, typ jsonparser.ValueType, _ int, _ error) {
			headers = append(headers, scalarString(h, typ))
		})
	}

	if rv, rt, ok := first(v, tableRowsFields); ok {
		rv, rt = embedded(rv, rt)
		if rt == jsonparser.Array {
			t.Rows = rows(rv, headers)
		}
	}
	return t
}

func rows(arr []byte, headers []string) []detail.Row {
	out := []detail.Row{}
	_, _ = jsonparser.ArrayEach(arr, func(item []byte, typ jsonparser.ValueType, _ int, _ error) {
		switch typ {
		case jsonparser.Object:
			out = append(out, objectRow(item))
		case jsonparser.Array:
			out = append(out, positionalRow(item, headers))
		}
	})
	return out
}

func objectRow(obj []byte) detail.Row {
	var keys []string
	cells := make(map[string]string)
	_ = jsonparser.ObjectEach(obj, func(k, v []byte, typ jsonparser.ValueType, _ int) error {
		key, err := jsonparser.ParseString(k)
		if err != nil {
			key = string(k)
		}
		if _, dup := cells[key]; !dup {
			keys = append(keys, key)
		}
		cells[key] = scalarString(v, typ)
		return nil
	})
	return detail.NewRow(keys, cells)
}

func positionalRow(arr []byte, headers []string) detail.Row {
	var keys []string
	cells := make(map[string]string)
	i := 0
	_, _ = jsonparser.ArrayEach(arr, func(v []byte, typ jsonparser.ValueType, _ int, _ error) {
		key := fmt.Sprintf("Column %d", i+1)
		if i < len(headers) && headers[i] != "" {
			key = headers[i]
		}
		if _, dup := cells[key]; !dup {
			keys = append(keys, key)
		}
		cells[key] = scalarString(v, typ)
		i++
	})
	return detail.NewRow(keys, cells)
}

// Entities resolves the entity list of a detail record. Entities without a recognizable
// category or value are kept with empty fields.
func Entities(raw []byte) []detail.Entity {
	out := []detail.Entity{}
	v, typ, ok := first(raw, entitiesFields)
	if !ok {
		return out
	}
	v, typ = embedded(v, typ)

	switch typ {
	case jsonparser.Array:
		_, _ = jsonparser.ArrayEach(v, func(item []byte, it jsonparser.ValueType, _ int, _ error) {
			out = append(out, Entity(item, it))
		})
	case jsonparser.Object:
		// {"Person": ["Ada", "Alan"], "Date": "2024-01-01"}
		_ = jsonparser.ObjectEach(v, func(k, val []byte, vt jsonparser.ValueType, _ int) error {
			category, err := jsonparser.ParseString(k)
			if err != nil {
				category = string(k)
			}
			if vt != jsonparser.Array {
				out = append(out, detail.Entity{Category: category, Value: entityValue(val, vt)})
				return nil
			}
			_, _ = jsonparser.ArrayEach(val, func(item []byte, it jsonparser.ValueType, _ int, _ error) {
				out = append(out, detail.Entity{Category: category, Value: entityValue(item, it)})
			})
			return nil
		})
	}
	return out
}

// Entity maps a single entity record.
func Entity(v []byte, typ jsonparser.ValueType) detail.Entity {
	if typ != jsonparser.Object {
		return detail.Entity{Value: scalarString(v, typ)}
	}
	e := detail.Entity{}
	e.Category, _ = textOf(v, entityCategoryFields)
	e.Value, _ = textOf(v, entityValueFields)
	return e
}

func entityValue(v []byte, typ jsonparser.ValueType) string {
	if typ == jsonparser.Object {
		s, _ := textOf(v, entityValueFields)
		return s
	}
	return scalarString(v, typ)
}
