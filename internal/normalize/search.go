package normalize

import (
	"fmt"

	"github.com/sagar-developer08/idp/internal/domain/search/result"
)

var (
	resultIDFields      = []accessor{at("document_id"), at("id")}
	resultNameFields    = []accessor{at("document_name"), at("name"), at("title")}
	resultCreatedFields = []accessor{at("created_timestamp"), at("created_at")}
	resultSummaryFields = []accessor{at("document_summary"), at("summary"), at("snippet")}
)

// SearchResult maps a single search hit.
func SearchResult(raw []byte) (result.Result, error) {
	if !isObject(raw) {
		return result.Result{}, ErrNotObject
	}
	r := result.Result{UploadedAt: timestampOf(raw, resultCreatedFields)}
	r.DocumentID, _ = stringOf(raw, resultIDFields)
	r.DocumentName, _ = textOf(raw, resultNameFields)
	if s, ok := textOf(raw, resultSummaryFields); ok {
		r.Summary = s
	} else {
		r.Summary = noSummary(r.DocumentName)
	}
	return r, nil
}

// SearchResults maps a search response, preserving the collaborator's order.
// Both {"results": [...]} and a bare array are accepted; non-object hits are skipped.
func SearchResults(raw []byte) ([]result.Result, error) {
	items, err := arrayItems(raw, "results")
	if err != nil {
		return nil, err
	}
	out := make([]result.Result, 0, len(items))
	for _, item := range items {
		r, err := SearchResult(item)
		if err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func noSummary(name string) string {
	if name == "" {
		return "No summary available."
	}
	return fmt.Sprintf("No summary available for %s.", name)
}
