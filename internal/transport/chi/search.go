package chi

import (
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/sagar-developer08/idp/internal/metrics"
	searchuc "github.com/sagar-developer08/idp/internal/usecase/search"
	"github.com/sagar-developer08/idp/internal/view"
)

const summaryExcerptRunes = 240

// SearchResponse is the search outcome with highlighted result cards.
type SearchResponse struct {
	State     searchuc.State `json:"state"`
	Query     string         `json:"query"`
	Searched  bool           `json:"searched"`
	Searching bool           `json:"searching"`
	Results   []ResultCard   `json:"results"`
	Error     *ErrorResponse `json:"error,omitempty"`
}

// ResultCard is a single search hit ready for rendering.
type ResultCard struct {
	DocumentID   string         `json:"document_id"`
	DocumentName string         `json:"document_name"`
	UploadedAt   *time.Time     `json:"uploaded_at,omitempty"`
	Name         []view.Segment `json:"name"`
	Summary      []view.Segment `json:"summary"`
	Excerpt      string         `json:"excerpt"`
}

// Search handles GET /api/v1/search.
// Without q it returns the current outcome; a failed search is reported in the body, not the status.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var q string
	if err := runtime.BindQueryParameter("form", true, false, "q", r.URL.Query(), &q); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter q: "+err.Error())
		return
	}

	out, _ := s.search.Search(r.Context(), q)
	if out.State != searchuc.StateIdle && out.State != searchuc.StateSearching {
		metrics.SearchOutcomesTotal.WithLabelValues(string(out.State)).Inc()
	}
	writeJSON(w, http.StatusOK, outcomeToView(out))
}

// ResetSearch handles DELETE /api/v1/search.
func (s *Server) ResetSearch(w http.ResponseWriter, _ *http.Request) {
	s.search.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func outcomeToView(out searchuc.Outcome) SearchResponse {
	cards := make([]ResultCard, len(out.Results))
	for i, res := range out.Results {
		card := ResultCard{
			DocumentID:   res.DocumentID,
			DocumentName: res.DocumentName,
			Name:         view.Highlight(res.DocumentName, out.Query),
			Summary:      view.Highlight(res.Summary, out.Query),
			Excerpt:      view.Excerpt(res.Summary, summaryExcerptRunes),
		}
		if !res.UploadedAt.IsZero() {
			t := res.UploadedAt
			card.UploadedAt = &t
		}
		cards[i] = card
	}
	resp := SearchResponse{
		State:     out.State,
		Query:     out.Query,
		Searched:  out.Searched,
		Searching: out.Searching,
		Results:   cards,
	}
	if out.Err != nil {
		_, e := errorResponse(out.Err)
		resp.Error = &e
	}
	return resp
}
