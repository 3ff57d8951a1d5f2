package chi

import (
	"net/http"

	domdetail "github.com/sagar-developer08/idp/internal/domain/detail"
	detailuc "github.com/sagar-developer08/idp/internal/usecase/detail"
	"github.com/sagar-developer08/idp/internal/view"
)

// DetailStateResponse is the selected document and its rendering-ready detail.
type DetailStateResponse struct {
	DocumentID string          `json:"document_id,omitempty"`
	Loading    bool            `json:"loading"`
	Error      *ErrorResponse  `json:"error,omitempty"`
	Detail     *DetailResponse `json:"detail"`
}

// DetailResponse is a detail record laid out for rendering.
type DetailResponse struct {
	DocumentID        string               `json:"document_id"`
	ServerID          string               `json:"server_id"`
	Summary           string               `json:"summary"`
	ExtractedText     string               `json:"extracted_text"`
	PageCount         int                  `json:"page_count"`
	SegmentationScore float64              `json:"segmentation_score"`
	LayoutScore       float64              `json:"layout_score"`
	Tables            []view.Grid          `json:"tables"`
	Entities          []EntityResponse     `json:"entities"`
	EntityCounts      []view.CategoryCount `json:"entity_counts"`
}

// EntityResponse is an extracted entity with its icon category.
type EntityResponse struct {
	Category string            `json:"category"`
	Value    string            `json:"value"`
	Icon     view.IconCategory `json:"icon"`
}

// GetDetail handles GET /api/v1/detail.
func (s *Server) GetDetail(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, detailStateToView(s.details.State()))
}

// ClearDetail handles DELETE /api/v1/detail.
func (s *Server) ClearDetail(w http.ResponseWriter, _ *http.Request) {
	s.details.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func detailStateToView(st detailuc.State) DetailStateResponse {
	resp := DetailStateResponse{DocumentID: st.DocumentID, Loading: st.Loading}
	if st.Err != nil {
		_, e := errorResponse(st.Err)
		resp.Error = &e
	}
	if st.Detail != nil {
		d := detailToView(*st.Detail)
		resp.Detail = &d
	}
	return resp
}

func detailToView(d domdetail.Detail) DetailResponse {
	tables := make([]view.Grid, len(d.Tables))
	for i, t := range d.Tables {
		tables[i] = view.Tabulate(t)
	}
	entities := make([]EntityResponse, len(d.Entities))
	for i, e := range d.Entities {
		entities[i] = EntityResponse{Category: e.Category, Value: e.Value, Icon: view.ClassifyEntity(e.Category)}
	}
	return DetailResponse{
		DocumentID:        d.DocumentID,
		ServerID:          d.ServerID,
		Summary:           d.Summary,
		ExtractedText:     d.ExtractedText,
		PageCount:         d.PageCount,
		SegmentationScore: d.SegmentationScore,
		LayoutScore:       d.LayoutScore,
		Tables:            tables,
		Entities:          entities,
		EntityCounts:      view.CountByCategory(d.Entities),
	}
}
