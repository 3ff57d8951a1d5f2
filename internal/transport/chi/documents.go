package chi

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	domdoc "github.com/sagar-developer08/idp/internal/domain/document"
	logpkg "github.com/sagar-developer08/idp/internal/logger"
	"github.com/sagar-developer08/idp/internal/registry"
)

const (
	uploadField     = "files"
	multipartMemory = 32 << 20
)

// UploadResponse carries the pending ids created by an upload and the registry afterwards.
type UploadResponse struct {
	IDs       []string          `json:"ids"`
	Documents registry.Snapshot `json:"documents"`
}

// UploadErrorResponse is the body of a failed upload. PendingIDs lists the entries
// that were added before the backend call failed; they stay in the registry.
type UploadErrorResponse struct {
	ErrorResponse
	PendingIDs []string `json:"pending_ids,omitempty"`
}

// ListDocuments handles GET /api/v1/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.documents.Snapshot())
}

// RefreshDocuments handles POST /api/v1/documents/refresh.
func (s *Server) RefreshDocuments(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Refresh(r.Context()); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.documents.Snapshot())
}

// UploadDocuments handles POST /api/v1/documents/upload.
func (s *Server) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUploadBytes {
		s.writeTooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeTooLarge(w)
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files, closeAll, err := openParts(r.MultipartForm.File[uploadField])
	defer closeAll()
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid upload part: "+err.Error())
		return
	}

	ids, err := s.documents.Upload(r.Context(), files)
	if err != nil {
		// The pending entries stay in the registry; report their ids with the error.
		status, resp := errorResponse(err)
		if status == http.StatusInternalServerError {
			logpkg.FromContextOr(r.Context(), s.logger).Error("upload failed", zap.Error(err))
		}
		writeJSON(w, status, UploadErrorResponse{ErrorResponse: resp, PendingIDs: ids})
		return
	}

	writeJSON(w, http.StatusAccepted, UploadResponse{IDs: ids, Documents: s.documents.Snapshot()})
}

func (s *Server) writeTooLarge(w http.ResponseWriter) {
	writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		fmt.Sprintf("Upload exceeds %d bytes", s.maxUploadBytes))
}

func openParts(headers []*multipart.FileHeader) ([]domdoc.File, func(), error) {
	files := make([]domdoc.File, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("open %q: %w", h.Filename, err)
		}
		opened = append(opened, f)
		files = append(files, domdoc.File{Name: h.Filename, Size: h.Size, Body: f})
	}
	return files, closeAll, nil
}

// RemoveDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !s.documents.Remove(id) {
		writeError(w, http.StatusNotFound, CodeNotFound, "Document not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearDocuments handles DELETE /api/v1/documents.
func (s *Server) ClearDocuments(w http.ResponseWriter, _ *http.Request) {
	s.documents.Clear()
	s.details.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// SelectDocument handles POST /api/v1/documents/{id}/select.
// The detail fetch runs in the background unless ?wait=true is given.
func (s *Server) SelectDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	wait, ok := queryFlag(w, r, "wait")
	if !ok {
		return
	}
	refresh, ok := queryFlag(w, r, "refresh")
	if !ok {
		return
	}

	doc, err := s.documents.Get(id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if refresh && s.cache != nil && doc.HasServerID() {
		if err := s.cache.Invalidate(r.Context(), doc.ServerID); err != nil {
			logpkg.FromContextOr(r.Context(), s.logger).Warn("detail cache invalidate failed",
				zap.String("server_id", doc.ServerID), zap.Error(err))
		}
	}

	fetch := s.details.Begin(doc)
	if wait {
		if err := fetch(r.Context()); err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, detailStateToView(s.details.State()))
		return
	}

	s.goBackground(r, func(ctx context.Context) { _ = fetch(ctx) })

	writeJSON(w, http.StatusAccepted, detailStateToView(s.details.State()))
}
