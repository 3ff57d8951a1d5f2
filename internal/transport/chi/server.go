package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sagar-developer08/idp/internal/domain"
	logpkg "github.com/sagar-developer08/idp/internal/logger"
	detailuc "github.com/sagar-developer08/idp/internal/usecase/detail"
	documentuc "github.com/sagar-developer08/idp/internal/usecase/document"
	healthuc "github.com/sagar-developer08/idp/internal/usecase/health"
	searchuc "github.com/sagar-developer08/idp/internal/usecase/search"
)

// DefaultMaxUploadBytes caps a multipart upload body.
const DefaultMaxUploadBytes int64 = 50 << 20

// ErrorCode is the machine-readable error code of an ErrorResponse.
type ErrorCode string

const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeNotFound               ErrorCode = "not_found"
	CodePayloadTooLarge        ErrorCode = "payload_too_large"
	CodeBackendUnavailable     ErrorCode = "backend_unavailable"
	CodeBackendInvalidResponse ErrorCode = "backend_invalid_response"
	CodeCircuitOpen            ErrorCode = "circuit_open"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DetailInvalidator drops a cached detail record.
type DetailInvalidator interface {
	Invalidate(ctx context.Context, serverID string) error
}

// errorHandler maps a domain error to a status and code. Returns false if it does not match.
type errorHandler func(err error) (int, ErrorCode, bool)

// Order matters: an open circuit and a backend 404 are also transport errors.
var errorHandlers = []errorHandler{
	sentinelHandler(domain.ErrCircuitOpen, http.StatusServiceUnavailable, CodeCircuitOpen),
	sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
	sentinelHandler(documentuc.ErrNoFiles, http.StatusBadRequest, CodeBadRequest),
	sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, CodeBadRequest),
	sentinelHandler(domain.ErrDecode, http.StatusBadGateway, CodeBackendInvalidResponse),
	sentinelHandler(domain.ErrTransport, http.StatusBadGateway, CodeBackendUnavailable),
}

// Server exposes the document registry, detail and search state over HTTP.
type Server struct {
	documents *documentuc.Service
	details   *detailuc.Controller
	search    *searchuc.Controller
	health    *healthuc.Service
	cache     DetailInvalidator
	logger    *zap.Logger

	maxUploadBytes int64

	// lifetime bounds background detail fetches; Shutdown cancels it.
	lifetime       context.Context
	stopBackground context.CancelFunc
	background     sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMaxUploadBytes caps the upload request body.
func WithMaxUploadBytes(n int64) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithDetailCache lets select requests bypass a cached detail with ?refresh=true.
func WithDetailCache(c DetailInvalidator) ServerOption {
	return func(s *Server) { s.cache = c }
}

// NewServer creates an HTTP API server.
func NewServer(
	documents *documentuc.Service,
	details *detailuc.Controller,
	search *searchuc.Controller,
	health *healthuc.Service,
	logger *zap.Logger,
	opts ...ServerOption,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		documents:      documents,
		details:        details,
		search:         search,
		health:         health,
		logger:         logger,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, o := range opts {
		o(s)
	}
	s.lifetime, s.stopBackground = context.WithCancel(context.Background())
	return s
}

// Shutdown cancels background detail fetches and waits for them to return or for ctx to expire.
// Call it after http.Server.Shutdown so no new fetch starts.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopBackground()

	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for background fetches: %w", ctx.Err())
	}
}

// goBackground runs fn detached from the request but bounded by the server lifetime.
// Request-scoped values such as the logger are kept.
func (s *Server) goBackground(r *http.Request, fn func(context.Context)) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	stop := context.AfterFunc(s.lifetime, cancel)

	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer cancel()
		defer stop()
		fn(ctx)
	}()
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/documents", s.ListDocuments)
		r.Delete("/documents", s.ClearDocuments)
		r.Post("/documents/refresh", s.RefreshDocuments)
		r.Post("/documents/upload", s.UploadDocuments)
		r.Delete("/documents/{id}", s.RemoveDocument)
		r.Post("/documents/{id}/select", s.SelectDocument)

		r.Get("/detail", s.GetDetail)
		r.Delete("/detail", s.ClearDetail)

		r.Get("/search", s.Search)
		r.Delete("/search", s.ResetSearch)
	})
}

// Handler returns a router serving the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// pathID binds the {id} path parameter. It writes a 400 and returns false on failure.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter id: "+err.Error())
		return "", false
	}
	return id, true
}

// queryFlag binds an optional boolean query parameter.
func queryFlag(w http.ResponseWriter, r *http.Request, name string) (bool, bool) {
	var v bool
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid format for parameter "+name+": "+err.Error())
		return false, false
	}
	return v, true
}

// --- helpers ---

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := errorResponse(err)
	if status == http.StatusInternalServerError {
		logpkg.FromContextOr(r.Context(), s.logger).Error("unhandled error", zap.Error(err))
	}
	writeJSON(w, status, resp)
}

// errorResponse maps err to its status and a body that does not leak internals.
func errorResponse(err error) (int, ErrorResponse) {
	for _, h := range errorHandlers {
		if status, code, ok := h(err); ok {
			return status, ErrorResponse{Code: code, Message: safeDomainMessage(err)}
		}
	}
	return http.StatusInternalServerError, ErrorResponse{Code: CodeInternalError, Message: "Internal server error"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrCircuitOpen,
		domain.ErrNotFound,
		documentuc.ErrNoFiles,
		domain.ErrEmptyQuery,
		domain.ErrDecode,
		domain.ErrTransport,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(err error) (int, ErrorCode, bool) {
		if !errors.Is(err, sentinel) {
			return 0, "", false
		}
		return status, code, true
	}
}
