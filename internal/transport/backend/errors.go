package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sagar-developer08/idp/internal/domain"
)

// HTTPStatusError is a non-2xx response from a collaborator.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "backend status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("backend %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("backend %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// Is lets a 404 match domain.ErrNotFound.
func (e *HTTPStatusError) Is(target error) bool {
	return target == domain.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsStatus reports whether err carries an HTTP status code equal to code.
func IsStatus(err error, code int) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

// recordFailure decides whether err counts against the breaker.
// Client-side rejections and cancellations do not; outages, timeouts and 5xx do.
func recordFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, domain.ErrDecode) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return isOutageStatus(statusErr.StatusCode)
	}
	return true
}

func isOutageStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// errorType is the metrics label of err.
func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrDecode):
		return "decode"
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return "status"
	}
	return "transport"
}
