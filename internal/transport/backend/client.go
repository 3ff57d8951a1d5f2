// Package backend is the HTTP/JSON client of the extraction backend and the search collaborator.
//
// Every call returns the raw response body after checking that it is JSON; mapping into domain
// types is left to the normalizer. Failures are domain.ErrTransport or domain.ErrDecode errors.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sagar-developer08/idp/internal/domain"
	"github.com/sagar-developer08/idp/internal/metrics"
	"github.com/sagar-developer08/idp/internal/resilience"
	"github.com/sagar-developer08/idp/internal/version"
)

const (
	// DefaultRequestTimeout bounds listing, detail and search calls.
	DefaultRequestTimeout = 30 * time.Second
	// DefaultUploadTimeout bounds multipart uploads.
	DefaultUploadTimeout = 5 * time.Minute

	maxErrorBody = 4 << 10
)

// Option configures a Client or SearchClient.
type Option func(*transport)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *transport) {
		if c != nil {
			t.httpClient = c
		}
	}
}

// WithRequestTimeout bounds every non-upload request. Zero disables the bound.
func WithRequestTimeout(d time.Duration) Option {
	return func(t *transport) { t.requestTimeout = d }
}

// WithUploadTimeout bounds upload requests. Zero disables the bound.
func WithUploadTimeout(d time.Duration) Option {
	return func(t *transport) { t.uploadTimeout = d }
}

// WithBreaker routes every call through a circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(t *transport) { t.breaker = b }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *transport) {
		if l != nil {
			t.log = l
		}
	}
}

// transport holds what the backend and search clients share.
type transport struct {
	httpClient     *http.Client
	requestTimeout time.Duration
	uploadTimeout  time.Duration
	breaker        *resilience.Breaker
	log            *zap.Logger
}

func newTransport(opts []Option) transport {
	t := transport{
		httpClient:     &http.Client{},
		requestTimeout: DefaultRequestTimeout,
		uploadTimeout:  DefaultUploadTimeout,
		log:            zap.NewNop(),
	}
	for _, o := range opts {
		o(&t)
	}
	return t
}

type request struct {
	op          string
	method      string
	url         string
	body        []byte
	contentType string
	timeout     time.Duration
}

// do performs r under the breaker and returns the JSON body of a 2xx response.
func (t *transport) do(ctx context.Context, r request) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	body, status, err := t.execute(ctx, r)
	elapsed := time.Since(start)

	metrics.BackendRequestDuration.WithLabelValues(r.op).Observe(elapsed.Seconds())
	metrics.BackendRequestsTotal.WithLabelValues(r.op, status).Inc()
	if err != nil {
		metrics.BackendErrorsTotal.WithLabelValues(r.op, errorType(err)).Inc()
		t.log.Debug("backend request failed",
			zap.String("operation", r.op),
			zap.String("status", status),
			zap.Duration("duration", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	t.log.Debug("backend request",
		zap.String("operation", r.op),
		zap.String("status", status),
		zap.Duration("duration", elapsed),
		zap.Int("bytes", len(body)),
	)
	return body, nil
}

func (t *transport) execute(ctx context.Context, r request) ([]byte, string, error) {
	status := "error"
	body, err := t.breaker.Execute(ctx, r.op, func(ctx context.Context) ([]byte, error) {
		b, code, err := t.roundTrip(ctx, r)
		if code > 0 {
			status = strconv.Itoa(code)
		}
		return b, err
	}, recordFailure)
	if err != nil {
		if resilience.IsCircuitOpen(err) {
			status = "circuit_open"
		}
		return nil, status, err
	}
	return body, status, nil
}

func (t *transport) roundTrip(ctx context.Context, r request) ([]byte, int, error) {
	var reader io.Reader = http.NoBody
	if r.body != nil {
		reader = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: create request: %w", r.op, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-ID", requestID(ctx))
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, 0, domain.NewTransportError(r.op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, domain.NewTransportError(r.op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, resp.StatusCode, domain.NewTransportError(r.op, &HTTPStatusError{
			Operation:  r.op,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		})
	}

	if !json.Valid(body) {
		return nil, resp.StatusCode, domain.NewDecodeError(r.op, errors.New("response is not valid JSON"))
	}
	return body, resp.StatusCode, nil
}

// requestID reuses the inbound request id when there is one.
func requestID(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

// ping reports whether target answers HTTP at all. Any status below 500 counts as reachable.
func (t *transport) ping(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return domain.NewTransportError("health", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return domain.NewTransportError("health", &HTTPStatusError{
			Operation: "health", StatusCode: resp.StatusCode, Status: resp.Status,
		})
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: missing host", raw)
	}
	return u, nil
}
