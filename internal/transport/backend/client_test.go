package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sagar-developer08/idp/internal/domain"
	domdoc "github.com/sagar-developer08/idp/internal/domain/document"
	"github.com/sagar-developer08/idp/internal/resilience"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://host", "http://"} {
		if _, err := New(raw); err == nil {
			t.Errorf("New(%q): expected error", raw)
		}
	}
}

func TestListDocuments(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/documents" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "idp-client/") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"documents":[{"document_id":"d1"}]}`)
	})

	body, err := c.ListDocuments(context.Background())
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if !strings.Contains(string(body), `"d1"`) {
		t.Errorf("body = %s", body)
	}
}

func TestRequestID_ReusesInbound(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-ID")
		_, _ = io.WriteString(w, `{}`)
	})

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")
	if _, err := c.ListDocuments(ctx); err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if got != "req-42" {
		t.Errorf("X-Request-ID = %q, want req-42", got)
	}
}

func TestFetchDetail_EscapesID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/documents/a%2Fb" {
			t.Errorf("path = %s", r.URL.EscapedPath())
		}
		_, _ = io.WriteString(w, `{"document_summary":"x"}`)
	})

	if _, err := c.FetchDetail(context.Background(), "a/b"); err != nil {
		t.Fatalf("FetchDetail: %v", err)
	}
	if _, err := c.FetchDetail(context.Background(), " "); !errors.Is(err, domain.ErrNoServerID) {
		t.Errorf("err = %v, want ErrNoServerID", err)
	}
}

func TestFetchDetail_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"missing"}`, http.StatusNotFound)
	})

	_, err := c.FetchDetail(context.Background(), "d1")
	if !errors.Is(err, domain.ErrTransport) || !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want transport + not found", err)
	}
	if !IsStatus(err, http.StatusNotFound) {
		t.Error("IsStatus(404) = false")
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.Operation != OpFetchDetail {
		t.Errorf("status error = %+v", statusErr)
	}
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>oops</html>`)
	})

	_, err := c.ListDocuments(context.Background())
	if !errors.Is(err, domain.ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.ListDocuments(context.Background())
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithRequestTimeout(20*time.Millisecond))
	defer close(release)

	_, err := c.ListDocuments(context.Background())
	if !errors.Is(err, domain.ErrTransport) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want transport deadline", err)
	}
}

func TestUpload_Multipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/upload" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		files := r.MultipartForm.File["files"]
		if len(files) != 2 {
			t.Errorf("files = %d, want 2", len(files))
			return
		}
		if files[0].Filename != "a.pdf" || files[1].Filename != "b.png" {
			t.Errorf("names = %s,%s", files[0].Filename, files[1].Filename)
		}
		f, _ := files[0].Open()
		content, _ := io.ReadAll(f)
		_ = f.Close()
		if string(content) != "PDF-DATA" {
			t.Errorf("content = %q", content)
		}
		_, _ = io.WriteString(w, `{"documents":[]}`)
	})

	_, err := c.Upload(context.Background(), []domdoc.File{
		{Name: "a.pdf", Size: 8, Body: strings.NewReader("PDF-DATA")},
		{Name: "b.png", Size: 0},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
}

func TestBreakerOpensOnOutage(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithBreaker(resilience.NewBreaker(resilience.Config{
		Enabled:      true,
		MinRequests:  2,
		FailureRatio: 0.5,
		OpenTimeout:  time.Minute,
	}, nil)))

	for range 2 {
		if _, err := c.ListDocuments(context.Background()); !IsStatus(err, http.StatusServiceUnavailable) {
			t.Fatalf("err = %v, want 503", err)
		}
	}
	_, err := c.ListDocuments(context.Background())
	if !errors.Is(err, domain.ErrCircuitOpen) || !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err = %v, want circuit open", err)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, WithBreaker(resilience.NewBreaker(resilience.Config{
		Enabled: true, MinRequests: 1, FailureRatio: 0.1, OpenTimeout: time.Minute,
	}, nil)))

	for range 3 {
		if _, err := c.ListDocuments(context.Background()); !IsStatus(err, http.StatusBadRequest) {
			t.Fatalf("err = %v, want 400", err)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck on 404: %v", err)
	}

	down := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if err := down.HealthCheck(context.Background()); !errors.Is(err, domain.ErrTransport) {
		t.Errorf("HealthCheck on 502 = %v", err)
	}
}

func TestRecordFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"decode", domain.NewDecodeError("x", errors.New("bad")), false},
		{"400", domain.NewTransportError("x", &HTTPStatusError{StatusCode: 400}), false},
		{"404", &HTTPStatusError{StatusCode: 404}, false},
		{"429", &HTTPStatusError{StatusCode: 429}, true},
		{"503", &HTTPStatusError{StatusCode: 503}, true},
		{"network", domain.NewTransportError("x", errors.New("refused")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := recordFailure(tt.err); got != tt.want {
				t.Errorf("recordFailure = %v, want %v", got, tt.want)
			}
		})
	}
}
