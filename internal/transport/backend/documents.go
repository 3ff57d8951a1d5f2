package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/sagar-developer08/idp/internal/domain"
	domdoc "github.com/sagar-developer08/idp/internal/domain/document"
)

// Operation names, used for breakers, metrics and errors.
const (
	OpListDocuments = "list_documents"
	OpFetchDetail   = "fetch_detail"
	OpUpload        = "upload"
	OpSearch        = "search"
)

// Client talks to the extraction backend: listing, detail and upload.
type Client struct {
	transport
	base *url.URL
}

// New creates a backend client for baseURL, e.g. "http://localhost:8000".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{transport: newTransport(opts), base: u}, nil
}

// ListDocuments returns the raw {"documents": [...]} listing.
func (c *Client) ListDocuments(ctx context.Context) ([]byte, error) {
	return c.do(ctx, request{
		op:      OpListDocuments,
		method:  http.MethodGet,
		url:     c.base.JoinPath("api", "documents").String(),
		timeout: c.requestTimeout,
	})
}

// FetchDetail returns the raw detail record of serverID.
func (c *Client) FetchDetail(ctx context.Context, serverID string) ([]byte, error) {
	if strings.TrimSpace(serverID) == "" {
		return nil, fmt.Errorf("%s: %w", OpFetchDetail, domain.ErrNoServerID)
	}
	return c.do(ctx, request{
		op:      OpFetchDetail,
		method:  http.MethodGet,
		url:     c.base.JoinPath("api", "documents", url.PathEscape(serverID)).String(),
		timeout: c.requestTimeout,
	})
}

// Upload posts files as a multipart form, one "files" part per file.
func (c *Client) Upload(ctx context.Context, files []domdoc.File) ([]byte, error) {
	body, contentType, err := multipartBody(files)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpUpload, err)
	}
	return c.do(ctx, request{
		op:          OpUpload,
		method:      http.MethodPost,
		url:         c.base.JoinPath("api", "upload").String(),
		body:        body,
		contentType: contentType,
		timeout:     c.uploadTimeout,
	})
}

// HealthCheck reports whether the backend answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.ping(ctx, c.base.String())
}

func multipartBody(files []domdoc.File) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, "", fmt.Errorf("create form file %q: %w", f.Name, err)
		}
		if f.Body == nil {
			continue
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return nil, "", fmt.Errorf("read file %q: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
