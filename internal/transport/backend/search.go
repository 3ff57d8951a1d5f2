package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sagar-developer08/idp/internal/domain"
)

// SearchClient talks to the search collaborator, which may be a separate service.
type SearchClient struct {
	transport
	endpoint *url.URL
}

// NewSearch creates a search client for the full endpoint URL, e.g. "http://search:8001/api/search".
func NewSearch(endpoint string, opts ...Option) (*SearchClient, error) {
	u, err := parseBaseURL(endpoint)
	if err != nil {
		return nil, err
	}
	return &SearchClient{transport: newTransport(opts), endpoint: u}, nil
}

// Search returns the raw {"results": [...]} response for query.
func (c *SearchClient) Search(ctx context.Context, query string) ([]byte, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%s: %w", OpSearch, domain.ErrEmptyQuery)
	}
	u := *c.endpoint
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	return c.do(ctx, request{
		op:      OpSearch,
		method:  http.MethodGet,
		url:     u.String(),
		timeout: c.requestTimeout,
	})
}

// HealthCheck reports whether the search collaborator answers.
func (c *SearchClient) HealthCheck(ctx context.Context) error {
	u := *c.endpoint
	u.RawQuery = ""
	return c.ping(ctx, u.String())
}
