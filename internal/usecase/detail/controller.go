// Package detail holds the detail fetch controller: the current selection, its loading flag,
// and the last committed detail. Only the response of the latest selection is ever committed.
package detail

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sagar-developer08/idp/internal/domain"
	domdetail "github.com/sagar-developer08/idp/internal/domain/detail"
	domdoc "github.com/sagar-developer08/idp/internal/domain/document"
	"github.com/sagar-developer08/idp/internal/normalize"
)

// DefaultTimeout bounds a single detail fetch.
const DefaultTimeout = 30 * time.Second

// State is the presentation-facing detail state.
type State struct {
	DocumentID string            `json:"document_id,omitempty"`
	Detail     *domdetail.Detail `json:"detail,omitempty"`
	Loading    bool              `json:"loading"`
	Err        error             `json:"-"`
}

// Controller fetches and holds the detail of the selected document.
type Controller struct {
	fetcher Fetcher
	timeout time.Duration
	log     *zap.Logger

	mu    sync.Mutex
	gen   uint64
	state State
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout sets the per-fetch timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Controller.
func New(fetcher Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher: fetcher,
		timeout: DefaultTimeout,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Select makes doc the current selection and fetches its detail.
// A document without a server id stays in the "no detail" state and nothing is fetched.
// A response that arrives after a newer selection is discarded.
// The returned error is also recorded in State; a superseded fetch returns nil.
func (c *Controller) Select(ctx context.Context, doc domdoc.Document) error {
	return c.Begin(doc)(ctx)
}

// Begin makes doc the current selection and returns the fetch that completes it.
// The selection order is fixed when Begin returns, so the fetch may run in another goroutine.
func (c *Controller) Begin(doc domdoc.Document) func(context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state = State{DocumentID: doc.ID, Loading: doc.HasServerID()}
	c.mu.Unlock()

	return func(ctx context.Context) error {
		return c.complete(ctx, doc, gen)
	}
}

func (c *Controller) complete(ctx context.Context, doc domdoc.Document, gen uint64) error {
	if !doc.HasServerID() {
		c.log.Debug("detail skipped, document not accepted yet", zap.String("document_id", doc.ID))
		return nil
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	d, err := c.fetch(ctx, doc)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.Debug("stale detail discarded",
			zap.String("document_id", doc.ID),
			zap.String("server_id", doc.ServerID),
		)
		return nil
	}

	if err != nil {
		c.state = State{DocumentID: doc.ID, Err: err}
		c.log.Warn("detail fetch failed",
			zap.String("document_id", doc.ID),
			zap.String("server_id", doc.ServerID),
			zap.Error(err),
		)
		return err
	}

	c.state = State{DocumentID: doc.ID, Detail: &d}
	return nil
}

func (c *Controller) fetch(ctx context.Context, doc domdoc.Document) (domdetail.Detail, error) {
	fetch := c.fetcher.FetchDetail
	if u, ok := c.fetcher.(uncachedFetcher); ok && !doc.IsFinal() {
		fetch = u.FetchDetailUncached
	}
	raw, err := fetch(ctx, doc.ServerID)
	if err != nil {
		return domdetail.Detail{}, err
	}
	d, err := normalize.DocumentDetail(raw, doc)
	if err != nil {
		return domdetail.Detail{}, domain.NewDecodeError("document detail", err)
	}
	return d, nil
}

// State returns the current detail state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Clear drops the selection. Any in-flight fetch becomes stale.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.state = State{}
}
