// Package search holds the search controller: the current query, its outcome, and the
// searched flag that separates "no search yet" from "searched, nothing found".
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sagar-developer08/idp/internal/domain"
	"github.com/sagar-developer08/idp/internal/domain/search/result"
	"github.com/sagar-developer08/idp/internal/normalize"
)

// DefaultTimeout bounds a single search request.
const DefaultTimeout = 30 * time.Second

// State is the lifecycle of the current search.
type State string

const (
	// StateIdle means no search has been issued since the last reset.
	StateIdle State = "idle"
	// StateSearching means a query is in flight.
	StateSearching State = "searching"
	// StateEmpty means the collaborator confirmed zero matches.
	StateEmpty State = "empty"
	// StateResults means at least one match was returned.
	StateResults State = "results"
	// StateFailed means the query could not be completed.
	StateFailed State = "failed"
)

// Outcome is the presentation-facing search state.
// Results is empty (never nil) for Empty and Failed; Err tells them apart.
type Outcome struct {
	State     State           `json:"state"`
	Query     string          `json:"query"`
	Searched  bool            `json:"searched"`
	Searching bool            `json:"searching"`
	Results   []result.Result `json:"results"`
	Err       error           `json:"-"`
}

func idle() Outcome {
	return Outcome{State: StateIdle, Results: []result.Result{}}
}

// Controller issues searches and keeps the outcome of the latest one.
type Controller struct {
	searcher Searcher
	timeout  time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	gen     uint64
	outcome Outcome
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout sets the per-query timeout. Zero disables it.
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

// New creates a Controller in the idle state.
func New(searcher Searcher, opts ...Option) *Controller {
	c := &Controller{
		searcher: searcher,
		timeout:  DefaultTimeout,
		log:      zap.NewNop(),
		outcome:  idle(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Search runs query and commits its outcome unless a newer search or a reset happened meanwhile.
// A query that trims to empty is ignored and the current outcome is returned unchanged.
// The returned error mirrors Outcome.Err.
func (c *Controller) Search(ctx context.Context, query string) (Outcome, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return c.Outcome(), nil
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.outcome = Outcome{
		State:     StateSearching,
		Query:     q,
		Searched:  c.outcome.Searched,
		Searching: true,
		Results:   []result.Result{},
	}
	c.mu.Unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	out := Outcome{Query: q, Searched: true, Results: []result.Result{}}
	results, err := c.run(ctx, q)
	switch {
	case err != nil:
		out.State = StateFailed
		out.Err = err
	case len(results) == 0:
		out.State = StateEmpty
	default:
		out.State = StateResults
		out.Results = results
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.Debug("stale search discarded", zap.String("query", q))
		return out, err
	}
	c.outcome = out

	if err != nil {
		c.log.Warn("search failed", zap.String("query", q), zap.Error(err))
	} else {
		c.log.Debug("search completed", zap.String("query", q), zap.Int("results", len(out.Results)))
	}
	return out, err
}

func (c *Controller) run(ctx context.Context, q string) ([]result.Result, error) {
	raw, err := c.searcher.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	results, err := normalize.SearchResults(raw)
	if err != nil {
		return nil, domain.NewDecodeError("search", err)
	}
	return results, nil
}

// Outcome returns the current search state.
func (c *Controller) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Reset clears the query, results and searched flag. In-flight searches become stale.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.outcome = idle()
}
