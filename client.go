package idp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sagar-developer08/idp/internal/db"
	"github.com/sagar-developer08/idp/internal/db/memory"
	dbredis "github.com/sagar-developer08/idp/internal/db/redis"
	"github.com/sagar-developer08/idp/internal/domain"
	domdetail "github.com/sagar-developer08/idp/internal/domain/detail"
	domdoc "github.com/sagar-developer08/idp/internal/domain/document"
	"github.com/sagar-developer08/idp/internal/domain/search/result"
	"github.com/sagar-developer08/idp/internal/metrics"
	"github.com/sagar-developer08/idp/internal/registry"
	"github.com/sagar-developer08/idp/internal/repository/detailcache"
	"github.com/sagar-developer08/idp/internal/resilience"
	"github.com/sagar-developer08/idp/internal/transport/backend"
	detailuc "github.com/sagar-developer08/idp/internal/usecase/detail"
	documentuc "github.com/sagar-developer08/idp/internal/usecase/document"
	healthuc "github.com/sagar-developer08/idp/internal/usecase/health"
	searchuc "github.com/sagar-developer08/idp/internal/usecase/search"
)

// Value types shared with the internal packages.
type (
	Document     = domdoc.Document
	Status       = domdoc.Status
	File         = domdoc.File
	Detail       = domdetail.Detail
	Snapshot     = registry.Snapshot
	DetailState  = detailuc.State
	SearchState  = searchuc.State
	Outcome      = searchuc.Outcome
	SearchResult = result.Result
	HealthReport = healthuc.Report
)

// Errors callers can match with errors.Is.
var (
	ErrTransport   = domain.ErrTransport
	ErrDecode      = domain.ErrDecode
	ErrCircuitOpen = domain.ErrCircuitOpen
	ErrNotFound    = domain.ErrNotFound
	ErrNoFiles     = documentuc.ErrNoFiles
	ErrConfig      = errors.New("invalid client configuration")
)

const defaultRedisReadiness = 10 * time.Second

// Client is the entry point of the SDK. It is safe for concurrent use.
type Client struct {
	docs    *documentuc.Service
	reg     *registry.Registry
	details *detailuc.Controller
	search  *searchuc.Controller
	health  *healthuc.Service
	cache   *detailcache.CachedFetcher
	store   db.Store
	obs     *observer

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New builds a Client and starts its progress ticker. ctx bounds the wait for a Redis
// detail cache; it does not bound the Client's lifetime, Close does.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(o.backendURL) == "" {
		return nil, fmt.Errorf("%w: backend url is required", ErrConfig)
	}
	if strings.TrimSpace(o.searchURL) == "" {
		return nil, fmt.Errorf("%w: search endpoint is required", ErrConfig)
	}
	if o.maxIncrement < 1 || o.maxIncrement > 15 {
		return nil, fmt.Errorf("%w: max increment must be in 1..15, got %d", ErrConfig, o.maxIncrement)
	}
	obs, err := newObserver(o.logger, o.metricsReg)
	if err != nil {
		return nil, err
	}

	transportOpts := []backend.Option{
		backend.WithRequestTimeout(o.requestTimeout),
		backend.WithUploadTimeout(o.uploadTimeout),
		backend.WithLogger(o.logger),
		backend.WithBreaker(resilience.NewBreaker(o.breaker, o.logger)),
	}
	if o.httpClient != nil {
		transportOpts = append(transportOpts, backend.WithHTTPClient(o.httpClient))
	}
	backendClient, err := backend.New(o.backendURL, transportOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	searchClient, err := backend.NewSearch(o.searchURL, transportOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	c := &Client{obs: obs}

	var fetcher detailuc.Fetcher = backendClient
	var cachePinger healthuc.CachePinger
	if o.cacheTTL > 0 {
		store, err := openStore(ctx, o)
		if err != nil {
			return nil, err
		}
		c.store = store
		c.cache = detailcache.New(backendClient, store, o.cacheTTL, metrics.DetailCacheTotal, o.logger)
		fetcher = c.cache
		cachePinger = store
	}

	c.reg = registry.New(registry.WithMaxIncrement(o.maxIncrement))
	c.docs = documentuc.New(backendClient, c.reg, o.logger)
	c.details = detailuc.New(fetcher, detailuc.WithTimeout(o.requestTimeout), detailuc.WithLogger(o.logger))
	c.search = searchuc.New(searchClient, searchuc.WithTimeout(o.requestTimeout), searchuc.WithLogger(o.logger))
	c.health = healthuc.New(backendClient, searchClient, cachePinger)

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.docs.Run(runCtx, o.tickInterval)
	}()

	if obs.enabled() {
		updates, unsubscribe := c.reg.Subscribe()
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			watchRegistry(updates, c.reg.Snapshot())
		}()
		context.AfterFunc(runCtx, unsubscribe)
	}

	return c, nil
}

func openStore(ctx context.Context, o options) (db.Store, error) {
	if o.redis == nil {
		return memory.NewStore(memory.DefaultCleanupInterval), nil
	}
	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    o.redis.Addrs,
		Username: o.redis.Username,
		Password: o.redis.Password,
		DB:       o.redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: redis detail cache: %w", ErrConfig, err)
	}
	timeout := o.redis.ReadinessTimeout
	if timeout <= 0 {
		timeout = defaultRedisReadiness
	}
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("redis detail cache not ready: %w", err)
	}
	return store, nil
}

// Documents returns the document registry operations.
func (c *Client) Documents() *Documents { return &Documents{c: c} }

// Details returns the detail fetch operations.
func (c *Client) Details() *Details { return &Details{c: c} }

// Search returns the search operations.
func (c *Client) Search() *Search { return &Search{c: c} }

// Health checks the backend, the search collaborator and the detail cache.
func (c *Client) Health(ctx context.Context) HealthReport {
	return c.health.Check(ctx)
}

// Close stops the progress ticker and releases the detail cache. It is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
		if c.store != nil {
			c.store.Close()
		}
	})
	return nil
}

// Documents groups the registry operations of a Client.
type Documents struct{ c *Client }

// Upload adds a pending entry per file, submits them and refreshes the listing.
// The pending ids are returned even on failure; those entries stay visible.
func (d *Documents) Upload(ctx context.Context, files []File) (ids []string, err error) {
	defer func(start time.Time) { d.c.obs.observe(opUpload, start, err) }(time.Now())
	return d.c.docs.Upload(ctx, files)
}

// Refresh replaces the registry with the server listing. On failure the last state is kept.
func (d *Documents) Refresh(ctx context.Context) (err error) {
	defer func(start time.Time) { d.c.obs.observe(opRefresh, start, err) }(time.Now())
	return d.c.docs.Refresh(ctx)
}

// Remove drops a document from the local registry. It reports whether it was present.
func (d *Documents) Remove(id string) bool { return d.c.docs.Remove(id) }

// Clear empties the local registry.
func (d *Documents) Clear() { d.c.docs.Clear() }

// Get returns the document with id, or an error matching ErrNotFound.
func (d *Documents) Get(id string) (Document, error) { return d.c.docs.Get(id) }

// Snapshot returns the documents and their aggregates.
func (d *Documents) Snapshot() Snapshot { return d.c.docs.Snapshot() }

// Subscribe delivers a snapshot after every registry change until cancel is called.
func (d *Documents) Subscribe() (<-chan Snapshot, func()) { return d.c.reg.Subscribe() }

// Details groups the detail fetch operations of a Client.
type Details struct{ c *Client }

// Select makes the document with id current and fetches its detail.
// Only the latest selection is ever committed to State.
func (d *Details) Select(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { d.c.obs.observe(opSelect, start, err) }(time.Now())
	doc, err := d.c.docs.Get(id)
	if err != nil {
		return err
	}
	return d.c.details.Select(ctx, doc)
}

// Refetch drops any cached detail of the document with id and selects it again.
func (d *Details) Refetch(ctx context.Context, id string) error {
	doc, err := d.c.docs.Get(id)
	if err != nil {
		return err
	}
	if d.c.cache != nil && doc.HasServerID() {
		if err := d.c.cache.Invalidate(ctx, doc.ServerID); err != nil {
			return fmt.Errorf("invalidate detail: %w", err)
		}
	}
	return d.Select(ctx, id)
}

// State returns the current selection, its loading flag and the committed detail or error.
func (d *Details) State() DetailState { return d.c.details.State() }

// Clear drops the selection.
func (d *Details) Clear() { d.c.details.Clear() }

// Search groups the search operations of a Client.
type Search struct{ c *Client }

// Query runs a search. A query that trims to empty leaves the outcome unchanged.
func (s *Search) Query(ctx context.Context, q string) (out Outcome, err error) {
	if strings.TrimSpace(q) == "" {
		return s.c.search.Outcome(), nil
	}
	defer func(start time.Time) {
		s.c.obs.observe(opSearch, start, err)
		if s.c.obs.enabled() {
			metrics.SearchOutcomesTotal.WithLabelValues(string(out.State)).Inc()
		}
	}(time.Now())
	return s.c.search.Search(ctx, q)
}

// Outcome returns the current search state.
func (s *Search) Outcome() Outcome { return s.c.search.Outcome() }

// Reset clears the query, the results and the searched flag.
func (s *Search) Reset() { s.c.search.Reset() }
