// Package detailcache caches raw document-detail records in a key-value store.
package detailcache

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sagar-developer08/idp/internal/db"
)

// KeyPrefix namespaces detail records in a shared store.
const KeyPrefix = "idp:detail:"

// Fetcher is the uncached detail source.
type Fetcher interface {
	FetchDetail(ctx context.Context, serverID string) ([]byte, error)
}

// store is the consumer interface for the detail cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CachedFetcher serves detail records from a store and falls through to the inner fetcher on a miss.
// Only successful responses are cached.
type CachedFetcher struct {
	inner      Fetcher
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"bypass"), passed explicitly; it can be nil.
func New(
	inner Fetcher,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedFetcher{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// FetchDetail returns the cached record or fetches and caches it.
func (c *CachedFetcher) FetchDetail(ctx context.Context, serverID string) ([]byte, error) {
	key := cacheKey(serverID)

	if raw, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return raw, nil
	}

	c.incCache("miss")

	raw, err := c.inner.FetchDetail(ctx, serverID)
	if err != nil {
		return nil, err //nolint:wrapcheck // inner errors already carry the operation
	}

	c.putToCache(ctx, key, raw)
	return raw, nil
}

// FetchDetailUncached fetches from the inner fetcher without reading or writing the cache.
// Records of documents still being processed change on the backend and must not be cached.
func (c *CachedFetcher) FetchDetailUncached(ctx context.Context, serverID string) ([]byte, error) {
	c.incCache("bypass")
	return c.inner.FetchDetail(ctx, serverID) //nolint:wrapcheck // inner errors already carry the operation
}

// Invalidate drops the cached record of serverID.
func (c *CachedFetcher) Invalidate(ctx context.Context, serverID string) error {
	if err := c.store.Del(ctx, cacheKey(serverID)); err != nil {
		return err //nolint:wrapcheck // db.Error carries the op
	}
	return nil
}

func (c *CachedFetcher) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(serverID string) string {
	return KeyPrefix + serverID
}

func (c *CachedFetcher) getFromCache(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("detail cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

func (c *CachedFetcher) putToCache(ctx context.Context, key string, raw []byte) {
	if err := c.store.SetWithTTL(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("detail cache write failed", zap.String("key", key), zap.Error(err))
	}
}
