// Package memory implements db.Store in process with go-cache.
package memory

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sagar-developer08/idp/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// DefaultCleanupInterval is how often expired entries are purged.
const DefaultCleanupInterval = 10 * time.Minute

// Store keeps values in process memory. Values are copied in and out.
type Store struct {
	cache *cache.Cache
}

// NewStore creates a store whose Set entries never expire; SetWithTTL sets its own expiry.
func NewStore(cleanupInterval time.Duration) *Store {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &Store{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close drops all entries.
func (s *Store) Close() { s.cache.Flush() }

// WaitForReady returns immediately.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	x, found := s.cache.Get(key)
	if !found {
		return nil, db.ErrKeyNotFound
	}
	v, _ := x.([]byte)
	return append([]byte(nil), v...), nil
}

// Set stores a value without expiry.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.cache.Set(key, append([]byte(nil), value...), cache.NoExpiration)
	return nil
}

// SetWithTTL stores a value with an expiration. A non-positive ttl stores without expiry.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	s.cache.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Del removes a key.
func (s *Store) Del(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
