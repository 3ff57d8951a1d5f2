package detailcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/sagar-developer08/idp/internal/db"
	"github.com/sagar-developer08/idp/internal/db/memory"
	"github.com/sagar-developer08/idp/internal/domain"
)

type mockFetcher struct {
	raw   []byte
	err   error
	calls int
}

func (m *mockFetcher) FetchDetail(_ context.Context, _ string) ([]byte, error) {
	m.calls++
	return m.raw, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	delFn func(ctx context.Context, key string) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func (m *mockKVStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_detail_cache_total"}, []string{"result"})
}

func TestFetchDetail_MissThenHit(t *testing.T) {
	inner := &mockFetcher{raw: []byte(`{"document_summary":"x"}`)}
	counter := newCounter()
	c := New(inner, memory.NewStore(time.Minute), time.Hour, counter, zap.NewNop())
	ctx := context.Background()

	for range 3 {
		raw, err := c.FetchDetail(ctx, "d1")
		if err != nil {
			t.Fatalf("FetchDetail: %v", err)
		}
		if string(raw) != `{"document_summary":"x"}` {
			t.Errorf("raw = %s", raw)
		}
	}

	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
}

func TestFetchDetail_ErrorsNotCached(t *testing.T) {
	inner := &mockFetcher{err: domain.NewTransportError("fetch_detail", errors.New("refused"))}
	stored := false
	s := &mockKVStore{setFn: func(context.Context, string, []byte, time.Duration) error {
		stored = true
		return nil
	}}
	c := New(inner, s, time.Hour, nil, nil)

	_, err := c.FetchDetail(context.Background(), "d1")
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if stored {
		t.Error("failed fetch was cached")
	}
}

func TestFetchDetail_StoreFailuresFallThrough(t *testing.T) {
	inner := &mockFetcher{raw: []byte(`{}`)}
	s := &mockKVStore{
		getFn: func(context.Context, string) ([]byte, error) {
			return nil, &db.Error{Op: db.OpGet, Err: errors.New("connection reset")}
		},
		setFn: func(context.Context, string, []byte, time.Duration) error {
			return &db.Error{Op: db.OpSet, Err: errors.New("READONLY")}
		},
	}
	c := New(inner, s, time.Hour, nil, nil)

	raw, err := c.FetchDetail(context.Background(), "d1")
	if err != nil || string(raw) != `{}` {
		t.Fatalf("raw=%s err=%v", raw, err)
	}
}

func TestFetchDetail_KeyAndTTL(t *testing.T) {
	var gotKey string
	var gotTTL time.Duration
	s := &mockKVStore{setFn: func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
		gotKey, gotTTL = key, ttl
		return nil
	}}
	c := New(&mockFetcher{raw: []byte(`{}`)}, s, 15*time.Minute, nil, nil)

	if _, err := c.FetchDetail(context.Background(), "abc"); err != nil {
		t.Fatalf("FetchDetail: %v", err)
	}
	if gotKey != "idp:detail:abc" || gotTTL != 15*time.Minute {
		t.Errorf("key=%q ttl=%v", gotKey, gotTTL)
	}
}

func TestInvalidate(t *testing.T) {
	inner := &mockFetcher{raw: []byte(`{}`)}
	c := New(inner, memory.NewStore(time.Minute), time.Hour, nil, nil)
	ctx := context.Background()

	_, _ = c.FetchDetail(ctx, "d1")
	if err := c.Invalidate(ctx, "d1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	_, _ = c.FetchDetail(ctx, "d1")

	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2 after invalidate", inner.calls)
	}
}

func TestFetchDetailUncached_BypassesStore(t *testing.T) {
	inner := &mockFetcher{raw: []byte(`{"document_summary":"partial"}`)}
	counter := newCounter()
	store := &mockKVStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			t.Error("uncached fetch read the store")
			return nil, db.ErrKeyNotFound
		},
		setFn: func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
			t.Error("uncached fetch wrote the store")
			return nil
		},
	}
	c := New(inner, store, time.Hour, counter, zap.NewNop())

	for range 2 {
		raw, err := c.FetchDetailUncached(context.Background(), "d2")
		if err != nil {
			t.Fatalf("FetchDetailUncached: %v", err)
		}
		if string(raw) != `{"document_summary":"partial"}` {
			t.Errorf("raw = %s", raw)
		}
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("bypass")); got != 2 {
		t.Errorf("bypass = %v, want 2", got)
	}
}
