package detail

import "context"

// Fetcher retrieves the raw detail record of a document by its server id.
type Fetcher interface {
	FetchDetail(ctx context.Context, serverID string) ([]byte, error)
}

// uncachedFetcher is implemented by caching fetchers. Documents that are not final
// are fetched through it so a partial record is never cached.
type uncachedFetcher interface {
	FetchDetailUncached(ctx context.Context, serverID string) ([]byte, error)
}
