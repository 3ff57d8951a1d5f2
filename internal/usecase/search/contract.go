package search

import "context"

// Searcher queries the search collaborator and returns its raw response.
type Searcher interface {
	Search(ctx context.Context, query string) ([]byte, error)
}
