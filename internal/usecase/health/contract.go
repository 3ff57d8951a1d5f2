package health

import "context"

// Checker checks availability of a remote collaborator.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CachePinger checks availability of the detail cache store.
type CachePinger interface {
	Ping(ctx context.Context) error
}
