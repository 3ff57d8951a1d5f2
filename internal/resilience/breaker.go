// Package resilience short-circuits calls to a collaborator that keeps failing.
// Calls are never retried: a failed request surfaces to its caller as is.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/sagar-developer08/idp/internal/domain"
)

// Classifier reports whether err counts as a collaborator failure for the breaker.
type Classifier func(err error) bool

// Breaker keeps one circuit breaker per operation name.
type Breaker struct {
	cfg Config
	log *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

// NewBreaker creates a Breaker. log can be nil.
func NewBreaker(cfg Config, log *zap.Logger) *Breaker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Breaker{
		cfg:      cfg.normalize(),
		log:      log,
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

// Execute runs fn under the breaker for operation. When the breaker is open the call is
// rejected with an error matching domain.ErrCircuitOpen and domain.ErrTransport.
func (b *Breaker) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) ([]byte, error),
	classify Classifier,
) ([]byte, error) {
	if fn == nil {
		return nil, fmt.Errorf("resilience: operation callback is nil")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classify == nil {
		classify = DefaultClassifier
	}

	if b == nil || !b.cfg.Enabled {
		return fn(ctx)
	}

	body, err := b.circuitBreaker(op, classify).Execute(func() ([]byte, error) {
		return fn(ctx)
	})
	if IsCircuitOpen(err) {
		return nil, domain.NewTransportError(op, fmt.Errorf("%w: %w", domain.ErrCircuitOpen, err))
	}
	return body, err
}

// State returns the breaker state of operation, "closed" when it was never used.
func (b *Breaker) State(operation string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[operation]; ok {
		return cb.State().String()
	}
	return gobreaker.StateClosed.String()
}

func (b *Breaker) circuitBreaker(operation string, classify Classifier) *gobreaker.CircuitBreaker[[]byte] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[operation]; ok {
		return cb
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: b.cfg.HalfOpenMaxCalls,
		Timeout:     b.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < b.cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= b.cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.Warn("circuit_breaker_state_change",
				zap.String("operation", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](settings)
	b.breakers[operation] = cb
	return cb
}

// IsCircuitOpen reports whether err was produced by an open or saturated breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) ||
		errors.Is(err, domain.ErrCircuitOpen)
}

// DefaultClassifier records every error except caller cancellation.
func DefaultClassifier(err error) bool {
	return !errors.Is(err, context.Canceled)
}
