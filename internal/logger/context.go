package logger

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// WithRequest returns base tagged with the chi request id of ctx, stored in the returned context.
// Handlers and background detail fetches started from the request log under the same id.
func WithRequest(ctx context.Context, base *zap.Logger) (context.Context, *zap.Logger) {
	if base == nil {
		base = zap.NewNop()
	}
	l := base
	if id := middleware.GetReqID(ctx); id != "" {
		l = base.With(zap.String("request_id", id))
	}
	return ContextWithLogger(ctx, l), l
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	return FromContextOr(ctx, nil)
}

// FromContextOr extracts a logger from the context. Without one it falls back to
// fallback, tagged with the request id when the context carries one.
func FromContextOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	_, l := WithRequest(ctx, fallback)
	return l
}
