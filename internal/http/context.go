package http

import (
	"context"
	"log/slog"

	"github.com/example/capture-scheduler/internal/logging"
)

type contextKey string

const termIDContextKey contextKey = "term_id"

// ContextWithLogger returns a derived context carrying the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request logger or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithTermID injects the raw term identifier resolved from the request path.
func ContextWithTermID(ctx context.Context, termID string) context.Context {
	return context.WithValue(ctx, termIDContextKey, termID)
}

// TermIDFromContext extracts a term identifier previously associated with the context.
func TermIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(termIDContextKey).(string)
	return id, ok
}
