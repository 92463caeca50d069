package upstream

import (
	"context"

	"github.com/google/uuid"
)

// TraceHeader carries the correlation identifier across service boundaries.
const TraceHeader = "X-Trace-Id"

type traceIDKey struct{}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

// TraceID returns the correlation id stored in ctx, or "" if none is set.
func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// EnsureTraceID returns ctx carrying a correlation id, generating one when
// the caller did not supply it.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if id := TraceID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithTraceID(ctx, id), id
}
