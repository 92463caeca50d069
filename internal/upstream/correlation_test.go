package upstream_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"currency-gateway/internal/upstream"
)

func TestTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, upstream.TraceID(ctx))

	ctx = upstream.WithTraceID(ctx, "abc")
	assert.Equal(t, "abc", upstream.TraceID(ctx))
}

func TestEnsureTraceID(t *testing.T) {
	ctx, id := upstream.EnsureTraceID(context.Background())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, upstream.TraceID(ctx))

	ctx2, id2 := upstream.EnsureTraceID(ctx)
	assert.Equal(t, id, id2)
	assert.Equal(t, ctx, ctx2)
}
