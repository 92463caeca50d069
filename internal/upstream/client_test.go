package upstream_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"currency-gateway/internal/upstream"
)

func newTestClient(cfg upstream.Config) (*upstream.Client, *[]time.Duration) {
	delays := &[]time.Duration{}
	c := upstream.New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	c.Sleep = func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return c, delays
}

func testClientConfig() upstream.Config {
	cfg := upstream.DefaultConfig()
	cfg.Timeout = 5 * time.Second
	return cfg
}

func TestClient_Get(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, delays := newTestClient(testClientConfig())

	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, 1, hits)
	assert.Empty(t, *delays)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, delays := newTestClient(testClientConfig())

	body, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, 3, hits)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *delays)
}

func TestClient_RetriesTooManyRequests(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(testClientConfig())

	_, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}

func TestClient_RetriesExhausted(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, delays := newTestClient(testClientConfig())

	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorContains(t, err, "retries exhausted")

	var statusErr *upstream.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)

	assert.Equal(t, 4, hits)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, *delays)
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "no such endpoint", http.StatusNotFound)
	}))
	defer srv.Close()

	c, delays := newTestClient(testClientConfig())

	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)

	var statusErr *upstream.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Code)

	assert.Equal(t, 1, hits)
	assert.Empty(t, *delays)
}

func TestClient_NetworkErrorRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse every connection

	c, delays := newTestClient(testClientConfig())

	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorContains(t, err, "retries exhausted")
	assert.Len(t, *delays, 3)
}

func TestClient_CircuitFailsFast(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testClientConfig()
	cfg.Retry.MaxRetries = 0
	cfg.Breaker.MinThroughput = 2
	c, _ := newTestClient(cfg)

	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	_, err = c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	require.Equal(t, upstream.StateOpen, c.Breaker().State())

	before := hits
	_, err = c.Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, upstream.ErrCircuitOpen)
	assert.Equal(t, before, hits, "open circuit must not reach the server")
}

func TestClient_PropagatesTraceID(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(upstream.TraceHeader)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(testClientConfig())

	ctx := upstream.WithTraceID(context.Background(), "trace-123")
	_, err := c.Get(ctx, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "trace-123", got)
}

func TestClient_GeneratesTraceIDWhenMissing(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(upstream.TraceHeader)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(testClientConfig())

	_, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
}

func TestClient_SleepAbortsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := upstream.New(testClientConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Get(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}
