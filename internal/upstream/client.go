// Package upstream issues HTTP calls to rate providers through a resilience
// pipeline: bounded retries with exponential backoff behind a circuit
// breaker, with a correlation id on every outbound request.
package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"currency-gateway/internal/metrics"
)

const maxBodyBytes = 1 << 20

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream http %d: %s", e.Code, e.Body)
}

type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the first.
	MaxRetries int
	// BaseDelay seeds the backoff sequence base, 2*base, 4*base, ...
	BaseDelay time.Duration
}

type Config struct {
	Timeout time.Duration
	Retry   RetryConfig
	Breaker BreakerConfig
}

func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  2 * time.Second,
		},
		Breaker: BreakerConfig{
			FailureRatio:   0.5,
			MinThroughput:  10,
			SamplingWindow: 30 * time.Second,
			BreakDuration:  30 * time.Second,
		},
	}
}

type Client struct {
	httpClient *http.Client
	breaker    *Breaker
	retry      RetryConfig
	log        *slog.Logger
	metrics    *metrics.Metrics

	// Sleep waits between retries; tests swap it out to observe the
	// backoff sequence without waiting it.
	Sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, log *slog.Logger, m *metrics.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    NewBreaker(cfg.Breaker, nil),
		retry:      cfg.Retry,
		log:        log,
		metrics:    m,
		Sleep:      sleep,
	}
}

// Breaker exposes the circuit breaker, so the composition root can watch
// its state.
func (c *Client) Breaker() *Breaker { return c.breaker }

// Get fetches rawURL. Transient failures (network errors, 5xx, 429) are
// retried with exponential backoff; anything else fails immediately. While
// the circuit is open every call fails fast with ErrCircuitOpen.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retry.BaseDelay << (attempt - 1)
			c.log.Debug("retrying upstream call", "url", rawURL, "attempt", attempt, "delay", delay)
			if err := c.Sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		if err := c.breaker.Allow(); err != nil {
			c.record("rejected")
			return nil, err
		}

		body, status, err := c.do(ctx, rawURL)
		if err != nil {
			c.breaker.RecordFailure()
			c.record("network_error")
			lastErr = err
			continue
		}

		switch {
		case status >= 200 && status < 300:
			c.breaker.RecordSuccess()
			c.record("success")
			return body, nil
		case status >= 500 || status == http.StatusTooManyRequests:
			c.breaker.RecordFailure()
			c.record("server_error")
			lastErr = &StatusError{Code: status, Body: string(body)}
		default:
			// The upstream answered; the request itself is bad. Not
			// a health signal and not worth retrying.
			c.breaker.RecordSuccess()
			c.record("client_error")
			return nil, &StatusError{Code: status, Body: string(body)}
		}
	}

	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}

	traceID := TraceID(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	req.Header.Set(TraceHeader, traceID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}

func (c *Client) record(outcome string) {
	if c.metrics != nil {
		c.metrics.UpstreamAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
