// Package cache is an in-process TTL cache with single-flight fetch
// coordination: at most one upstream fetch is in flight per key, and every
// concurrent caller for that key shares its outcome.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"currency-gateway/internal/metrics"
)

// Clock supplies the current time; tests inject a fake.
type Clock func() time.Time

type entry struct {
	value     any
	expiresAt time.Time
}

type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	flight  singleflight.Group
	now     Clock
	log     *slog.Logger
	metrics *metrics.Metrics
}

func New(now Clock, log *slog.Logger, m *metrics.Metrics) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		entries: make(map[string]entry),
		now:     now,
		log:     log,
		metrics: m,
	}
}

// GetOrFetch returns the cached value for key if present and unexpired.
// Otherwise it runs fetch once, stores the result with now+ttl, and hands it
// to every waiter. A failed fetch is propagated to all waiters and nothing
// is stored. Cancelling ctx releases only this caller; the shared fetch
// keeps running for the others.
func (c *Cache) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := c.lookup(key); ok {
		c.recordHit(key)
		return v, nil
	}
	c.recordMiss(key)

	ch := c.flight.DoChan(key, func() (any, error) {
		// A previous flight may have populated the key while we queued.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.store(key, v, ttl)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) lookup(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) store(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
}

// ClearExpired drops entries whose TTL has elapsed. The warm-refresh job
// calls it so abandoned keys do not pile up.
func (c *Cache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *Cache) recordHit(key string) {
	if c.log != nil {
		c.log.Debug("cache hit", "key", key)
	}
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *Cache) recordMiss(key string) {
	if c.log != nil {
		c.log.Debug("cache miss", "key", key)
	}
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
