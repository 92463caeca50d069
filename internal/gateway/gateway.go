// Package gateway orchestrates providers, cache, filter and paginator to
// answer rate queries.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"currency-gateway/internal"
	"currency-gateway/internal/cache"
	"currency-gateway/internal/filter"
	"currency-gateway/internal/metrics"
	"currency-gateway/internal/paginate"
	"currency-gateway/internal/provider"
)

type Gateway struct {
	registry *provider.Registry
	cache    *cache.Cache
	filter   *filter.CurrencyFilter
	cacheTTL time.Duration
	log      *slog.Logger
	metrics  *metrics.Metrics
}

func New(registry *provider.Registry, c *cache.Cache, f *filter.CurrencyFilter, cacheTTL time.Duration, log *slog.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		registry: registry,
		cache:    c,
		filter:   f,
		cacheTTL: cacheTTL,
		log:      log,
		metrics:  m,
	}
}

func latestKey(base internal.CurrencyCode) string {
	return "latest:" + base.String()
}

// Page and page size stay out of the key: the cached value is the full
// unpaginated dataset.
func histKey(base internal.CurrencyCode, start, end internal.Date) string {
	return fmt.Sprintf("hist:%s:%s:%s", base, start, end)
}

// GetLatest returns the latest snapshot for base, served from cache within
// the TTL window.
func (g *Gateway) GetLatest(ctx context.Context, base internal.CurrencyCode, providerID internal.ProviderIdentity) (internal.RateSnapshot, error) {
	started := time.Now()

	base, err := internal.NewCurrencyCode(base.String())
	if err != nil {
		err = internal.Invalid("invalid_currency", err.Error())
		g.observe("latest", started, err)
		return internal.RateSnapshot{}, err
	}

	adapter := g.registry.Resolve(providerID)

	v, err := g.cache.GetOrFetch(ctx, latestKey(base), g.cacheTTL, func(ctx context.Context) (any, error) {
		g.log.Info("fetching latest rates", "base", base, "provider", adapter.Identity())
		snap, err := adapter.FetchLatest(ctx, base)
		if err != nil {
			return nil, &internal.UpstreamError{Provider: adapter.Identity(), Err: err}
		}
		return snap, nil
	})
	g.observe("latest", started, err)
	if err != nil {
		return internal.RateSnapshot{}, err
	}

	return v.(internal.RateSnapshot).Clone(), nil
}

// Convert answers a conversion query with a live amount-scaled upstream
// call. A target currency missing from the response is a normal negative
// result: found is false and err is nil.
func (g *Gateway) Convert(ctx context.Context, q internal.ConversionQuery, providerID internal.ProviderIdentity) (result internal.ConversionResult, found bool, err error) {
	started := time.Now()
	defer func() { g.observe("convert", started, err) }()

	if err = q.Validate(); err != nil {
		return internal.ConversionResult{}, false, err
	}
	from, _ := internal.NewCurrencyCode(q.From.String())
	to, _ := internal.NewCurrencyCode(q.To.String())

	if g.filter.InvolvesExcluded(from, to) {
		err = internal.Invalid("excluded_currency", "conversion not supported for excluded currencies")
		return internal.ConversionResult{}, false, err
	}

	adapter := g.registry.Resolve(providerID)

	g.log.Info("converting", "from", from, "to", to, "amount", q.Amount, "provider", adapter.Identity())
	snap, fetchErr := adapter.FetchConversion(ctx, from, to, q.Amount)
	if fetchErr != nil {
		err = &internal.UpstreamError{Provider: adapter.Identity(), Err: fetchErr}
		return internal.ConversionResult{}, false, err
	}

	converted, ok := snap.Rates[to]
	if !ok {
		return internal.ConversionResult{}, false, nil
	}

	return internal.ConversionResult{
		From:            from,
		To:              to,
		OriginalAmount:  q.Amount,
		ConvertedAmount: converted,
		Rate:            converted.Div(q.Amount),
		Date:            snap.Date,
	}, true, nil
}

// GetHistorical returns one page of the historical dataset for the query's
// range, fetching and caching the full dataset on a miss.
func (g *Gateway) GetHistorical(ctx context.Context, q internal.HistoricalQuery, providerID internal.ProviderIdentity) (paginate.Page[internal.HistoricalEntry], error) {
	started := time.Now()

	if err := q.Validate(); err != nil {
		g.observe("historical", started, err)
		return paginate.Page[internal.HistoricalEntry]{}, err
	}
	base, _ := internal.NewCurrencyCode(q.Base.String())

	adapter := g.registry.Resolve(providerID)

	v, err := g.cache.GetOrFetch(ctx, histKey(base, q.Start, q.End), g.cacheTTL, func(ctx context.Context) (any, error) {
		g.log.Info("fetching historical rates", "base", base, "start", q.Start, "end", q.End, "provider", adapter.Identity())
		dataset, err := adapter.FetchRange(ctx, base, q.Start, q.End)
		if err != nil {
			return nil, &internal.UpstreamError{Provider: adapter.Identity(), Err: err}
		}
		return dataset, nil
	})
	g.observe("historical", started, err)
	if err != nil {
		return paginate.Page[internal.HistoricalEntry]{}, err
	}

	page := paginate.Paginate(v.(internal.HistoricalDataset), q.Page, q.PageSize)
	for i := range page.Items {
		page.Items[i].Snapshot = page.Items[i].Snapshot.Clone()
	}
	return page, nil
}

func (g *Gateway) observe(op string, started time.Time, err error) {
	if g.metrics == nil {
		return
	}

	outcome := "success"
	var ve *internal.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &ve):
		outcome = "validation_error"
	default:
		outcome = "upstream_error"
	}

	g.metrics.RequestsTotal.WithLabelValues(op, outcome).Inc()
	g.metrics.RequestDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
