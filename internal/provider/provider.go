// Package provider defines the contract an upstream rate provider adapter
// satisfies and the registry that resolves provider identities.
package provider

import (
	"context"

	"github.com/shopspring/decimal"

	"currency-gateway/internal"
)

// Adapter translates one provider's wire format into the domain model.
// Implementations apply the currency denylist before returning anything.
type Adapter interface {
	Identity() internal.ProviderIdentity

	FetchLatest(ctx context.Context, base internal.CurrencyCode) (internal.RateSnapshot, error)

	// FetchConversion issues a live amount-scaled query; the returned
	// snapshot holds the converted amount keyed by the target currency.
	FetchConversion(ctx context.Context, from, to internal.CurrencyCode, amount decimal.Decimal) (internal.RateSnapshot, error)

	FetchRange(ctx context.Context, base internal.CurrencyCode, start, end internal.Date) (internal.HistoricalDataset, error)
}

// Registry maps provider identities to adapters for the process lifetime.
type Registry struct {
	adapters map[internal.ProviderIdentity]Adapter
	fallback Adapter
}

func NewRegistry(fallback Adapter, others ...Adapter) *Registry {
	r := &Registry{
		adapters: make(map[internal.ProviderIdentity]Adapter, len(others)+1),
		fallback: fallback,
	}
	r.adapters[fallback.Identity()] = fallback
	for _, a := range others {
		r.adapters[a.Identity()] = a
	}
	return r
}

// Resolve returns the adapter for id. An unknown or empty identity resolves
// to the default adapter, keeping the gateway available to callers holding a
// stale provider name.
func (r *Registry) Resolve(id internal.ProviderIdentity) Adapter {
	if a, ok := r.adapters[id]; ok {
		return a
	}
	return r.fallback
}
