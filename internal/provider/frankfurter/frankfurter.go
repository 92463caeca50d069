// Package frankfurter adapts the Frankfurter API (api.frankfurter.app) to
// the provider contract.
package frankfurter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"

	"github.com/shopspring/decimal"

	"currency-gateway/internal"
	"currency-gateway/internal/filter"
)

// HTTPClient is the resilient transport the adapter sends requests through.
type HTTPClient interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Adapter struct {
	BaseURL string
	client  HTTPClient
	filter  *filter.CurrencyFilter
	log     *slog.Logger
}

func New(client HTTPClient, f *filter.CurrencyFilter, log *slog.Logger) *Adapter {
	return &Adapter{
		BaseURL: "https://api.frankfurter.app",
		client:  client,
		filter:  f,
		log:     log,
	}
}

func (a *Adapter) Identity() internal.ProviderIdentity { return internal.ProviderFrankfurter }

type snapshotResponse struct {
	Amount decimal.Decimal            `json:"amount"`
	Base   internal.CurrencyCode      `json:"base"`
	Date   internal.Date              `json:"date"`
	Rates  map[string]json.RawMessage `json:"rates"`
}

func (a *Adapter) FetchLatest(ctx context.Context, base internal.CurrencyCode) (internal.RateSnapshot, error) {
	q := url.Values{}
	q.Set("from", base.String())

	return a.fetchSnapshot(ctx, "/latest", q)
}

func (a *Adapter) FetchConversion(ctx context.Context, from, to internal.CurrencyCode, amount decimal.Decimal) (internal.RateSnapshot, error) {
	q := url.Values{}
	q.Set("amount", amount.String())
	q.Set("from", from.String())
	q.Set("to", to.String())

	return a.fetchSnapshot(ctx, "/latest", q)
}

func (a *Adapter) FetchRange(ctx context.Context, base internal.CurrencyCode, start, end internal.Date) (internal.HistoricalDataset, error) {
	q := url.Values{}
	q.Set("from", base.String())

	body, err := a.get(ctx, fmt.Sprintf("/%s..%s", start, end), q)
	if err != nil {
		return nil, err
	}

	var out struct {
		Base  internal.CurrencyCode                 `json:"base"`
		Rates map[string]map[string]json.RawMessage `json:"rates"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	dataset := make(internal.HistoricalDataset, 0, len(out.Rates))
	for dateStr, day := range out.Rates {
		date, err := internal.ParseDate(dateStr)
		if err != nil {
			a.log.Debug("dropping unparseable date", "date", dateStr)
			continue
		}
		dataset = append(dataset, internal.HistoricalEntry{
			Date: date,
			Snapshot: internal.RateSnapshot{
				Amount: decimal.NewFromInt(1),
				Base:   base,
				Date:   date,
				Rates:  a.parseRates(day),
			},
		})
	}

	sort.Slice(dataset, func(i, j int) bool {
		return dataset[i].Date.Before(dataset[j].Date.Time)
	})

	return dataset, nil
}

func (a *Adapter) fetchSnapshot(ctx context.Context, endpoint string, q url.Values) (internal.RateSnapshot, error) {
	body, err := a.get(ctx, endpoint, q)
	if err != nil {
		return internal.RateSnapshot{}, err
	}

	var out snapshotResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return internal.RateSnapshot{}, fmt.Errorf("unmarshal response: %w", err)
	}

	amount := out.Amount
	if amount.IsZero() {
		amount = decimal.NewFromInt(1)
	}

	return internal.RateSnapshot{
		Amount: amount,
		Base:   out.Base,
		Date:   out.Date,
		Rates:  a.parseRates(out.Rates),
	}, nil
}

func (a *Adapter) get(ctx context.Context, endpoint string, q url.Values) ([]byte, error) {
	u, err := url.Parse(a.BaseURL + endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	u.RawQuery = q.Encode()

	return a.client.Get(ctx, u.String())
}

// parseRates keeps well-formed entries, drops the rest, and strips the
// denylist.
func (a *Adapter) parseRates(raw map[string]json.RawMessage) map[internal.CurrencyCode]decimal.Decimal {
	rates := make(map[internal.CurrencyCode]decimal.Decimal, len(raw))
	for code, value := range raw {
		ccy, err := internal.NewCurrencyCode(code)
		if err != nil {
			a.log.Debug("dropping invalid currency code", "code", code)
			continue
		}
		var rate decimal.Decimal
		if err := json.Unmarshal(value, &rate); err != nil {
			a.log.Debug("dropping unparseable rate", "code", code)
			continue
		}
		rates[ccy] = rate
	}
	return a.filter.FilterMap(rates)
}
