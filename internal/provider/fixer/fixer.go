// Package fixer adapts a Fixer-style API to the provider contract. The wire
// shape differs from Frankfurter: responses carry a success flag and the
// conversion path is emulated through a symbols query.
package fixer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"

	"github.com/shopspring/decimal"

	"currency-gateway/internal"
	"currency-gateway/internal/filter"
)

type HTTPClient interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

type Adapter struct {
	BaseURL string
	apiKey  string
	client  HTTPClient
	filter  *filter.CurrencyFilter
	log     *slog.Logger
}

func New(client HTTPClient, apiKey string, f *filter.CurrencyFilter, log *slog.Logger) *Adapter {
	return &Adapter{
		BaseURL: "https://data.fixer.io/api",
		apiKey:  apiKey,
		client:  client,
		filter:  f,
		log:     log,
	}
}

func (a *Adapter) Identity() internal.ProviderIdentity { return internal.ProviderFixer }

type latestResponse struct {
	Success bool                       `json:"success"`
	Base    internal.CurrencyCode      `json:"base"`
	Date    internal.Date              `json:"date"`
	Rates   map[string]json.RawMessage `json:"rates"`
}

func (a *Adapter) FetchLatest(ctx context.Context, base internal.CurrencyCode) (internal.RateSnapshot, error) {
	q := url.Values{}
	q.Set("base", base.String())

	return a.fetchSnapshot(ctx, "/latest", q)
}

func (a *Adapter) FetchConversion(ctx context.Context, from, to internal.CurrencyCode, amount decimal.Decimal) (internal.RateSnapshot, error) {
	q := url.Values{}
	q.Set("base", from.String())
	q.Set("symbols", to.String())

	snap, err := a.fetchSnapshot(ctx, "/latest", q)
	if err != nil {
		return internal.RateSnapshot{}, err
	}

	// Fixer quotes unit rates; scale them to the requested amount so the
	// snapshot matches the amount-scaled contract.
	scaled := make(map[internal.CurrencyCode]decimal.Decimal, len(snap.Rates))
	for ccy, rate := range snap.Rates {
		scaled[ccy] = rate.Mul(amount)
	}
	snap.Amount = amount
	snap.Rates = scaled

	return snap, nil
}

func (a *Adapter) FetchRange(ctx context.Context, base internal.CurrencyCode, start, end internal.Date) (internal.HistoricalDataset, error) {
	q := url.Values{}
	q.Set("base", base.String())
	q.Set("start_date", start.String())
	q.Set("end_date", end.String())

	body, err := a.get(ctx, "/timeseries", q)
	if err != nil {
		return nil, err
	}

	var out struct {
		Success bool                                  `json:"success"`
		Base    internal.CurrencyCode                 `json:"base"`
		Rates   map[string]map[string]json.RawMessage `json:"rates"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if !out.Success {
		return nil, errors.New("fixer reported failure")
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

	var out latestResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return internal.RateSnapshot{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if !out.Success {
		return internal.RateSnapshot{}, errors.New("fixer reported failure")
	}

	return internal.RateSnapshot{
		Amount: decimal.NewFromInt(1),
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
	if a.apiKey != "" {
		q.Set("access_key", a.apiKey)
	}
	u.RawQuery = q.Encode()

	return a.client.Get(ctx, u.String())
}

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
