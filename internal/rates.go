package internal

import (
	"github.com/shopspring/decimal"
)

// RateSnapshot is a point-in-time set of exchange rates quoted against Base.
type RateSnapshot struct {
	Amount decimal.Decimal                  `json:"amount"`
	Base   CurrencyCode                     `json:"base"`
	Date   Date                             `json:"date"`
	Rates  map[CurrencyCode]decimal.Decimal `json:"rates"`
}

// Clone returns a copy with its own rate map, so cached snapshots are never
// handed out by reference.
func (s RateSnapshot) Clone() RateSnapshot {
	out := s
	out.Rates = make(map[CurrencyCode]decimal.Decimal, len(s.Rates))
	for ccy, rate := range s.Rates {
		out.Rates[ccy] = rate
	}
	return out
}

type ConversionQuery struct {
	From   CurrencyCode    `json:"from"`
	To     CurrencyCode    `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

func (q ConversionQuery) Validate() error {
	if _, err := NewCurrencyCode(string(q.From)); err != nil {
		return Invalid("invalid_currency", err.Error())
	}
	if _, err := NewCurrencyCode(string(q.To)); err != nil {
		return Invalid("invalid_currency", err.Error())
	}
	if !q.Amount.IsPositive() {
		return Invalid("invalid_amount", "amount must be positive")
	}
	return nil
}

type ConversionResult struct {
	From            CurrencyCode    `json:"from"`
	To              CurrencyCode    `json:"to"`
	OriginalAmount  decimal.Decimal `json:"originalAmount"`
	ConvertedAmount decimal.Decimal `json:"convertedAmount"`
	Rate            decimal.Decimal `json:"rate"`
	Date            Date            `json:"date"`
}

type HistoricalQuery struct {
	Base     CurrencyCode `json:"base"`
	Start    Date         `json:"startDate"`
	End      Date         `json:"endDate"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}

func (q HistoricalQuery) Validate() error {
	if _, err := NewCurrencyCode(string(q.Base)); err != nil {
		return Invalid("invalid_currency", err.Error())
	}
	if q.Start.IsZero() || q.End.IsZero() {
		return Invalid("invalid_date_range", "start and end dates are required")
	}
	if q.Start.After(q.End.Time) {
		return Invalid("invalid_date_range", "start date must not be after end date")
	}
	if q.Page < 1 {
		return Invalid("invalid_page", "page must be >= 1")
	}
	if q.PageSize < 1 {
		return Invalid("invalid_page", "pageSize must be >= 1")
	}
	return nil
}

// HistoricalEntry is one day of a historical range.
type HistoricalEntry struct {
	Date     Date         `json:"date"`
	Snapshot RateSnapshot `json:"snapshot"`
}

// HistoricalDataset is sorted ascending by date, one entry per day.
type HistoricalDataset []HistoricalEntry

func (d HistoricalDataset) Clone() HistoricalDataset {
	out := make(HistoricalDataset, len(d))
	for i, e := range d {
		out[i] = HistoricalEntry{Date: e.Date, Snapshot: e.Snapshot.Clone()}
	}
	return out
}
