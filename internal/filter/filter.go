// Package filter holds the denylist of currencies excluded from all rate
// data and conversions.
package filter

import (
	"strings"

	"github.com/shopspring/decimal"

	"currency-gateway/internal"
)

type CurrencyFilter struct {
	excluded map[internal.CurrencyCode]struct{}
}

func New(codes ...internal.CurrencyCode) *CurrencyFilter {
	f := &CurrencyFilter{excluded: make(map[internal.CurrencyCode]struct{}, len(codes))}
	for _, c := range codes {
		f.excluded[normalize(c)] = struct{}{}
	}
	return f
}

// Default returns the stock denylist.
func Default() *CurrencyFilter {
	return New("TRY", "PLN", "THB", "MXN")
}

func (f *CurrencyFilter) IsExcluded(code internal.CurrencyCode) bool {
	_, ok := f.excluded[normalize(code)]
	return ok
}

func (f *CurrencyFilter) InvolvesExcluded(from, to internal.CurrencyCode) bool {
	return f.IsExcluded(from) || f.IsExcluded(to)
}

// FilterMap returns a new map with all denylisted codes removed. The input
// map is left untouched.
func (f *CurrencyFilter) FilterMap(rates map[internal.CurrencyCode]decimal.Decimal) map[internal.CurrencyCode]decimal.Decimal {
	out := make(map[internal.CurrencyCode]decimal.Decimal, len(rates))
	for ccy, rate := range rates {
		if f.IsExcluded(ccy) {
			continue
		}
		out[ccy] = rate
	}
	return out
}

func normalize(c internal.CurrencyCode) internal.CurrencyCode {
	return internal.CurrencyCode(strings.ToUpper(strings.TrimSpace(string(c))))
}
