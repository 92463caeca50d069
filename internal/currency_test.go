package internal_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"currency-gateway/internal"
)

func TestNewCurrencyCode_Normalizes(t *testing.T) {
	ccy, err := internal.NewCurrencyCode("  usd ")
	require.NoError(t, err)
	assert.Equal(t, internal.CurrencyCode("USD"), ccy)
}

func TestNewCurrencyCode_Rejects(t *testing.T) {
	for _, bad := range []string{"", "US", "USDX", "U1D", "??!"} {
		_, err := internal.NewCurrencyCode(bad)
		assert.Error(t, err, "code %q", bad)
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := internal.NewDate(2024, time.January, 2)

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-02"`, string(b))

	var back internal.Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(d))
}

func TestDate_UnmarshalNull(t *testing.T) {
	var d internal.Date
	require.NoError(t, json.Unmarshal([]byte("null"), &d))
	assert.True(t, d.IsZero())
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := internal.ParseDate("02.01.2024")
	assert.Error(t, err)
}

func TestConversionQuery_Validate(t *testing.T) {
	q := internal.ConversionQuery{From: "USD", To: "EUR", Amount: decimal.NewFromInt(10)}
	assert.NoError(t, q.Validate())

	q.Amount = decimal.Zero
	err := q.Validate()
	require.Error(t, err)
	var ve *internal.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "invalid_amount", ve.Code)

	q = internal.ConversionQuery{From: "US", To: "EUR", Amount: decimal.NewFromInt(1)}
	assert.Error(t, q.Validate())
}

func TestHistoricalQuery_Validate(t *testing.T) {
	valid := internal.HistoricalQuery{
		Base:     "EUR",
		Start:    internal.NewDate(2024, time.January, 1),
		End:      internal.NewDate(2024, time.January, 3),
		Page:     1,
		PageSize: 10,
	}
	assert.NoError(t, valid.Validate())

	flipped := valid
	flipped.Start, flipped.End = flipped.End, flipped.Start
	assert.Error(t, flipped.Validate())

	missing := valid
	missing.Start = internal.Date{}
	assert.Error(t, missing.Validate())

	badPage := valid
	badPage.Page = 0
	assert.Error(t, badPage.Validate())

	badSize := valid
	badSize.PageSize = 0
	assert.Error(t, badSize.Validate())
}

func TestRateSnapshot_CloneIsIndependent(t *testing.T) {
	snap := internal.RateSnapshot{
		Amount: decimal.NewFromInt(1),
		Base:   "EUR",
		Date:   internal.NewDate(2024, time.January, 2),
		Rates: map[internal.CurrencyCode]decimal.Decimal{
			"USD": decimal.RequireFromString("1.09"),
		},
	}

	clone := snap.Clone()
	clone.Rates["USD"] = decimal.Zero
	clone.Rates["GBP"] = decimal.NewFromInt(1)

	assert.True(t, snap.Rates["USD"].Equal(decimal.RequireFromString("1.09")))
	assert.NotContains(t, snap.Rates, internal.CurrencyCode("GBP"))
}
