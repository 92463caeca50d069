package internal

import (
	"bytes"
	"fmt"
	"strings"
)

type CurrencyCode string

// NewCurrencyCode normalizes s to an uppercase three-letter code.
func NewCurrencyCode(s string) (CurrencyCode, error) {
	ccy := strings.ToUpper(strings.TrimSpace(s))
	if len(ccy) != 3 {
		return "", fmt.Errorf("invalid currency code %q", s)
	}
	for _, r := range ccy {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid currency code %q", s)
		}
	}
	return CurrencyCode(ccy), nil
}

func (c CurrencyCode) String() string { return string(c) }

func (c CurrencyCode) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", string(c))), nil
}

func (c *CurrencyCode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	s := strings.Trim(string(b), "\"")
	ccy, err := NewCurrencyCode(s)
	if err != nil {
		return err
	}
	*c = ccy
	return nil
}
