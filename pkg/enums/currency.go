package enums

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code, lowercase as the payment provider expects.
type Currency string

const (
	CurrencyUSD Currency = "usd"
	CurrencyEUR Currency = "eur"
	CurrencyGBP Currency = "gbp"
)

// symbols doubles as the set of supported currencies.
var symbols = map[Currency]string{
	CurrencyUSD: "$",
	CurrencyEUR: "€",
	CurrencyGBP: "£",
}

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool {
	_, ok := symbols[c]
	return ok
}

// Symbol is the display prefix for amounts; unknown codes fall back to "$".
func (c Currency) Symbol() string {
	if s, ok := symbols[c]; ok {
		return s
	}
	return symbols[CurrencyUSD]
}

// Format renders minor units with the currency symbol, e.g. 1050 -> "$10.50".
func (c Currency) Format(cents int64) string {
	return c.Symbol() + decimal.New(cents, -2).StringFixed(2)
}

func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", value)
	}
	return c, nil
}
