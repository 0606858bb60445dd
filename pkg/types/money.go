package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatCents renders minor units as a two-decimal amount, e.g. 1050 -> "10.50".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParsePriceCents converts a decimal currency string into minor units. The
// amount must be positive with at most two fractional digits.
func ParsePriceCents(raw string) (int64, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("price must be a decimal amount")
	}
	if !amount.IsPositive() {
		return 0, fmt.Errorf("price must be greater than zero")
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return 0, fmt.Errorf("price supports at most two decimal places")
	}
	return amount.Shift(2).IntPart(), nil
}
