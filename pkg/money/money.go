// Package money converts between integer minor units and decimal amounts.
// Amounts are stored as int64 cents everywhere; decimals only appear at the edges
// (request parsing, gateway payloads, report formatting).
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FromDecimal rounds d half away from zero to two places and returns cents.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// ToDecimal converts cents into a two-place decimal.
func ToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FromFloat converts a float amount such as 5.5 into cents.
func FromFloat(amount float64) int64 {
	return FromDecimal(decimal.NewFromFloat(amount))
}

// ParseAmount parses a string such as "25.50" or "25" into cents.
func ParseAmount(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return FromDecimal(d), nil
}

// Format renders cents with exactly two decimals, e.g. 4550 -> "45.50".
func Format(cents int64) string {
	return ToDecimal(cents).StringFixed(2)
}

// Units returns the amount in major units as a float for display heuristics.
func Units(cents int64) float64 {
	f, _ := ToDecimal(cents).Float64()
	return f
}

// Percent returns pct percent of cents, rounded to the nearest cent.
func Percent(cents int64, pct decimal.Decimal) int64 {
	return FromDecimal(ToDecimal(cents).Mul(pct).Div(hundred))
}

// Average divides total cents by count and rounds to the nearest cent.
func Average(total int64, count int) int64 {
	if count <= 0 {
		return 0
	}
	return FromDecimal(ToDecimal(total).Div(decimal.NewFromInt(int64(count))))
}
