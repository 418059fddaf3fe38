package enums

import "strings"

// Currency is an ISO 4217 code accepted for order totals.
type Currency string

const (
	CurrencyZAR Currency = "ZAR"
	CurrencyUSD Currency = "USD"
)

var currencies = members[Currency]{CurrencyZAR, CurrencyUSD}

func (c Currency) String() string { return string(c) }

// Lower is the form Stripe expects.
func (c Currency) Lower() string { return strings.ToLower(string(c)) }

func (c Currency) IsValid() bool { return currencies.has(c) }

// ParseCurrency accepts any case and surrounding space.
func ParseCurrency(value string) (Currency, error) {
	return currencies.parse("currency", value, upperTrim)
}
