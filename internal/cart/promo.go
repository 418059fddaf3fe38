package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/money"
)

// Promo is a percentage discount on the cart subtotal.
type Promo struct {
	Code    string
	Percent decimal.Decimal
}

var promos = map[string]Promo{
	"FRESH10": {Code: "FRESH10", Percent: decimal.NewFromInt(10)},
}

// LookupPromo resolves a code case-insensitively. An empty code yields the zero
// Promo, which discounts nothing.
func LookupPromo(code string) (Promo, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return Promo{}, nil
	}
	promo, ok := promos[normalized]
	if !ok {
		return Promo{}, pkgerrors.Validation(pkgerrors.FieldErrors{"promo_code": "invalid promo code"})
	}
	return promo, nil
}

// Discount returns the discount in cents, capped at the subtotal.
func (p Promo) Discount(subtotalCents int64) int64 {
	if p.Code == "" || subtotalCents <= 0 {
		return 0
	}
	discount := money.Percent(subtotalCents, p.Percent)
	if discount > subtotalCents {
		return subtotalCents
	}
	return discount
}
