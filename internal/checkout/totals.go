package checkout

import (
	"strings"

	"github.com/farmersbracket/farmersbracket-backend/internal/cart"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

// GiftWrap is the wrapping style chosen at checkout.
type GiftWrap string

const (
	GiftWrapNone     GiftWrap = ""
	GiftWrapEco      GiftWrap = "eco"
	GiftWrapStandard GiftWrap = "standard"
	GiftWrapPremium  GiftWrap = "premium"
)

var giftWrapSurcharges = map[GiftWrap]int64{
	GiftWrapNone:     0,
	GiftWrapEco:      500,
	GiftWrapStandard: 1000,
	GiftWrapPremium:  1500,
}

// ParseGiftWrap normalizes a style; "none" and "disabled" mean no wrapping.
func ParseGiftWrap(value string) (GiftWrap, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "none" || normalized == "disabled" {
		return GiftWrapNone, nil
	}
	style := GiftWrap(normalized)
	if _, ok := giftWrapSurcharges[style]; !ok {
		return GiftWrapNone, pkgerrors.Validation(pkgerrors.FieldErrors{"gift_wrap": "unknown gift wrap style"})
	}
	return style, nil
}

// GiftWrapSurcharge returns the wrapping cost in cents. Unknown styles cost nothing.
func GiftWrapSurcharge(style GiftWrap) int64 {
	return giftWrapSurcharges[style]
}

// ComputeSubtotal sums price times quantity over the cart lines.
func ComputeSubtotal(items []cart.Item) int64 {
	var subtotal int64
	for _, item := range items {
		subtotal += item.LineTotalCents()
	}
	return subtotal
}

// DeliveryFee is the base fee plus the slot and gift wrap surcharges.
func DeliveryFee(baseCents, slotSurchargeCents, giftWrapCents int64) int64 {
	return baseCents + slotSurchargeCents + giftWrapCents
}

// TotalsInput carries everything that prices an order.
type TotalsInput struct {
	Items              []cart.Item
	BaseDeliveryCents  int64
	SlotSurchargeCents int64
	GiftWrap           GiftWrap
	TipCents           int64
	Promo              cart.Promo
}

// Totals is the priced breakdown of an order, in cents.
type Totals struct {
	SubtotalCents    int64 `json:"subtotal_cents"`
	DeliveryFeeCents int64 `json:"delivery_fee_cents"`
	TipCents         int64 `json:"tip_cents"`
	DiscountCents    int64 `json:"discount_cents"`
	TotalCents       int64 `json:"total_cents"`
}

// ComputeTotal prices an order. The promo discount applies to the subtotal
// only, so the total never drops below delivery plus tip.
func ComputeTotal(input TotalsInput) (Totals, error) {
	fields := pkgerrors.FieldErrors{}
	if input.TipCents < 0 {
		fields["tip"] = "tip must not be negative"
	}
	if input.SlotSurchargeCents < 0 {
		fields["delivery_slot"] = "slot surcharge must not be negative"
	}
	if input.BaseDeliveryCents < 0 {
		fields["delivery_fee"] = "delivery fee must not be negative"
	}
	if len(fields) > 0 {
		return Totals{}, pkgerrors.Validation(fields)
	}

	subtotal := ComputeSubtotal(input.Items)
	delivery := DeliveryFee(input.BaseDeliveryCents, input.SlotSurchargeCents, GiftWrapSurcharge(input.GiftWrap))
	discount := input.Promo.Discount(subtotal)
	if discount > subtotal {
		discount = subtotal
	}
	return Totals{
		SubtotalCents:    subtotal,
		DeliveryFeeCents: delivery,
		TipCents:         input.TipCents,
		DiscountCents:    discount,
		TotalCents:       subtotal - discount + delivery + input.TipCents,
	}, nil
}
