package checkout

import (
	"sort"
	"strings"

	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

const defaultSlot = "standard"

// Pricing holds the configured delivery fee, slots and currency.
type Pricing struct {
	BaseDeliveryCents int64
	Currency          string
	Slots             map[string]int64
}

// PricingFromConfig builds pricing from the checkout config section.
func PricingFromConfig(cfg config.CheckoutConfig) Pricing {
	slots := make(map[string]int64, len(cfg.DeliverySlots))
	for name, cents := range cfg.DeliverySlots {
		slots[strings.ToLower(strings.TrimSpace(name))] = cents
	}
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "ZAR"
	}
	return Pricing{BaseDeliveryCents: cfg.BaseDeliveryFeeCents, Currency: currency, Slots: slots}
}

// SlotSurcharge resolves a delivery slot. An empty slot means standard delivery.
func (p Pricing) SlotSurcharge(slot string) (string, int64, error) {
	name := strings.ToLower(strings.TrimSpace(slot))
	if name == "" {
		name = defaultSlot
		if _, ok := p.Slots[name]; !ok {
			return "", 0, nil
		}
	}
	cents, ok := p.Slots[name]
	if !ok {
		return "", 0, pkgerrors.Validation(pkgerrors.FieldErrors{"delivery_slot": "unknown delivery slot"})
	}
	return name, cents, nil
}

// DeliverySlot is an option offered at checkout.
type DeliverySlot struct {
	Name           string `json:"name"`
	SurchargeCents int64  `json:"surcharge_cents"`
}

// SlotOptions lists the configured slots, cheapest first.
func (p Pricing) SlotOptions() []DeliverySlot {
	out := make([]DeliverySlot, 0, len(p.Slots))
	for name, cents := range p.Slots {
		out = append(out, DeliverySlot{Name: name, SurchargeCents: cents})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SurchargeCents == out[j].SurchargeCents {
			return out[i].Name < out[j].Name
		}
		return out[i].SurchargeCents < out[j].SurchargeCents
	})
	return out
}
