package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
)

// Order is the header row for a checkout. Totals are stored in cents and are
// computed once at submission.
type Order struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID               uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	CustomerName         string              `gorm:"column:customer_name;not null"`
	CustomerEmail        string              `gorm:"column:customer_email;not null"`
	Phone                string              `gorm:"column:phone;not null"`
	SubtotalCents        int64               `gorm:"column:subtotal_cents;not null"`
	DeliveryFeeCents     int64               `gorm:"column:delivery_fee_cents;not null"`
	TipCents             int64               `gorm:"column:tip_cents;not null;default:0"`
	DiscountCents        int64               `gorm:"column:discount_cents;not null;default:0"`
	TotalCents           int64               `gorm:"column:total_cents;not null"`
	Currency             string              `gorm:"column:currency;not null"`
	Status               enums.OrderStatus   `gorm:"column:status;type:order_status;not null"`
	PaymentStatus        enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null"`
	PaymentMethod        enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	PaymentReference     *string             `gorm:"column:payment_reference"`
	PromoCode            *string             `gorm:"column:promo_code"`
	DeliverySlot         *string             `gorm:"column:delivery_slot"`
	GiftWrapStyle        *string             `gorm:"column:gift_wrap_style"`
	ShippingAddress      string              `gorm:"column:shipping_address;not null"`
	DeliveryInstructions *string             `gorm:"column:delivery_instructions"`
	PaidAt               *time.Time          `gorm:"column:paid_at"`
	StockReserved        bool                `gorm:"column:stock_reserved;not null"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Items []OrderItem `gorm:"foreignKey:OrderID;references:ID"`
}

// ItemCount sums item quantities.
func (o Order) ItemCount() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}
