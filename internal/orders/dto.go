package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/money"
)

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID                   uuid.UUID           `json:"id"`
	CustomerName         string              `json:"customer_name"`
	CustomerEmail        string              `json:"customer_email"`
	Phone                string              `json:"phone"`
	SubtotalCents        int64               `json:"subtotal_cents"`
	DeliveryFeeCents     int64               `json:"delivery_fee_cents"`
	TipCents             int64               `json:"tip_cents"`
	DiscountCents        int64               `json:"discount_cents"`
	TotalCents           int64               `json:"total_cents"`
	Total                string              `json:"total"`
	Currency             string              `json:"currency"`
	Status               enums.OrderStatus   `json:"status"`
	PaymentStatus        enums.PaymentStatus `json:"payment_status"`
	PaymentMethod        enums.PaymentMethod `json:"payment_method"`
	PromoCode            *string             `json:"promo_code,omitempty"`
	DeliverySlot         *string             `json:"delivery_slot,omitempty"`
	GiftWrapStyle        *string             `json:"gift_wrap_style,omitempty"`
	ShippingAddress      string              `json:"shipping_address"`
	DeliveryInstructions *string             `json:"delivery_instructions,omitempty"`
	PaidAt               *time.Time          `json:"paid_at,omitempty"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// OrderItemDTO is a purchased line with its farm.
type OrderItemDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	FarmerID       uuid.UUID `json:"farmer_id"`
	FarmName       string    `json:"farm_name,omitempty"`
	ProductName    string    `json:"product_name"`
	Category       string    `json:"category"`
	Unit           string    `json:"unit"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// OrderSummaryDTO is one row of the order history.
type OrderSummaryDTO struct {
	ID            uuid.UUID           `json:"id"`
	TotalCents    int64               `json:"total_cents"`
	Total         string              `json:"total"`
	Currency      string              `json:"currency"`
	ItemCount     int                 `json:"item_count"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Progress      Progress            `json:"progress"`
	CreatedAt     time.Time           `json:"created_at"`
}

// TrackingView is everything the tracking page renders.
type TrackingView struct {
	Order        OrderDTO       `json:"order"`
	Items        []OrderItemDTO `json:"items"`
	Progress     Progress       `json:"progress"`
	TrackingPath string         `json:"tracking_path"`
}

// NewOrderDTO maps an order row to its payload.
func NewOrderDTO(order *models.Order) OrderDTO {
	return OrderDTO{
		ID:                   order.ID,
		CustomerName:         order.CustomerName,
		CustomerEmail:        order.CustomerEmail,
		Phone:                order.Phone,
		SubtotalCents:        order.SubtotalCents,
		DeliveryFeeCents:     order.DeliveryFeeCents,
		TipCents:             order.TipCents,
		DiscountCents:        order.DiscountCents,
		TotalCents:           order.TotalCents,
		Total:                money.Format(order.TotalCents),
		Currency:             order.Currency,
		Status:               order.Status,
		PaymentStatus:        order.PaymentStatus,
		PaymentMethod:        order.PaymentMethod,
		PromoCode:            order.PromoCode,
		DeliverySlot:         order.DeliverySlot,
		GiftWrapStyle:        order.GiftWrapStyle,
		ShippingAddress:      order.ShippingAddress,
		DeliveryInstructions: order.DeliveryInstructions,
		PaidAt:               order.PaidAt,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
}

func newSummaryDTO(order models.Order) OrderSummaryDTO {
	return OrderSummaryDTO{
		ID:            order.ID,
		TotalCents:    order.TotalCents,
		Total:         money.Format(order.TotalCents),
		Currency:      order.Currency,
		ItemCount:     order.ItemCount(),
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		Progress:      StatusToProgress(order.Status.String()),
		CreatedAt:     order.CreatedAt,
	}
}

func newItemDTO(item models.OrderItem, farmName string) OrderItemDTO {
	return OrderItemDTO{
		ProductID:      item.ProductID,
		FarmerID:       item.FarmerID,
		FarmName:       farmName,
		ProductName:    item.ProductName,
		Category:       item.Category,
		Unit:           item.Unit,
		Quantity:       item.Quantity,
		UnitPriceCents: item.UnitPriceCents,
		LineTotalCents: item.LineTotalCents,
	}
}
