package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
)

// OrderLine is the per-item slice of an order event.
type OrderLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	FarmerID       uuid.UUID `json:"farmer_id"`
	Category       string    `json:"category"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
}

// OrderCreatedEvent is emitted in the submission transaction.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	CustomerEmail string              `json:"customer_email"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	SubtotalCents int64               `json:"subtotal_cents"`
	TotalCents    int64               `json:"total_cents"`
	Currency      string              `json:"currency"`
	PromoCode     string              `json:"promo_code,omitempty"`
	Lines         []OrderLine         `json:"lines"`
	CreatedAt     time.Time           `json:"created_at"`
}

// OrderPaidEvent is emitted once per order when payment completes.
type OrderPaidEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	Gateway     string    `json:"gateway"`
	Reference   string    `json:"reference,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	PaidAt      time.Time `json:"paid_at"`
}

// OrderStatusChangedEvent records a fulfilment or payment transition.
type OrderStatusChangedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        uuid.UUID           `json:"user_id"`
	From          enums.OrderStatus   `json:"from"`
	To            enums.OrderStatus   `json:"to"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	Reason        string              `json:"reason,omitempty"`
	ChangedAt     time.Time           `json:"changed_at"`
}

// NotificationCreatedEvent fans out in-app notifications to email/push senders.
type NotificationCreatedEvent struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	UserID         uuid.UUID              `json:"user_id"`
	Type           enums.NotificationType `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Link           string                 `json:"link,omitempty"`
}

// PasswordResetRequestedEvent carries the link the mailer should send.
type PasswordResetRequestedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	ResetURL  string    `json:"reset_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ConfirmationRequestedEvent asks the mailer to (re)send the email confirmation link.
type ConfirmationRequestedEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	ConfirmURL string    `json:"confirm_url"`
}
