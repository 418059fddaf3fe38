package checkout

import (
	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
)

// State is a step of order submission.
type State string

const (
	StateIdle            State = "idle"
	StateValidating      State = "validating"
	StateSubmittingOrder State = "submitting-order"
	StateSubmittingItems State = "submitting-items"
	StateAwaitingPayment State = "awaiting-payment-confirmation"
	StateCompleted       State = "completed"
	StatePaymentPending  State = "payment-pending"
	StateFailed          State = "failed"
)

// Terminal reports whether submission stops in this state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StatePaymentPending || s == StateFailed
}

const bankTransferMessage = "Your order is reserved. Bank transfer instructions are on their way to your email."

// Result is the outcome of SubmitOrder or ConfirmPayment. It is returned
// whenever an order row exists, even alongside a payment or partial failure.
type Result struct {
	State         State               `json:"state"`
	OrderID       uuid.UUID           `json:"order_id"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Totals        Totals              `json:"totals"`
	Total         string              `json:"total"`
	Currency      string              `json:"currency"`
	TrackingPath  string              `json:"tracking_path,omitempty"`
	ClientSecret  string              `json:"client_secret,omitempty"`
	RedirectURL   string              `json:"redirect_url,omitempty"`
	Message       string              `json:"message,omitempty"`
}
