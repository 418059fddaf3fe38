package checkout

import (
	"context"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/payfast"
)

// CardCharge describes the amount to authorise for one order.
type CardCharge struct {
	OrderID        uuid.UUID
	AmountCents    int64
	Currency       string
	IdempotencyKey string
}

// CardIntent is the processor-neutral state of a card payment.
type CardIntent struct {
	ID             string
	ClientSecret   string
	Succeeded      bool
	FailureMessage string
}

// CardGateway creates and confirms card payments. Stripe and Square back it
// in production.
type CardGateway interface {
	Name() string
	CreateIntent(ctx context.Context, charge CardCharge) (*CardIntent, error)
	ConfirmIntent(ctx context.Context, intentID, paymentMethodToken string, charge CardCharge) (*CardIntent, error)
}

// WalletCharge debits a customer's stored wallet for one order.
type WalletCharge struct {
	OrderID     uuid.UUID
	UserID      uuid.UUID
	AmountCents int64
	Currency    string
}

// WalletGateway settles wallet payments and returns the processor reference.
type WalletGateway interface {
	Name() string
	Charge(ctx context.Context, charge WalletCharge) (string, error)
}

// PayFastLinker builds the signed hosted-payment redirect.
type PayFastLinker interface {
	RedirectURL(req payfast.PaymentRequest) (string, error)
}
