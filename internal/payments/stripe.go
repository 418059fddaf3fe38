package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/farmersbracket/farmersbracket-backend/internal/checkout"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	pkgstripe "github.com/farmersbracket/farmersbracket-backend/pkg/stripe"
)

// GatewayStripe is the gateway name recorded on orders paid through Stripe.
const GatewayStripe = "stripe"

type stripeIntents interface {
	CreatePaymentIntent(ctx context.Context, params pkgstripe.IntentParams) (*pkgstripe.Intent, error)
	ConfirmPaymentIntent(ctx context.Context, intentID, paymentMethod string) (*pkgstripe.Intent, error)
}

// StripeGateway backs card checkout with Stripe PaymentIntents.
type StripeGateway struct {
	client stripeIntents
}

// NewStripeGateway wraps an initialized Stripe client.
func NewStripeGateway(client stripeIntents) (*StripeGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &StripeGateway{client: client}, nil
}

func (g *StripeGateway) Name() string { return GatewayStripe }

func (g *StripeGateway) CreateIntent(ctx context.Context, charge checkout.CardCharge) (*checkout.CardIntent, error) {
	intent, err := g.client.CreatePaymentIntent(ctx, pkgstripe.IntentParams{
		AmountCents:    charge.AmountCents,
		Currency:       charge.Currency,
		OrderID:        charge.OrderID.String(),
		IdempotencyKey: charge.IdempotencyKey,
	})
	if err != nil {
		return nil, stripeFailure(err, charge, "create payment intent")
	}
	return cardIntentFromStripe(intent), nil
}

func (g *StripeGateway) ConfirmIntent(ctx context.Context, intentID, token string, charge checkout.CardCharge) (*checkout.CardIntent, error) {
	intent, err := g.client.ConfirmPaymentIntent(ctx, intentID, token)
	if err != nil {
		return nil, stripeFailure(err, charge, "confirm payment intent")
	}
	return cardIntentFromStripe(intent), nil
}

func cardIntentFromStripe(intent *pkgstripe.Intent) *checkout.CardIntent {
	if intent == nil {
		return &checkout.CardIntent{}
	}
	return &checkout.CardIntent{
		ID:             intent.ID,
		ClientSecret:   intent.ClientSecret,
		Succeeded:      intent.Succeeded(),
		FailureMessage: intent.FailureMessage,
	}
}

// stripeFailure separates card declines, which carry a customer-facing
// message, from transport or configuration failures.
func stripeFailure(err error, charge checkout.CardCharge, op string) error {
	if msg := pkgstripe.ErrorMessage(err); msg != "" {
		return pkgerrors.Payment(err, msg, pkgerrors.PaymentDetails{
			OrderID: charge.OrderID.String(),
			Gateway: GatewayStripe,
		})
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "card processor timed out")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stripe "+op)
}
