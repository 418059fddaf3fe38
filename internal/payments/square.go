package payments

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/square/square-go-sdk"

	"github.com/farmersbracket/farmersbracket-backend/internal/checkout"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	pkgsquare "github.com/farmersbracket/farmersbracket-backend/pkg/square"
)

// GatewaySquare is the gateway name recorded on orders paid through Square.
const GatewaySquare = "square"

type squarePayments interface {
	CreatePayment(ctx context.Context, params pkgsquare.PaymentCreateParams) (*sq.Payment, error)
}

// SquareGateway backs card checkout with the Square Payments API. Square has
// no intent object, so the order id stands in for it and the charge happens
// once the Web Payments SDK hands over a source token.
type SquareGateway struct {
	client squarePayments
}

// NewSquareGateway wraps an initialized Square client.
func NewSquareGateway(client squarePayments) (*SquareGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &SquareGateway{client: client}, nil
}

func (g *SquareGateway) Name() string { return GatewaySquare }

func (g *SquareGateway) CreateIntent(ctx context.Context, charge checkout.CardCharge) (*checkout.CardIntent, error) {
	if charge.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	return &checkout.CardIntent{ID: charge.OrderID.String()}, nil
}

func (g *SquareGateway) ConfirmIntent(ctx context.Context, intentID, token string, charge checkout.CardCharge) (*checkout.CardIntent, error) {
	key := charge.IdempotencyKey
	if key == "" {
		key = "order-" + charge.OrderID.String()
	}
	payment, err := g.client.CreatePayment(ctx, pkgsquare.PaymentCreateParams{
		AmountCents:    charge.AmountCents,
		Currency:       charge.Currency,
		SourceID:       token,
		IdempotencyKey: key,
		Note:           "FarmersBracket order " + charge.OrderID.String(),
		ReferenceID:    charge.OrderID.String(),
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodePayment {
			return nil, pkgerrors.Payment(err, typed.Message(), pkgerrors.PaymentDetails{
				OrderID: charge.OrderID.String(),
				Gateway: GatewaySquare,
			})
		}
		return nil, err
	}

	status := strings.ToUpper(deref(payment.GetStatus()))
	intent := &checkout.CardIntent{
		ID:        deref(payment.GetID()),
		Succeeded: status == pkgsquare.PaymentStatusCompleted,
	}
	if intent.ID == "" {
		intent.ID = intentID
	}
	if !intent.Succeeded {
		intent.FailureMessage = fmt.Sprintf("Square reported the payment as %s.", strings.ToLower(status))
	}
	return intent, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
