package payments

import (
	"context"
	"strings"

	"github.com/farmersbracket/farmersbracket-backend/internal/checkout"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

const (
	GatewaySimulatedCard = "simulated_card"
	GatewayWallet        = "wallet"

	// DeclineToken makes the simulated card processor refuse the charge.
	DeclineToken = "tok_chargeDeclined"
)

// SimulatedCard approves every token except DeclineToken. It serves local
// development and demo environments where no processor keys exist.
type SimulatedCard struct{}

func (SimulatedCard) Name() string { return GatewaySimulatedCard }

func (SimulatedCard) CreateIntent(ctx context.Context, charge checkout.CardCharge) (*checkout.CardIntent, error) {
	if charge.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	id := "sim_pi_" + strings.ReplaceAll(charge.OrderID.String(), "-", "")
	return &checkout.CardIntent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (SimulatedCard) ConfirmIntent(ctx context.Context, intentID, token string, charge checkout.CardCharge) (*checkout.CardIntent, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "card processor timed out")
	}
	intent := &checkout.CardIntent{ID: intentID}
	if strings.TrimSpace(token) == DeclineToken {
		intent.FailureMessage = "Your card was declined."
		return intent, nil
	}
	intent.Succeeded = true
	return intent, nil
}

// SimulatedWallet settles wallet payments without an external processor.
// It approves deterministically unless DeclineWith is set.
type SimulatedWallet struct {
	DeclineWith string
}

func (w SimulatedWallet) Name() string { return GatewayWallet }

func (w SimulatedWallet) Charge(ctx context.Context, charge checkout.WalletCharge) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "wallet timed out")
	}
	if charge.AmountCents <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if w.DeclineWith != "" {
		return "", pkgerrors.Payment(nil, w.DeclineWith, pkgerrors.PaymentDetails{
			OrderID: charge.OrderID.String(),
			Gateway: GatewayWallet,
		})
	}
	return "wallet_" + strings.ReplaceAll(charge.OrderID.String(), "-", ""), nil
}
