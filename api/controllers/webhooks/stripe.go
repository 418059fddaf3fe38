package webhooks

import (
	"context"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const stripeSignatureHeader = "Stripe-Signature"

type StripeWebhookService interface {
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

// stripeVerifier is satisfied by *pkg/stripe.Client.
type stripeVerifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// StripeWebhook applies payment_intent events to their orders.
func StripeWebhook(svc StripeWebhookService, client stripeVerifier, guard deliveryGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := unavailable(map[string]bool{
			"webhook service":   svc != nil,
			"stripe client":     client != nil,
			"idempotency guard": guard != nil,
		}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload, err := readBody(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		signature := r.Header.Get(stripeSignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}
		event, err := client.ConstructEvent(payload, signature)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stripe signature"))
			return
		}

		settle(w, r, guard, logg, delivery{
			consumer:  stripeConsumer,
			eventID:   event.ID,
			eventType: string(event.Type),
			apply:     func(ctx context.Context) error { return svc.HandleEvent(ctx, &event) },
		})
	}
}
