// Package webhooks receives payment processor callbacks. Both processors go
// through the same steps: read, verify, claim the event id, apply, and release
// the claim when applying fails so the processor's retry is not swallowed.
package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/farmersbracket/farmersbracket-backend/api/responses"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
)

const (
	stripeConsumer = "stripe-webhook"
	squareConsumer = "square-webhook"

	maxWebhookBody = 1 << 20
)

// deliveryGuard is satisfied by *idempotency.Manager.
type deliveryGuard interface {
	Claim(ctx context.Context, consumer, id string) (bool, error)
	Release(ctx context.Context, consumer, id string) error
}

// delivery is one verified callback, ready to apply.
type delivery struct {
	consumer  string
	eventID   string
	eventType string
	apply     func(ctx context.Context) error
}

func readBody(r *http.Request) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	return payload, nil
}

// unavailable names the first missing dependency, if any.
func unavailable(deps map[string]bool) error {
	for name, present := range deps {
		if !present {
			return pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable")
		}
	}
	return nil
}

// settle claims d.eventID, applies it once, and writes the response. Duplicates
// are answered with 200 so the processor stops retrying.
func settle(w http.ResponseWriter, r *http.Request, guard deliveryGuard, logg *logger.Logger, d delivery) {
	ctx := logg.WithFields(r.Context(), map[string]any{
		"webhook":    d.consumer,
		"event_id":   d.eventID,
		"event_type": d.eventType,
	})

	claimed, err := guard.Claim(ctx, d.consumer, d.eventID)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
		return
	}
	if !claimed {
		logg.Info(ctx, "webhook event already processed")
		responses.WriteSuccess(w, nil)
		return
	}

	if err := d.apply(ctx); err != nil {
		if rerr := guard.Release(context.WithoutCancel(ctx), d.consumer, d.eventID); rerr != nil {
			logg.Error(ctx, "release webhook claim", rerr)
		}
		responses.WriteError(ctx, logg, w, err)
		return
	}
	logg.Info(ctx, "webhook event applied")
	responses.WriteSuccess(w, nil)
}
