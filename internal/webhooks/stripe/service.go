package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/metrics"
	pkgstripe "github.com/farmersbracket/farmersbracket-backend/pkg/stripe"
)

const gateway = "stripe"

type orderPayments interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	CompletePayment(ctx context.Context, orderID uuid.UUID, confirmation orders.PaymentConfirmation) (*models.Order, bool, error)
	FailPayment(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, bool, error)
}

type ServiceParams struct {
	Orders  orderPayments
	Metrics *metrics.CheckoutMetrics
	Logger  *logger.Logger
}

// Service applies PaymentIntent outcomes reported by Stripe to orders.
type Service struct {
	orders  orderPayments
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{orders: params.Orders, metrics: params.Metrics, logg: logg}, nil
}

// HandleEvent processes payment_intent.succeeded and payment_intent.payment_failed.
// Other event types are acknowledged without action.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
	default:
		s.logg.Debug(s.logg.WithField(ctx, "event_type", string(event.Type)), "stripe event ignored")
		return nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}

	order, err := s.findOrder(ctx, &intent)
	if err != nil {
		return err
	}
	if order == nil {
		s.logg.Warn(s.logg.WithField(ctx, "payment_intent", intent.ID), "stripe intent does not match an order")
		return nil
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"payment_intent": intent.ID,
		"event_type":     string(event.Type),
	})

	if event.Type == stripe.EventTypePaymentIntentSucceeded {
		_, changed, err := s.orders.CompletePayment(ctx, order.ID, orders.PaymentConfirmation{
			Gateway:   gateway,
			Reference: intent.ID,
		})
		if pkgerrors.Is(err, pkgerrors.CodeStateConflict) {
			s.logg.Warn(logCtx, "payment captured for a cancelled order; refund required")
			return nil
		}
		if err != nil {
			return err
		}
		if changed {
			s.metrics.Confirmation(gateway, "succeeded")
		}
		return nil
	}

	reason := "card payment failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		reason = intent.LastPaymentError.Msg
	}
	_, changed, err := s.orders.FailPayment(ctx, order.ID, reason)
	if err != nil {
		return err
	}
	if changed {
		s.metrics.Confirmation(gateway, "failed")
		s.logg.Info(logCtx, "stripe payment failed: "+reason)
	}
	return nil
}

// findOrder matches by the stored intent reference first and falls back to
// the order id stamped in the intent metadata.
func (s *Service) findOrder(ctx context.Context, intent *stripe.PaymentIntent) (*models.Order, error) {
	if intent.ID != "" {
		order, err := s.orders.FindByPaymentReference(ctx, intent.ID)
		if err == nil {
			return order, nil
		}
		if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, err
		}
	}
	raw := strings.TrimSpace(pkgstripe.OrderIDFromIntent(intent))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, nil
	}
	order, err := s.orders.Get(ctx, id)
	if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		return nil, nil
	}
	return order, err
}
