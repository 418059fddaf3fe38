package squarewebhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/metrics"
)

const gateway = "square"

const (
	eventPaymentCreated = "payment.created"
	eventPaymentUpdated = "payment.updated"

	statusCompleted = "COMPLETED"
	statusFailed    = "FAILED"
	statusCanceled  = "CANCELED"
)

type orderPayments interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	CompletePayment(ctx context.Context, orderID uuid.UUID, confirmation orders.PaymentConfirmation) (*models.Order, bool, error)
	FailPayment(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, bool, error)
}

type ServiceParams struct {
	Orders  orderPayments
	Metrics *metrics.CheckoutMetrics
	Logger  *logger.Logger
}

// Service reconciles orders with Square payment notifications.
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

type SquareWebhookEvent struct {
	EventID string            `json:"event_id"`
	Type    string            `json:"type"`
	Data    SquareWebhookData `json:"data"`
}

type SquareWebhookData struct {
	Type   string              `json:"type"`
	ID     string              `json:"id"`
	Object SquareWebhookObject `json:"object"`
}

type SquareWebhookObject struct {
	Payment *SquarePayment `json:"payment"`
}

type SquarePayment struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	ReferenceID string       `json:"reference_id"`
	AmountMoney *SquareMoney `json:"amount_money"`
}

type SquareMoney struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// HandleEvent processes payment.created and payment.updated events. The order
// is found through the reference id set when the payment was created.
func (s *Service) HandleEvent(ctx context.Context, event *SquareWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}
	eventType := strings.ToLower(strings.TrimSpace(event.Type))
	if eventType != eventPaymentCreated && eventType != eventPaymentUpdated {
		s.logg.Debug(s.logg.WithField(ctx, "event_type", event.Type), "square event ignored")
		return nil
	}
	payment := event.Data.Object.Payment
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square payment payload required")
	}

	orderID, err := uuid.Parse(strings.TrimSpace(payment.ReferenceID))
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "square_payment_id", payment.ID), "square payment has no order reference")
		return nil
	}
	order, err := s.orders.Get(ctx, orderID)
	if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		s.logg.Warn(s.logg.WithOrderID(ctx, orderID.String()), "square payment references an unknown order")
		return nil
	}
	if err != nil {
		return err
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"square_payment_id": payment.ID,
		"status":            payment.Status,
	})

	switch strings.ToUpper(payment.Status) {
	case statusCompleted:
		if payment.AmountMoney != nil && payment.AmountMoney.Amount != order.TotalCents {
			s.logg.Warn(logCtx, "square payment amount does not match order total")
			return nil
		}
		_, changed, err := s.orders.CompletePayment(ctx, order.ID, orders.PaymentConfirmation{
			Gateway:   gateway,
			Reference: payment.ID,
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
	case statusFailed, statusCanceled:
		_, changed, err := s.orders.FailPayment(ctx, order.ID, "square reported "+strings.ToLower(payment.Status))
		if err != nil {
			return err
		}
		if changed {
			s.metrics.Confirmation(gateway, "failed")
		}
	default:
		s.logg.Debug(logCtx, "square payment still in progress")
	}
	return nil
}
