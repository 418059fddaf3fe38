package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/metrics"
	"github.com/farmersbracket/farmersbracket-backend/pkg/money"
	"github.com/farmersbracket/farmersbracket-backend/pkg/payfast"
)

// GatewayPayFast is the gateway name recorded on orders paid through PayFast.
const GatewayPayFast = "payfast"

type orderPayments interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	CompletePayment(ctx context.Context, orderID uuid.UUID, confirmation orders.PaymentConfirmation) (*models.Order, bool, error)
	FailPayment(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, bool, error)
}

type notificationVerifier interface {
	VerifyNotification(body string) (*payfast.Notification, error)
}

// PayFastService settles orders paid on PayFast's hosted page.
type PayFastService struct {
	orders   orderPayments
	verifier notificationVerifier
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
}

// NewPayFastService wires the order lifecycle to PayFast callbacks.
func NewPayFastService(ordersSvc orderPayments, verifier notificationVerifier, m *metrics.CheckoutMetrics, logg *logger.Logger) (*PayFastService, error) {
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("payfast client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &PayFastService{orders: ordersSvc, verifier: verifier, metrics: m, logg: logg}, nil
}

// Success handles the customer's browser coming back from PayFast. The query
// string is not signed, so it only reports where the order stands; the order
// is settled by the ITN in Notify.
func (s *PayFastService) Success(ctx context.Context, userID uuid.UUID, rawOrderID string) (*models.Order, error) {
	orderID, err := parseOrderID(rawOrderID)
	if err != nil {
		return nil, err
	}
	order, err := s.payFastOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if !order.PaymentStatus.Settled() {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "payfast return received before notification")
	}
	return order, nil
}

// Cancel records that the customer abandoned the hosted payment. The order
// stays pending until the expiry job cancels it.
func (s *PayFastService) Cancel(ctx context.Context, userID uuid.UUID, rawOrderID string) (*models.Order, error) {
	orderID, err := parseOrderID(rawOrderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.payFastOrder(ctx, orderID, userID); err != nil {
		return nil, err
	}
	order, changed, err := s.orders.FailPayment(ctx, orderID, "payment cancelled on PayFast")
	if err != nil {
		return nil, err
	}
	if changed {
		s.metrics.Confirmation(GatewayPayFast, "cancelled")
	}
	return order, nil
}

// Notify processes a server-to-server ITN callback. Unsigned or tampered
// bodies are rejected before any order is touched.
func (s *PayFastService) Notify(ctx context.Context, body string) error {
	notification, err := s.verifier.VerifyNotification(body)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payfast notification rejected")
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid payfast notification")
	}
	orderID, err := parseOrderID(notification.OrderID)
	if err != nil {
		return err
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"payment_status": notification.PaymentStatus,
		"pf_payment_id":  notification.PaymentID,
	})

	switch {
	case notification.Completed():
		order, err := s.payFastOrder(ctx, orderID, uuid.Nil)
		if err != nil {
			return err
		}
		return s.settle(logCtx, order, notification.PaymentID, notification.AmountCents)
	case strings.EqualFold(notification.PaymentStatus, payfast.StatusFailed),
		strings.EqualFold(notification.PaymentStatus, payfast.StatusCanceled):
		_, changed, err := s.orders.FailPayment(ctx, orderID, "payfast reported "+strings.ToLower(notification.PaymentStatus))
		if err != nil {
			return err
		}
		if changed {
			s.metrics.Confirmation(GatewayPayFast, "failed")
		}
		return nil
	default:
		s.logg.Info(logCtx, "payfast notification ignored")
		return nil
	}
}

func (s *PayFastService) settle(ctx context.Context, order *models.Order, paymentID string, amountCents int64) error {
	if amountCents != order.TotalCents {
		s.metrics.Confirmation(GatewayPayFast, "amount_mismatch")
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"expected": money.Format(order.TotalCents),
			"received": money.Format(amountCents),
		}), "payfast amount mismatch")
		return pkgerrors.Payment(nil, "Paid amount does not match the order total.", pkgerrors.PaymentDetails{
			OrderID: order.ID.String(),
			Gateway: GatewayPayFast,
		})
	}
	_, changed, err := s.orders.CompletePayment(ctx, order.ID, orders.PaymentConfirmation{
		Gateway:   GatewayPayFast,
		Reference: paymentID,
	})
	if err != nil {
		return err
	}
	if changed {
		s.metrics.Confirmation(GatewayPayFast, "succeeded")
	}
	return nil
}

// payFastOrder loads an order checked out with PayFast. A non-nil userID must
// own it.
func (s *PayFastService) payFastOrder(ctx context.Context, orderID, userID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != uuid.Nil && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.PaymentMethod != enums.PaymentMethodPayFast {
		return nil, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is paid by %s, not PayFast", order.PaymentMethod)
	}
	return order, nil
}

func parseOrderID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.Validation(pkgerrors.FieldErrors{"custom_str1": "order id is invalid"})
	}
	return id, nil
}
