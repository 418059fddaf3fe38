package squarewebhook

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
)

type stubOrders struct {
	order     *models.Order
	completed []orders.PaymentConfirmation
	failed    []string
}

func (s *stubOrders) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return s.order, nil
}

func (s *stubOrders) CompletePayment(ctx context.Context, id uuid.UUID, c orders.PaymentConfirmation) (*models.Order, bool, error) {
	s.completed = append(s.completed, c)
	return s.order, true, nil
}

func (s *stubOrders) FailPayment(ctx context.Context, id uuid.UUID, reason string) (*models.Order, bool, error) {
	s.failed = append(s.failed, reason)
	return s.order, true, nil
}

func decodeEvent(t *testing.T, raw string) *SquareWebhookEvent {
	t.Helper()
	var event SquareWebhookEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return &event
}

func paymentEvent(orderID uuid.UUID, status string, amount int64) string {
	return `{"event_id":"evt-1","type":"payment.updated","data":{"type":"payment","id":"sq_pay_1","object":{"payment":{` +
		`"id":"sq_pay_1","status":"` + status + `","reference_id":"` + orderID.String() + `",` +
		`"amount_money":{"amount":` + jsonInt(amount) + `,"currency":"ZAR"}}}}}`
}

func jsonInt(v int64) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

func setup(t *testing.T) (*Service, *stubOrders) {
	t.Helper()
	store := &stubOrders{order: &models.Order{
		ID:            uuid.New(),
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		PaymentMethod: enums.PaymentMethodCard,
		TotalCents:    4550,
	}}
	svc, err := NewService(ServiceParams{Orders: store})
	require.NoError(t, err)
	return svc, store
}

func TestHandleEventCompletesPayment(t *testing.T) {
	svc, store := setup(t)

	err := svc.HandleEvent(context.Background(), decodeEvent(t, paymentEvent(store.order.ID, "COMPLETED", 4550)))
	require.NoError(t, err)
	require.Len(t, store.completed, 1)
	assert.Equal(t, orders.PaymentConfirmation{Gateway: "square", Reference: "sq_pay_1"}, store.completed[0])
}

func TestHandleEventSkipsAmountMismatch(t *testing.T) {
	svc, store := setup(t)

	err := svc.HandleEvent(context.Background(), decodeEvent(t, paymentEvent(store.order.ID, "COMPLETED", 100)))
	require.NoError(t, err)
	assert.Empty(t, store.completed)
}

func TestHandleEventFailsPayment(t *testing.T) {
	svc, store := setup(t)

	err := svc.HandleEvent(context.Background(), decodeEvent(t, paymentEvent(store.order.ID, "FAILED", 4550)))
	require.NoError(t, err)
	assert.Equal(t, []string{"square reported failed"}, store.failed)
}

func TestHandleEventIgnoresPendingAndForeignPayments(t *testing.T) {
	svc, store := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.HandleEvent(ctx, decodeEvent(t, paymentEvent(store.order.ID, "APPROVED", 4550))))
	require.NoError(t, svc.HandleEvent(ctx, decodeEvent(t, paymentEvent(uuid.New(), "COMPLETED", 4550))))
	require.NoError(t, svc.HandleEvent(ctx, &SquareWebhookEvent{Type: "invoice.payment_made"}))
	assert.Empty(t, store.completed)
	assert.Empty(t, store.failed)

	err := svc.HandleEvent(ctx, &SquareWebhookEvent{Type: "payment.updated"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
