package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/payfast"
)

type fakeOrders struct {
	order     *models.Order
	completed []orders.PaymentConfirmation
	failed    []string
}

func (f *fakeOrders) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if f.order == nil || f.order.ID != orderID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	copied := *f.order
	return &copied, nil
}

func (f *fakeOrders) CompletePayment(ctx context.Context, orderID uuid.UUID, confirmation orders.PaymentConfirmation) (*models.Order, bool, error) {
	if f.order.PaymentStatus == enums.PaymentStatusCompleted {
		return f.order, false, nil
	}
	f.completed = append(f.completed, confirmation)
	f.order.PaymentStatus = enums.PaymentStatusCompleted
	f.order.Status = enums.OrderStatusProcessing
	return f.order, true, nil
}

func (f *fakeOrders) FailPayment(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, bool, error) {
	if f.order.PaymentStatus != enums.PaymentStatusPending {
		return f.order, false, nil
	}
	f.failed = append(f.failed, reason)
	f.order.PaymentStatus = enums.PaymentStatusFailed
	return f.order, true, nil
}

type fakeVerifier struct {
	notification *payfast.Notification
	err          error
}

func (f *fakeVerifier) VerifyNotification(body string) (*payfast.Notification, error) {
	return f.notification, f.err
}

func newPayFastFixture(t *testing.T) (*PayFastService, *fakeOrders, *fakeVerifier) {
	t.Helper()
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		PaymentMethod: enums.PaymentMethodPayFast,
		TotalCents:    4550,
	}
	store := &fakeOrders{order: order}
	verifier := &fakeVerifier{}
	svc, err := NewPayFastService(store, verifier, nil, nil)
	require.NoError(t, err)
	return svc, store, verifier
}

func TestPayFastSuccessOnlyReportsState(t *testing.T) {
	svc, store, _ := newPayFastFixture(t)

	order, err := svc.Success(context.Background(), store.order.UserID, store.order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Empty(t, store.completed, "the browser return never settles")

	store.order.PaymentStatus = enums.PaymentStatusCompleted
	store.order.Status = enums.OrderStatusProcessing
	order, err = svc.Success(context.Background(), store.order.UserID, store.order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, order.PaymentStatus)
	assert.Empty(t, store.completed)
}

func TestPayFastReturnRejectsOtherPaymentMethods(t *testing.T) {
	svc, store, _ := newPayFastFixture(t)
	store.order.PaymentMethod = enums.PaymentMethodCard
	ctx := context.Background()

	_, err := svc.Success(ctx, store.order.UserID, store.order.ID.String())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	_, err = svc.Cancel(ctx, store.order.UserID, store.order.ID.String())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	assert.Empty(t, store.completed)
	assert.Empty(t, store.failed)
	assert.Equal(t, enums.PaymentStatusPending, store.order.PaymentStatus)
}

func TestPayFastSuccessValidatesInput(t *testing.T) {
	svc, store, _ := newPayFastFixture(t)
	ctx := context.Background()

	_, err := svc.Success(ctx, store.order.UserID, "not-a-uuid")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Success(ctx, uuid.New(), store.order.ID.String())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "other customers cannot see the order")
}

func TestPayFastCancelMarksPaymentFailed(t *testing.T) {
	svc, store, _ := newPayFastFixture(t)

	order, err := svc.Cancel(context.Background(), store.order.UserID, store.order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Len(t, store.failed, 1)
}

func TestPayFastNotify(t *testing.T) {
	svc, store, verifier := newPayFastFixture(t)
	ctx := context.Background()

	verifier.err = payfast.ErrInvalidSignature
	err := svc.Notify(ctx, "tampered")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
	assert.Empty(t, store.completed)

	verifier.err = nil
	verifier.notification = &payfast.Notification{PaymentID: "pf_9", OrderID: store.order.ID.String(), PaymentStatus: "PENDING", AmountCents: 4550}
	require.NoError(t, svc.Notify(ctx, "body"))
	assert.Empty(t, store.completed)

	verifier.notification.PaymentStatus = payfast.StatusComplete
	verifier.notification.AmountCents = 4549
	err = svc.Notify(ctx, "body")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodePayment), "amount must match the order total")
	assert.Empty(t, store.completed)

	verifier.notification.AmountCents = 4550
	require.NoError(t, svc.Notify(ctx, "body"))
	require.Len(t, store.completed, 1)
	assert.Equal(t, orders.PaymentConfirmation{Gateway: GatewayPayFast, Reference: "pf_9"}, store.completed[0])

	require.NoError(t, svc.Notify(ctx, "body"))
	assert.Len(t, store.completed, 1, "a repeated notification is a no-op")
}

func TestPayFastNotifyFailure(t *testing.T) {
	svc, store, verifier := newPayFastFixture(t)
	verifier.notification = &payfast.Notification{OrderID: store.order.ID.String(), PaymentStatus: payfast.StatusFailed, AmountCents: 4550}

	require.NoError(t, svc.Notify(context.Background(), "body"))
	assert.Equal(t, []string{"payfast reported failed"}, store.failed)
}
