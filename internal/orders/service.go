package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/payloads"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitOnce(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type farmNamer interface {
	NamesByFarmers(ctx context.Context, farmerIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

// Viewer is the authenticated caller reading or mutating an order.
type Viewer struct {
	UserID uuid.UUID
	Role   enums.Role
}

// UpdateStatusInput carries a fulfilment transition requested by a farmer or admin.
type UpdateStatusInput struct {
	OrderID uuid.UUID
	Status  enums.OrderStatus
	Actor   Viewer
}

// PaymentConfirmation describes a successful capture reported by a gateway.
type PaymentConfirmation struct {
	Gateway   string
	Reference string
}

// Service defines order lifecycle operations shared by checkout, payments and cron.
type Service interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	Track(ctx context.Context, orderID uuid.UUID, viewer Viewer) (*TrackingView, error)
	History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderSummaryDTO], error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error)
	AttachPaymentReference(ctx context.Context, orderID uuid.UUID, reference string) error
	CompletePayment(ctx context.Context, orderID uuid.UUID, confirmation PaymentConfirmation) (*models.Order, bool, error)
	FailPayment(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, bool, error)
	MarkProcessing(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ExpireStalePending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	farms    farmNamer
	notifier Notifier
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams groups dependencies for the order service.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Farms    farmNamer
	Notifier Notifier
	Logger   *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Farms == nil {
		return nil, fmt.Errorf("farm lookup required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		farms:    params.Farms,
		notifier: params.Notifier,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.repo.FindByID(ctx, orderID)
}

func (s *service) FindByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	return s.repo.FindByPaymentReference(ctx, reference)
}

func (s *service) Track(ctx context.Context, orderID uuid.UUID, viewer Viewer) (*TrackingView, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(order, viewer) {
		// Hide existence from other customers.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	farmerIDs := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		farmerIDs = append(farmerIDs, item.FarmerID)
	}
	names, err := s.farms.NamesByFarmers(ctx, farmerIDs)
	if err != nil {
		return nil, err
	}

	view := &TrackingView{
		Order:        NewOrderDTO(order),
		Items:        make([]OrderItemDTO, 0, len(order.Items)),
		Progress:     StatusToProgress(order.Status.String()),
		TrackingPath: TrackingPath(order.ID.String()),
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, newItemDTO(item, names[item.FarmerID]))
	}
	return view, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderSummaryDTO], error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.Parse(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"cursor": "invalid cursor"})
	}
	rows, err := s.repo.ListByUser(ctx, userID, cursor, params.Limit)
	if err != nil {
		return nil, err
	}
	page := pagination.Build(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := &pagination.Page[OrderSummaryDTO]{
		Items:      make([]OrderSummaryDTO, 0, len(page.Items)),
		NextCursor: page.NextCursor,
	}
	for _, row := range page.Items {
		out.Items = append(out.Items, newSummaryDTO(row))
	}
	return out, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*OrderDTO, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"status": "unknown order status"})
	}

	var (
		updated *models.Order
		from    enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, input.OrderID)
		if err != nil {
			return err
		}
		if !canFulfil(order, input.Actor) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to update this order")
		}
		from = order.Status
		if from.Terminal() {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is already %s", from)
		}
		if !from.CanTransitionTo(input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", from, input.Status))
		}

		now := s.now().UTC()
		updates := map[string]any{"status": input.Status, "updated_at": now}
		if input.Status == enums.OrderStatusCancelled && order.PaymentStatus == enums.PaymentStatusPending {
			updates["payment_status"] = enums.PaymentStatusFailed
			order.PaymentStatus = enums.PaymentStatusFailed
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return err
		}
		if input.Status == enums.OrderStatusCancelled {
			if _, err := repo.ReleaseStock(ctx, order.ID); err != nil {
				return err
			}
			order.StockReserved = false
		}
		order.Status = input.Status
		order.UpdatedAt = now

		if err := s.emitStatusChanged(ctx, tx, order, from, "fulfilment update", &outbox.ActorRef{UserID: input.Actor.UserID, Role: input.Actor.Role}); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyBestEffort(ctx, updated, enums.NotificationTypeOrderUpdated,
		"Order update",
		fmt.Sprintf("Your order is now %s.", updated.Status))

	dto := NewOrderDTO(updated)
	return &dto, nil
}

func (s *service) AttachPaymentReference(ctx context.Context, orderID uuid.UUID, reference string) error {
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}
	return s.repo.Update(ctx, orderID, map[string]any{"payment_reference": reference})
}

// CompletePayment marks the order paid and moves a pending order to
// processing. A second call for an already completed payment is a no-op and
// reports changed=false.
func (s *service) CompletePayment(ctx context.Context, orderID uuid.UUID, confirmation PaymentConfirmation) (*models.Order, bool, error) {
	var (
		result  *models.Order
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		result = order
		if order.PaymentStatus == enums.PaymentStatusCompleted {
			return nil
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was cancelled before payment completed")
		}

		now := s.now().UTC()
		from := order.Status
		updates := map[string]any{
			"payment_status": enums.PaymentStatusCompleted,
			"paid_at":        now,
			"updated_at":     now,
		}
		if from == enums.OrderStatusPending {
			updates["status"] = enums.OrderStatusProcessing
			order.Status = enums.OrderStatusProcessing
		}
		if confirmation.Reference != "" {
			updates["payment_reference"] = confirmation.Reference
			ref := confirmation.Reference
			order.PaymentReference = &ref
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return err
		}
		order.PaymentStatus = enums.PaymentStatusCompleted
		order.PaidAt = &now
		order.UpdatedAt = now

		err = s.outbox.EmitOnce(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPaidEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				Gateway:     confirmation.Gateway,
				Reference:   confirmation.Reference,
				AmountCents: order.TotalCents,
				Currency:    order.Currency,
				PaidAt:      now,
			},
			OccurredAt: now,
		})
		if err != nil {
			return err
		}
		if from != order.Status {
			if err := s.emitStatusChanged(ctx, tx, order, from, "payment completed", nil); err != nil {
				return err
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		logCtx := s.logg.WithOrderID(ctx, result.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "gateway", confirmation.Gateway), "order payment completed")
	}
	return result, changed, nil
}

// FailPayment records a declined or abandoned payment. Only pending payments
// move to failed; the order status is left alone so the customer can retry.
func (s *service) FailPayment(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, bool, error) {
	var (
		result  *models.Order
		changed bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		result = order
		if order.PaymentStatus.Settled() {
			return nil
		}
		now := s.now().UTC()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusFailed,
			"updated_at":     now,
		}); err != nil {
			return err
		}
		order.PaymentStatus = enums.PaymentStatusFailed
		order.UpdatedAt = now
		if err := s.emitStatusChanged(ctx, tx, order, order.Status, reason, nil); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.notifyBestEffort(ctx, result, enums.NotificationTypePaymentFailed,
			"Payment failed",
			"We could not take payment for your order. You can try again from your order history.")
	}
	return result, changed, nil
}

// MarkProcessing moves a pending cash order into fulfilment while the payment
// stays pending until collection.
func (s *service) MarkProcessing(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		result = order
		if order.Status == enums.OrderStatusProcessing {
			return nil
		}
		if !order.Status.CanTransitionTo(enums.OrderStatusProcessing) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to processing", order.Status))
		}
		now := s.now().UTC()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"status":     enums.OrderStatusProcessing,
			"updated_at": now,
		}); err != nil {
			return err
		}
		from := order.Status
		order.Status = enums.OrderStatusProcessing
		order.UpdatedAt = now
		return s.emitStatusChanged(ctx, tx, order, from, "cash on delivery", nil)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExpireStalePending cancels card and PayFast orders whose payment never
// completed before cutoff, including ones whose payment already failed, and
// gives their stock back. It returns how many orders were cancelled; a
// failure on one order does not stop the rest.
func (s *service) ExpireStalePending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	stale, err := s.repo.ListStalePending(ctx, cutoff, []enums.PaymentMethod{enums.PaymentMethodCard, enums.PaymentMethodPayFast}, limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	var errs error
	for _, candidate := range stale {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			order, err := repo.FindByIDForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if order.Status != enums.OrderStatusPending || order.PaymentStatus == enums.PaymentStatusCompleted {
				return nil
			}
			now := s.now().UTC()
			if err := repo.Update(ctx, order.ID, map[string]any{
				"status":         enums.OrderStatusCancelled,
				"payment_status": enums.PaymentStatusFailed,
				"updated_at":     now,
			}); err != nil {
				return err
			}
			if _, err := repo.ReleaseStock(ctx, order.ID); err != nil {
				return err
			}
			order.Status = enums.OrderStatusCancelled
			order.PaymentStatus = enums.PaymentStatusFailed
			if err := s.emitStatusChanged(ctx, tx, order, enums.OrderStatusPending, "payment window expired", nil); err != nil {
				return err
			}
			expired++
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", candidate.ID, err))
		}
	}
	return expired, errs
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, order *models.Order, from enums.OrderStatus, reason string, actor *outbox.ActorRef) error {
	now := s.now().UTC()
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			From:          from,
			To:            order.Status,
			PaymentStatus: order.PaymentStatus,
			Reason:        reason,
			ChangedAt:     now,
		},
		OccurredAt: now,
	})
}

func (s *service) notifyBestEffort(ctx context.Context, order *models.Order, kind enums.NotificationType, title, message string) {
	if err := s.notifier.Notify(ctx, order.UserID, kind, title, message, TrackingPath(order.ID.String())); err != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "order notification failed: "+err.Error())
	}
}

func canView(order *models.Order, viewer Viewer) bool {
	if viewer.Role == enums.RoleAdmin || order.UserID == viewer.UserID {
		return true
	}
	return viewer.Role == enums.RoleFarmer && sellsIn(order, viewer.UserID)
}

func canFulfil(order *models.Order, actor Viewer) bool {
	switch actor.Role {
	case enums.RoleAdmin:
		return true
	case enums.RoleFarmer:
		return sellsIn(order, actor.UserID)
	default:
		return false
	}
}

func sellsIn(order *models.Order, farmerID uuid.UUID) bool {
	for _, item := range order.Items {
		if item.FarmerID == farmerID {
			return true
		}
	}
	return false
}
