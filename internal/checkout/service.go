package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/internal/cart"
	"github.com/farmersbracket/farmersbracket-backend/internal/orders"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	pkgerrors "github.com/farmersbracket/farmersbracket-backend/pkg/errors"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/metrics"
	"github.com/farmersbracket/farmersbracket-backend/pkg/money"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/payloads"
	"github.com/farmersbracket/farmersbracket-backend/pkg/payfast"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	Items(ctx context.Context, userID uuid.UUID) ([]cart.Item, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type productLoader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentRecorder interface {
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	AttachPaymentReference(ctx context.Context, orderID uuid.UUID, reference string) error
	CompletePayment(ctx context.Context, orderID uuid.UUID, confirmation orders.PaymentConfirmation) (*models.Order, bool, error)
	MarkProcessing(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

// Service prices carts and turns them into orders.
type Service interface {
	Quote(ctx context.Context, userID uuid.UUID, input QuoteInput) (*Quote, error)
	SubmitOrder(ctx context.Context, input SubmitInput) (*Result, error)
	ConfirmPayment(ctx context.Context, input ConfirmInput) (*Result, error)
}

// SubmitInput is the checkout form plus the caller's identity.
type SubmitInput struct {
	UserID               uuid.UUID
	Email                string
	FullName             string
	Phone                string
	ShippingAddress      string
	DeliveryInstructions string
	PaymentMethod        string
	PaymentMethodToken   string
	DeliverySlot         string
	GiftWrap             string
	TipCents             int64
	PromoCode            string
}

// ConfirmInput confirms a pending card payment with a tokenized card.
type ConfirmInput struct {
	OrderID            uuid.UUID
	UserID             uuid.UUID
	PaymentMethodToken string
}

// QuoteInput carries the optional pricing choices for a cart preview.
type QuoteInput struct {
	DeliverySlot string
	GiftWrap     string
	TipCents     int64
	PromoCode    string
}

// Quote previews what SubmitOrder would charge for the current cart.
type Quote struct {
	Totals       Totals         `json:"totals"`
	Total        string         `json:"total"`
	Currency     string         `json:"currency"`
	ItemCount    int            `json:"item_count"`
	DeliverySlot string         `json:"delivery_slot,omitempty"`
	Slots        []DeliverySlot `json:"delivery_slots"`
}

// ServiceParams wires checkout dependencies. PayFast and Metrics are optional.
type ServiceParams struct {
	Tx       txRunner
	Orders   orders.Repository
	Payments paymentRecorder
	Cart     cartStore
	Products productLoader
	Outbox   outboxPublisher
	Notifier orders.Notifier
	Card     CardGateway
	Wallet   WalletGateway
	PayFast  PayFastLinker
	Pricing  Pricing
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
}

type service struct {
	tx       txRunner
	orders   orders.Repository
	payments paymentRecorder
	cart     cartStore
	products productLoader
	outbox   outboxPublisher
	notifier orders.Notifier
	card     CardGateway
	wallet   WalletGateway
	payfast  PayFastLinker
	pricing  Pricing
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("order payment service required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Card == nil {
		return nil, fmt.Errorf("card gateway required")
	}
	if params.Wallet == nil {
		return nil, fmt.Errorf("wallet gateway required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	pricing := params.Pricing
	if pricing.Currency == "" {
		pricing.Currency = "ZAR"
	}
	return &service{
		tx:       params.Tx,
		orders:   params.Orders,
		payments: params.Payments,
		cart:     params.Cart,
		products: params.Products,
		outbox:   params.Outbox,
		notifier: params.Notifier,
		card:     params.Card,
		wallet:   params.Wallet,
		payfast:  params.PayFast,
		pricing:  pricing,
		metrics:  params.Metrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Quote(ctx context.Context, userID uuid.UUID, input QuoteInput) (*Quote, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	items, err := s.cart.Items(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	fields := pkgerrors.FieldErrors{}
	slot, slotCents, err := s.pricing.SlotSurcharge(input.DeliverySlot)
	mergeFieldErrors(fields, err)
	gift, err := ParseGiftWrap(input.GiftWrap)
	mergeFieldErrors(fields, err)
	promo, err := cart.LookupPromo(input.PromoCode)
	mergeFieldErrors(fields, err)
	if len(fields) > 0 {
		return nil, pkgerrors.Validation(fields)
	}

	totals, err := ComputeTotal(TotalsInput{
		Items:              items,
		BaseDeliveryCents:  s.pricing.BaseDeliveryCents,
		SlotSurchargeCents: slotCents,
		GiftWrap:           gift,
		TipCents:           input.TipCents,
		Promo:              promo,
	})
	if err != nil {
		return nil, err
	}

	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return &Quote{
		Totals:       totals,
		Total:        money.Format(totals.TotalCents),
		Currency:     s.pricing.Currency,
		ItemCount:    count,
		DeliverySlot: slot,
		Slots:        s.pricing.SlotOptions(),
	}, nil
}

// preparedOrder is a validated submission with live prices applied.
type preparedOrder struct {
	method   enums.PaymentMethod
	items    []cart.Item
	products map[uuid.UUID]models.Product
	totals   Totals
	slot     string
	giftWrap GiftWrap
	promo    cart.Promo
}

// SubmitOrder walks the submission states. Validation failures write nothing;
// once the order commits, a Result is always returned, possibly together with
// a payment or partial failure.
func (s *service) SubmitOrder(ctx context.Context, input SubmitInput) (result *Result, err error) {
	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	defer func() {
		s.metrics.Submission(method, submissionOutcome(result, err))
	}()

	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	logCtx := s.logg.WithUserID(ctx, input.UserID.String())
	s.trace(logCtx, StateIdle)

	s.trace(logCtx, StateValidating)
	prepared, err := s.prepare(ctx, input)
	if err != nil {
		return nil, err
	}

	order, err := s.commit(logCtx, input, prepared)
	if err != nil {
		return nil, err
	}
	logCtx = s.logg.WithOrderID(logCtx, order.ID.String())

	s.trace(logCtx, StateAwaitingPayment)
	switch prepared.method {
	case enums.PaymentMethodCard:
		return s.payByCard(logCtx, order, input.PaymentMethodToken)
	case enums.PaymentMethodWallet:
		return s.payByWallet(logCtx, order)
	case enums.PaymentMethodBankTransfer:
		return s.awaitPayment(logCtx, order, "", "", bankTransferMessage)
	case enums.PaymentMethodCash:
		updated, err := s.payments.MarkProcessing(ctx, order.ID)
		if err != nil {
			return s.resultFor(order, StateAwaitingPayment), pkgerrors.PartialFailure(err, order.ID.String(), "mark_processing")
		}
		return s.finish(logCtx, updated, true)
	case enums.PaymentMethodPayFast:
		return s.payByPayFast(logCtx, order, input)
	default:
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"payment_method": fieldMessages["payment_method"]})
	}
}

func (s *service) ConfirmPayment(ctx context.Context, input ConfirmInput) (*Result, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.payments.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	logCtx := s.logg.WithOrderID(ctx, order.ID.String())

	if order.PaymentStatus == enums.PaymentStatusCompleted {
		res := s.resultFor(order, StateCompleted)
		res.TrackingPath = orders.TrackingPath(order.ID.String())
		return res, nil
	}
	if order.PaymentMethod != enums.PaymentMethodCard {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only card payments are confirmed here")
	}
	if order.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order was cancelled")
	}
	token := strings.TrimSpace(input.PaymentMethodToken)
	if token == "" {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"payment_method_token": "card token is required"})
	}
	if err := s.holdStock(ctx, order); err != nil {
		return nil, err
	}

	charge := s.chargeFor(order)
	intentID := ""
	if order.PaymentReference != nil {
		intentID = *order.PaymentReference
	}
	if intentID == "" {
		intent, err := s.card.CreateIntent(ctx, charge)
		if err != nil {
			return s.declined(logCtx, order, s.card.Name(), nil, err)
		}
		if err := s.payments.AttachPaymentReference(ctx, order.ID, intent.ID); err != nil {
			return s.resultFor(order, StatePaymentPending), pkgerrors.PartialFailure(err, order.ID.String(), "attach_payment_reference")
		}
		intentID = intent.ID
	}
	return s.confirmCard(logCtx, order, intentID, token, charge, false)
}

func (s *service) prepare(ctx context.Context, input SubmitInput) (*preparedOrder, error) {
	fields := validateDetails(input)

	items, err := s.cart.Items(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(items) == 0 {
		fields["cart"] = "your cart is empty"
	}

	slot, slotCents, err := s.pricing.SlotSurcharge(input.DeliverySlot)
	mergeFieldErrors(fields, err)
	gift, err := ParseGiftWrap(input.GiftWrap)
	mergeFieldErrors(fields, err)
	promo, err := cart.LookupPromo(input.PromoCode)
	mergeFieldErrors(fields, err)
	if input.TipCents < 0 {
		fields["tip"] = "tip must not be negative"
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation(fields)
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	live, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	priced := make([]cart.Item, 0, len(items))
	for _, item := range items {
		product, ok := live[item.ProductID]
		if !ok {
			fields["items"] = item.Name + " is no longer available"
			continue
		}
		item.Name = product.Name
		item.FarmerID = product.FarmerID
		item.PriceCents = product.PriceCents
		item.Unit = product.Unit
		priced = append(priced, item)
	}
	if len(fields) > 0 {
		return nil, pkgerrors.Validation(fields)
	}

	totals, err := ComputeTotal(TotalsInput{
		Items:              priced,
		BaseDeliveryCents:  s.pricing.BaseDeliveryCents,
		SlotSurchargeCents: slotCents,
		GiftWrap:           gift,
		TipCents:           input.TipCents,
		Promo:              promo,
	})
	if err != nil {
		return nil, err
	}

	return &preparedOrder{
		method:   enums.PaymentMethod(strings.ToLower(strings.TrimSpace(input.PaymentMethod))),
		items:    priced,
		products: live,
		totals:   totals,
		slot:     slot,
		giftWrap: gift,
		promo:    promo,
	}, nil
}

// commit inserts the order, its items and the order.created event atomically.
func (s *service) commit(ctx context.Context, input SubmitInput, prepared *preparedOrder) (*models.Order, error) {
	now := s.now().UTC()
	order := &models.Order{
		ID:               uuid.New(),
		UserID:           input.UserID,
		CustomerName:     strings.TrimSpace(input.FullName),
		CustomerEmail:    strings.TrimSpace(input.Email),
		Phone:            NormalizePhone(input.Phone),
		SubtotalCents:    prepared.totals.SubtotalCents,
		DeliveryFeeCents: prepared.totals.DeliveryFeeCents,
		TipCents:         prepared.totals.TipCents,
		DiscountCents:    prepared.totals.DiscountCents,
		TotalCents:       prepared.totals.TotalCents,
		Currency:         s.pricing.Currency,
		Status:           enums.OrderStatusPending,
		PaymentStatus:    enums.PaymentStatusPending,
		PaymentMethod:    prepared.method,
		PromoCode:        optional(prepared.promo.Code),
		DeliverySlot:     optional(prepared.slot),
		GiftWrapStyle:    optional(string(prepared.giftWrap)),
		ShippingAddress:  strings.TrimSpace(input.ShippingAddress),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	order.DeliveryInstructions = optional(strings.TrimSpace(input.DeliveryInstructions))

	items := make([]models.OrderItem, 0, len(prepared.items))
	lines := make([]payloads.OrderLine, 0, len(prepared.items))
	for _, item := range prepared.items {
		product := prepared.products[item.ProductID]
		items = append(items, models.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      item.ProductID,
			FarmerID:       product.FarmerID,
			ProductName:    product.Name,
			Category:       product.Category,
			Unit:           product.Unit,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
			LineTotalCents: item.LineTotalCents(),
			CreatedAt:      now,
		})
		lines = append(lines, payloads.OrderLine{
			ProductID:      item.ProductID,
			FarmerID:       product.FarmerID,
			Category:       product.Category,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		s.trace(ctx, StateSubmittingOrder)
		if err := repo.Create(ctx, order); err != nil {
			return err
		}

		s.trace(ctx, StateSubmittingItems)
		if err := repo.CreateItems(ctx, items); err != nil {
			return err
		}
		if err := repo.ReserveStock(ctx, order.ID); err != nil {
			return err
		}
		order.StockReserved = true

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: enums.RoleCustomer},
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				CustomerEmail: order.CustomerEmail,
				PaymentMethod: order.PaymentMethod,
				SubtotalCents: order.SubtotalCents,
				TotalCents:    order.TotalCents,
				Currency:      order.Currency,
				PromoCode:     prepared.promo.Code,
				Lines:         lines,
				CreatedAt:     now,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		s.logg.Error(ctx, "order submission rolled back", err)
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "submit order")
	}
	order.Items = items
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order submitted")
	return order, nil
}

func (s *service) payByCard(ctx context.Context, order *models.Order, token string) (*Result, error) {
	charge := s.chargeFor(order)
	intent, err := s.card.CreateIntent(ctx, charge)
	if err != nil {
		return s.declined(ctx, order, s.card.Name(), nil, err)
	}
	if err := s.payments.AttachPaymentReference(ctx, order.ID, intent.ID); err != nil {
		return s.resultFor(order, StatePaymentPending), pkgerrors.PartialFailure(err, order.ID.String(), "attach_payment_reference")
	}
	ref := intent.ID
	order.PaymentReference = &ref

	token = strings.TrimSpace(token)
	if token == "" {
		return s.awaitPayment(ctx, order, intent.ClientSecret, "", "Confirm your card to complete the order.")
	}
	return s.confirmCard(ctx, order, intent.ID, token, charge, true)
}

func (s *service) confirmCard(ctx context.Context, order *models.Order, intentID, token string, charge CardCharge, clearCart bool) (*Result, error) {
	gateway := s.card.Name()
	intent, err := s.card.ConfirmIntent(ctx, intentID, token, charge)
	if err != nil || intent == nil || !intent.Succeeded {
		return s.declined(ctx, order, gateway, intent, err)
	}
	return s.recordPaid(ctx, order, gateway, intent.ID, clearCart)
}

func (s *service) payByWallet(ctx context.Context, order *models.Order) (*Result, error) {
	gateway := s.wallet.Name()
	reference, err := s.wallet.Charge(ctx, WalletCharge{
		OrderID:     order.ID,
		UserID:      order.UserID,
		AmountCents: order.TotalCents,
		Currency:    order.Currency,
	})
	if err != nil {
		return s.declined(ctx, order, gateway, nil, err)
	}
	return s.recordPaid(ctx, order, gateway, reference, true)
}

func (s *service) payByPayFast(ctx context.Context, order *models.Order, input SubmitInput) (*Result, error) {
	if s.payfast == nil {
		return s.declined(ctx, order, "payfast", nil, pkgerrors.New(pkgerrors.CodeDependency, "PayFast is not available right now"))
	}
	first, last := splitName(order.CustomerName)
	redirect, err := s.payfast.RedirectURL(payfast.PaymentRequest{
		OrderID:     order.ID.String(),
		AmountCents: order.TotalCents,
		FirstName:   first,
		LastName:    last,
		Email:       order.CustomerEmail,
	})
	if err != nil {
		return s.declined(ctx, order, "payfast", nil, err)
	}
	return s.awaitPayment(ctx, order, "", redirect, "Complete your payment on PayFast.")
}

// recordPaid marks the order paid after the processor captured funds.
func (s *service) recordPaid(ctx context.Context, order *models.Order, gateway, reference string, clearCart bool) (*Result, error) {
	s.metrics.Confirmation(gateway, "succeeded")
	updated, _, err := s.payments.CompletePayment(ctx, order.ID, orders.PaymentConfirmation{Gateway: gateway, Reference: reference})
	if err != nil {
		s.logg.Error(ctx, "payment captured but not recorded", err)
		return s.resultFor(order, StateAwaitingPayment), pkgerrors.PartialFailure(err, order.ID.String(), "record_payment")
	}
	return s.finish(ctx, updated, clearCart)
}

// finish runs the completed-state follow-ups. Their failures are reported
// without undoing the order.
func (s *service) finish(ctx context.Context, order *models.Order, clearCart bool) (*Result, error) {
	s.trace(ctx, StateCompleted)
	res := s.resultFor(order, StateCompleted)
	res.TrackingPath = orders.TrackingPath(order.ID.String())

	message := fmt.Sprintf("Your order %s for R%s has been placed.", shortRef(order.ID), money.Format(order.TotalCents))
	err := s.followUps(ctx, order, clearCart, enums.NotificationTypeOrderPlaced, "Order placed", message)
	return res, err
}

func (s *service) awaitPayment(ctx context.Context, order *models.Order, clientSecret, redirect, message string) (*Result, error) {
	s.trace(ctx, StatePaymentPending)
	res := s.resultFor(order, StatePaymentPending)
	res.ClientSecret = clientSecret
	res.RedirectURL = redirect
	res.Message = message
	res.TrackingPath = orders.TrackingPath(order.ID.String())

	text := fmt.Sprintf("Order %s is waiting for payment. %s", shortRef(order.ID), message)
	err := s.followUps(ctx, order, true, enums.NotificationTypePaymentPending, "Payment pending", text)
	return res, err
}

// declined reports a processor failure. The order stays pending so the
// customer can retry, but its stock goes back until ConfirmPayment takes it
// again.
func (s *service) declined(ctx context.Context, order *models.Order, gateway string, intent *CardIntent, cause error) (*Result, error) {
	s.trace(ctx, StateFailed)
	s.metrics.Confirmation(gateway, "failed")
	s.releaseStock(ctx, order)
	msg := declineMessage(intent, cause)
	if cause == nil {
		cause = fmt.Errorf("payment not captured: %s", msg)
	}
	s.logg.Warn(s.logg.WithField(ctx, "gateway", gateway), "payment declined: "+msg)
	return s.resultFor(order, StateFailed), pkgerrors.Payment(cause, msg, pkgerrors.PaymentDetails{
		OrderID: order.ID.String(),
		Gateway: gateway,
	})
}

// holdStock re-reserves the stock of an order whose earlier payment attempt
// gave it back. Orders still holding their stock pass straight through.
func (s *service) holdStock(ctx context.Context, order *models.Order) error {
	if order.StockReserved {
		return nil
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.orders.WithTx(tx).ReserveStock(ctx, order.ID)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserve stock")
	}
	order.StockReserved = true
	return nil
}

func (s *service) releaseStock(ctx context.Context, order *models.Order) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.orders.WithTx(tx).ReleaseStock(ctx, order.ID)
		return err
	})
	if err != nil {
		s.logg.Error(ctx, "release stock of declined order", err)
		return
	}
	order.StockReserved = false
}

func (s *service) followUps(ctx context.Context, order *models.Order, clearCart bool, kind enums.NotificationType, title, message string) error {
	var (
		errs  error
		steps []string
	)
	if clearCart {
		if err := s.cart.Clear(ctx, order.UserID); err != nil {
			errs = multierr.Append(errs, err)
			steps = append(steps, "clear_cart")
		}
	}
	if err := s.notifier.Notify(ctx, order.UserID, kind, title, message, orders.TrackingPath(order.ID.String())); err != nil {
		errs = multierr.Append(errs, err)
		steps = append(steps, "notification")
	}
	if errs == nil {
		return nil
	}
	s.logg.Error(ctx, "checkout follow-up failed", errs)
	return pkgerrors.PartialFailure(errs, order.ID.String(), strings.Join(steps, ","))
}

func (s *service) chargeFor(order *models.Order) CardCharge {
	return CardCharge{
		OrderID:        order.ID,
		AmountCents:    order.TotalCents,
		Currency:       order.Currency,
		IdempotencyKey: "order-" + order.ID.String(),
	}
}

func (s *service) resultFor(order *models.Order, state State) *Result {
	return &Result{
		State:         state,
		OrderID:       order.ID,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		PaymentMethod: order.PaymentMethod,
		Totals: Totals{
			SubtotalCents:    order.SubtotalCents,
			DeliveryFeeCents: order.DeliveryFeeCents,
			TipCents:         order.TipCents,
			DiscountCents:    order.DiscountCents,
			TotalCents:       order.TotalCents,
		},
		Total:    money.Format(order.TotalCents),
		Currency: order.Currency,
	}
}

func (s *service) trace(ctx context.Context, state State) {
	s.logg.Debug(s.logg.WithField(ctx, "checkout_state", string(state)), "checkout state entered")
}

func submissionOutcome(result *Result, err error) string {
	if result != nil {
		return string(result.State)
	}
	if pkgerrors.Is(err, pkgerrors.CodeValidation) {
		return "rejected"
	}
	return "error"
}

func declineMessage(intent *CardIntent, err error) string {
	if intent != nil && intent.FailureMessage != "" {
		return intent.FailureMessage
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	if err != nil {
		return err.Error()
	}
	return "Your payment was declined."
}

func mergeFieldErrors(dst pkgerrors.FieldErrors, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		return
	}
	if fields, ok := typed.Details().(pkgerrors.FieldErrors); ok {
		for k, v := range fields {
			dst[k] = v
		}
	}
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func shortRef(id uuid.UUID) string {
	return "#" + strings.ToUpper(id.String()[:8])
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
