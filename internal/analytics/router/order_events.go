package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/farmersbracket/farmersbracket-backend/internal/analytics/types"
	analyticswriter "github.com/farmersbracket/farmersbracket-backend/internal/analytics/writer"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/payloads"
)

type rowBuilder func(envelope types.Envelope, payload any) (types.OrderEventRow, error)

// typed adapts a builder for one payload type to a rowBuilder.
func typed[T any](build func(types.Envelope, *T) (types.OrderEventRow, error)) rowBuilder {
	return func(envelope types.Envelope, payload any) (types.OrderEventRow, error) {
		event, ok := payload.(*T)
		if !ok {
			return types.OrderEventRow{}, fmt.Errorf("%s: unexpected payload %T", envelope.EventType, payload)
		}
		return build(envelope, event)
	}
}

// rowHandler turns one decoded order event into one order_events row.
type rowHandler struct {
	writer Writer
	logg   *logger.Logger
	build  rowBuilder
}

func (h rowHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	logCtx := h.logg.WithFields(ctx, envelope.LogFields())

	row, err := h.build(envelope, payload)
	if err != nil {
		return fmt.Errorf("build %s row: %w", envelope.EventType, err)
	}
	if err := h.writer.InsertOrderEvent(logCtx, row); err != nil {
		return fmt.Errorf("insert %s row: %w", envelope.EventType, err)
	}
	h.logg.Debug(logCtx, "order event row written")
	return nil
}

func baseRow(envelope types.Envelope, payload any) (types.OrderEventRow, error) {
	payloadJSON, err := analyticswriter.EncodeJSON(payload)
	if err != nil {
		return types.OrderEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}
	return types.OrderEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: envelope.OccurredAt,
		OrderID:    envelope.AggregateID,
		Payload:    payloadJSON,
	}, nil
}

func orderCreatedRow(envelope types.Envelope, event *payloads.OrderCreatedEvent) (types.OrderEventRow, error) {
	row, err := baseRow(envelope, event)
	if err != nil {
		return row, err
	}
	lines, err := analyticswriter.EncodeJSON(event.Lines)
	if err != nil {
		return row, fmt.Errorf("encode lines json: %w", err)
	}
	var items int64
	for _, line := range event.Lines {
		items += int64(line.Quantity)
	}

	row.OrderID = event.OrderID.String()
	row.UserID = optString(event.UserID.String())
	row.PaymentMethod = optString(string(event.PaymentMethod))
	row.Currency = optString(event.Currency)
	row.SubtotalCents = optInt(event.SubtotalCents)
	row.TotalCents = optInt(event.TotalCents)
	row.ItemCount = optInt(items)
	row.PromoCode = optString(event.PromoCode)
	row.Lines = lines
	if !event.CreatedAt.IsZero() {
		row.OccurredAt = event.CreatedAt.UTC()
	}
	return row, nil
}

func orderPaidRow(envelope types.Envelope, event *payloads.OrderPaidEvent) (types.OrderEventRow, error) {
	row, err := baseRow(envelope, event)
	if err != nil {
		return row, err
	}
	row.OrderID = event.OrderID.String()
	row.UserID = optString(event.UserID.String())
	row.Gateway = optString(event.Gateway)
	row.Currency = optString(event.Currency)
	row.PaidCents = optInt(event.AmountCents)
	if !event.PaidAt.IsZero() {
		row.OccurredAt = event.PaidAt.UTC()
	}
	return row, nil
}

func statusChangedRow(envelope types.Envelope, event *payloads.OrderStatusChangedEvent) (types.OrderEventRow, error) {
	row, err := baseRow(envelope, event)
	if err != nil {
		return row, err
	}
	row.OrderID = event.OrderID.String()
	row.UserID = optString(event.UserID.String())
	row.StatusFrom = optString(string(event.From))
	row.StatusTo = optString(string(event.To))
	row.PaymentStatus = optString(string(event.PaymentStatus))
	if !event.ChangedAt.IsZero() {
		row.OccurredAt = event.ChangedAt.UTC()
	}
	return row, nil
}

// optString maps blank strings to NULL.
func optString(value string) *string {
	if value = strings.TrimSpace(value); value == "" {
		return nil
	}
	return &value
}

func optInt(value int64) *int64 { return &value }
