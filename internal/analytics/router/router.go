// Package router maps order lifecycle envelopes onto order_events rows.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/farmersbracket/farmersbracket-backend/internal/analytics/types"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/payloads"
)

var (
	ErrUnsupportedEventType = errors.New("unsupported analytics event type")
	errEmptyPayload         = errors.New("empty payload")
)

// Writer stores finished rows.
type Writer interface {
	InsertOrderEvent(ctx context.Context, row types.OrderEventRow) error
}

// Handler receives an envelope plus its decoded payload, a pointer to the
// event struct registered for the envelope's type.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

type decodeFunc func(json.RawMessage) (any, error)

func decodeAs[T any]() decodeFunc {
	return func(raw json.RawMessage) (any, error) {
		event := new(T)
		if err := json.Unmarshal(raw, event); err != nil {
			return nil, err
		}
		return event, nil
	}
}

type route struct {
	decode  decodeFunc
	handler Handler
}

// Router picks the route for an envelope's event type.
type Router struct {
	routes map[enums.OutboxEventType]route
}

// NewRouter registers the order event routes. overrides replace the handler of
// a registered event type; unknown types and nil handlers are ignored.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	switch {
	case writer == nil:
		return nil, errors.New("writer is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}

	rows := func(build rowBuilder) Handler { return rowHandler{writer: writer, logg: logg, build: build} }
	r := &Router{routes: map[enums.OutboxEventType]route{
		enums.EventOrderCreated:       {decodeAs[payloads.OrderCreatedEvent](), rows(typed(orderCreatedRow))},
		enums.EventOrderPaid:          {decodeAs[payloads.OrderPaidEvent](), rows(typed(orderPaidRow))},
		enums.EventOrderStatusChanged: {decodeAs[payloads.OrderStatusChangedEvent](), rows(typed(statusChangedRow))},
	}}

	for eventType, custom := range overrides {
		if rt, ok := r.routes[eventType]; ok && custom != nil {
			rt.handler = custom
			r.routes[eventType] = rt
		}
	}
	return r, nil
}

func (r *Router) Supports(eventType enums.OutboxEventType) bool {
	_, ok := r.routes[eventType]
	return ok
}

// Handle decodes the payload and hands it to the route's handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	rt, ok := r.routes[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("%s: %w", envelope.EventType, errEmptyPayload)
	}
	payload, err := rt.decode(envelope.Payload)
	if err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	return rt.handler.Handle(ctx, envelope, payload)
}
