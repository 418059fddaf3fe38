package worker

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/farmersbracket/farmersbracket-backend/internal/analytics/types"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/metrics"
)

const consumerName = "analytics"

// Handler writes one envelope to the warehouse. Supports lets the worker drop
// event types early, before any idempotency claim is taken.
type Handler interface {
	Supports(eventType enums.OutboxEventType) bool
	Handle(ctx context.Context, envelope types.Envelope) error
}

type deliveryGuard interface {
	Claim(ctx context.Context, consumer, id string) (bool, error)
	Release(ctx context.Context, consumer, id string) error
}

type deliveryRecorder interface {
	Delivery(consumer, eventType, outcome string)
}

// Service feeds order events from the analytics subscription into a Handler.
type Service struct {
	subscription *gcppubsub.Subscriber
	handler      Handler
	guard        deliveryGuard
	recorder     deliveryRecorder
	logg         *logger.Logger
}

// Option customises a Service.
type Option func(*Service)

// WithRecorder counts every settled delivery.
func WithRecorder(r deliveryRecorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

func NewService(subscription *gcppubsub.Subscriber, handler Handler, guard deliveryGuard, logg *logger.Logger, opts ...Option) (*Service, error) {
	if subscription == nil {
		return nil, errors.New("analytics subscription is required")
	}
	return newService(subscription, handler, guard, logg, opts...)
}

func newService(subscription *gcppubsub.Subscriber, handler Handler, guard deliveryGuard, logg *logger.Logger, opts ...Option) (*Service, error) {
	switch {
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case guard == nil:
		return nil, errors.New("idempotency manager is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	s := &Service{
		subscription: subscription,
		handler:      handler,
		guard:        guard,
		recorder:     (*metrics.ConsumerMetrics)(nil),
		logg:         logg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run receives until ctx ends. Only retry outcomes are nacked; everything
// else, including malformed messages, is acked so it is not redelivered.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		if s.process(ctx, msg) == metrics.OutcomeRetry {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) string {
	envelope, err := buildEnvelope(msg)
	if err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"message_id": msg.ID, "error": err.Error()})
		s.logg.Warn(logCtx, "invalid analytics envelope")
		return s.settle(msg.Attributes["event_type"], metrics.OutcomeInvalid)
	}

	fields := envelope.LogFields()
	fields["message_id"] = msg.ID
	logCtx := s.logg.WithFields(ctx, fields)
	eventType := envelope.EventType.String()

	if !s.handler.Supports(envelope.EventType) {
		s.logg.Debug(logCtx, "event not handled by analytics")
		return s.settle(eventType, metrics.OutcomeSkipped)
	}

	claimed, err := s.guard.Claim(logCtx, consumerName, envelope.EventID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency check failed", err)
		return s.settle(eventType, metrics.OutcomeRetry)
	}
	if !claimed {
		s.logg.Info(logCtx, "event already processed")
		return s.settle(eventType, metrics.OutcomeDuplicate)
	}

	if err := s.handler.Handle(logCtx, *envelope); err != nil {
		s.logg.Error(logCtx, "analytics handler failed", err)
		if rerr := s.guard.Release(context.WithoutCancel(logCtx), consumerName, envelope.EventID); rerr != nil {
			s.logg.Error(logCtx, "failed to release idempotency claim", rerr)
		}
		return s.settle(eventType, metrics.OutcomeRetry)
	}

	s.logg.Info(logCtx, "analytics event handled")
	return s.settle(eventType, metrics.OutcomeSuccess)
}

func (s *Service) settle(eventType, outcome string) string {
	s.recorder.Delivery(consumerName, eventType, outcome)
	return outcome
}
