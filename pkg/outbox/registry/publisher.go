// Package registry routes outbox rows to Pub/Sub topics and decodes their
// typed payloads.
package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/payloads"
)

// EventDescriptor links an event type to its aggregate, topic and payload schema.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	newPayload    func() any
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError marks err as terminal for the dispatcher.
func NewNonRetryableError(err error) error {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

// NewEventRegistry builds the registry with the configured topic names.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	switch {
	case cfg.OrdersTopic == "":
		return nil, fmt.Errorf("orders topic is required")
	case cfg.NotificationTopic == "":
		return nil, fmt.Errorf("notification topic is required")
	case cfg.AuthTopic == "":
		return nil, fmt.Errorf("auth topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	for _, desc := range []EventDescriptor{
		{enums.EventOrderCreated, enums.AggregateOrder, cfg.OrdersTopic, func() any { return &payloads.OrderCreatedEvent{} }},
		{enums.EventOrderPaid, enums.AggregateOrder, cfg.OrdersTopic, func() any { return &payloads.OrderPaidEvent{} }},
		{enums.EventOrderStatusChanged, enums.AggregateOrder, cfg.OrdersTopic, func() any { return &payloads.OrderStatusChangedEvent{} }},
		{enums.EventNotificationCreated, enums.AggregateNotification, cfg.NotificationTopic, func() any { return &payloads.NotificationCreatedEvent{} }},
		{enums.EventPasswordResetRequested, enums.AggregateUser, cfg.AuthTopic, func() any { return &payloads.PasswordResetRequestedEvent{} }},
		{enums.EventEmailConfirmationRequested, enums.AggregateUser, cfg.AuthTopic, func() any { return &payloads.ConfirmationRequestedEvent{} }},
	} {
		reg.entries[desc.EventType] = desc
	}
	return reg, nil
}

// Topics lists the distinct topics the registry publishes to.
func (r *EventRegistry) Topics() []string {
	seen := map[string]struct{}{}
	var topics []string
	for _, desc := range r.entries {
		if _, ok := seen[desc.Topic]; ok {
			continue
		}
		seen[desc.Topic] = struct{}{}
		topics = append(topics, desc.Topic)
	}
	return topics
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	}
	if desc.AggregateType != event.AggregateType {
		return nil, nonRetryable("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType)
	}
	if event.AggregateID == uuid.Nil {
		return nil, nonRetryable("missing aggregate_id")
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nonRetryable("payload missing for %s", event.EventType)
	}

	payload := desc.newPayload()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

// DecodeEnvelope parses a published message body back into an envelope plus
// typed payload. Consumers use it on the receiving side of the topic.
func (r *EventRegistry) DecodeEnvelope(body []byte) (*ResolvedEvent, error) {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	desc, ok := r.entries[enums.OutboxEventType(envelope.EventType)]
	if !ok {
		return nil, nonRetryable("unsupported event type %s", envelope.EventType)
	}
	payload := desc.newPayload()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, nonRetryable("decode %s payload: %w", envelope.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
