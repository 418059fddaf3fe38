package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/registry"
)

func orderEvent(t *testing.T, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	t.Helper()
	body, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.New(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID: uuid.New(),
		OutboxRecord: models.OutboxRecord{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       body,
		},
		AttemptCount: attempts,
		CreatedAt:    time.Now().UTC(),
	}
}

type rowLog struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  map[uuid.UUID]int
}

func (r *rowLog) FetchUnpublishedForPublish(_ *gorm.DB, _, _ int) ([]models.OutboxEvent, error) {
	return r.events, nil
}

func (r *rowLog) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *rowLog) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	r.failed = append(r.failed, id)
	return nil
}

func (r *rowLog) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, attempts int) error {
	if r.terminal == nil {
		r.terminal = map[uuid.UUID]int{}
	}
	r.terminal[id] = attempts
	return nil
}

type inlineTx struct{}

func (inlineTx) Ping(context.Context) error { return nil }

func (inlineTx) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type idlePubSub struct{}

func (idlePubSub) Ping(context.Context) error { return nil }

func (idlePubSub) Publisher(string) *gcppubsub.Publisher { return nil }

// scriptedPublisher returns the queued errors in order; nil entries succeed.
type scriptedPublisher struct {
	errs []error
	sent []*gcppubsub.Message
}

func (p *scriptedPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.sent = append(p.sent, msg)
	var err error
	if len(p.errs) > 0 {
		err, p.errs = p.errs[0], p.errs[1:]
	}
	return settled{err: err}
}

type settled struct {
	err error
}

func (s settled) Get(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "server-id", nil
}

// topicRegistry routes every event to one topic unless failWith is set.
type topicRegistry struct {
	topic    string
	failWith error
}

func (r topicRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return nil, registry.NewNonRetryableError(err)
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: r.topic, AggregateType: event.AggregateType},
		Envelope:   env,
	}, nil
}

type dlqLog struct {
	entries []models.OutboxDLQ
}

func (d *dlqLog) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	d.entries = append(d.entries, entry)
	return nil
}

type tally struct {
	batch     int
	published int
	retryable int
	terminal  int
}

func (t *tally) Published(string) { t.published++ }

func (t *tally) Failed(_ string, retryable bool) {
	if retryable {
		t.retryable++
	} else {
		t.terminal++
	}
}

func (t *tally) Batch(size int) { t.batch = size }
