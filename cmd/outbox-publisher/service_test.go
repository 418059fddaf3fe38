package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/farmersbracket/farmersbracket-backend/pkg/config"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox/registry"
)

type harness struct {
	rows    *rowLog
	dlq     *dlqLog
	pub     *scriptedPublisher
	metrics *tally
	topics  []string
	svc     *Service
}

func newHarness(t *testing.T, maxAttempts int, reg registryResolver, events ...models.OutboxEvent) *harness {
	t.Helper()
	h := &harness{
		rows:    &rowLog{events: events},
		dlq:     &dlqLog{},
		pub:     &scriptedPublisher{},
		metrics: &tally{},
	}
	svc, err := NewService(ServiceParams{
		Config:        &config.Config{Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 50, MaxAttempts: maxAttempts}},
		Logger:        logger.Nop(),
		DB:            inlineTx{},
		PubSub:        idlePubSub{},
		Repository:    h.rows,
		Registry:      reg,
		DLQRepository: h.dlq,
		Metrics:       h.metrics,
		PublisherFactory: func(topic string) publisher {
			h.topics = append(h.topics, topic)
			return h.pub
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h.svc = svc
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	processed, err := h.svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch: %v", err)
	}
	if processed != (len(h.rows.events) > 0) {
		t.Fatalf("processed=%v for %d rows", processed, len(h.rows.events))
	}
}

func TestProcessBatchKeepsGoingAfterTransientFailure(t *testing.T) {
	first := orderEvent(t, enums.EventOrderCreated, 0)
	second := orderEvent(t, enums.EventOrderCreated, 0)
	h := newHarness(t, 5, topicRegistry{topic: "farmersbracket-orders"}, first, second)
	h.pub.errs = []error{errors.New("unavailable"), nil}

	h.run(t)

	if len(h.rows.failed) != 1 || h.rows.failed[0] != first.ID {
		t.Fatalf("expected first row marked failed, got %v", h.rows.failed)
	}
	if len(h.rows.published) != 1 || h.rows.published[0] != second.ID {
		t.Fatalf("expected second row published, got %v", h.rows.published)
	}
	if len(h.dlq.entries) != 0 {
		t.Fatalf("transient failures stay out of the dlq")
	}
	want := tally{batch: 2, published: 1, retryable: 1}
	if *h.metrics != want {
		t.Fatalf("metrics = %+v, want %+v", *h.metrics, want)
	}
}

func TestProcessBatchPublishesEnvelopeWithAttributes(t *testing.T) {
	event := orderEvent(t, enums.EventOrderPaid, 0)
	h := newHarness(t, 5, topicRegistry{topic: "farmersbracket-orders"}, event)

	h.run(t)

	if len(h.topics) != 1 || h.topics[0] != "farmersbracket-orders" {
		t.Fatalf("unexpected topics %v", h.topics)
	}
	if len(h.pub.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(h.pub.sent))
	}
	msg := h.pub.sent[0]
	if !bytes.Equal(msg.Data, event.Payload) {
		t.Fatalf("message body must be the stored envelope")
	}
	attrs := msg.Attributes
	checks := map[string]string{
		"event_type":     string(enums.EventOrderPaid),
		"aggregate_type": string(enums.AggregateOrder),
		"aggregate_id":   event.AggregateID.String(),
	}
	for key, want := range checks {
		if attrs[key] != want {
			t.Fatalf("attribute %s = %q, want %q", key, attrs[key], want)
		}
	}
	if attrs["event_id"] == "" || attrs["created_at"] == "" {
		t.Fatalf("missing identity attributes: %v", attrs)
	}
}

func TestProcessBatchDeadLetters(t *testing.T) {
	tests := []struct {
		name       string
		attempts   int
		registry   registryResolver
		publishErr error
		reason     enums.OutboxDLQErrorReason
	}{
		{
			name:     "registry rejects event",
			registry: topicRegistry{failWith: registry.NewNonRetryableError(errors.New("unknown event type"))},
			reason:   enums.OutboxDLQReasonNonRetryable,
		},
		{
			name:       "publisher reports terminal error",
			registry:   topicRegistry{topic: "farmersbracket-orders"},
			publishErr: registry.NewNonRetryableError(errors.New("topic deleted")),
			reason:     enums.OutboxDLQReasonNonRetryable,
		},
		{
			name:       "last attempt fails",
			attempts:   2,
			registry:   topicRegistry{topic: "farmersbracket-orders"},
			publishErr: errors.New("deadline exceeded"),
			reason:     enums.OutboxDLQReasonMaxAttempts,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := orderEvent(t, enums.EventOrderCreated, tt.attempts)
			h := newHarness(t, 3, tt.registry, event)
			h.pub.errs = []error{tt.publishErr}

			h.run(t)

			if len(h.dlq.entries) != 1 {
				t.Fatalf("expected one dlq entry, got %d", len(h.dlq.entries))
			}
			entry := h.dlq.entries[0]
			if entry.EventID != event.ID || entry.ErrorReason != tt.reason {
				t.Fatalf("unexpected dlq entry %+v", entry)
			}
			if !bytes.Equal(entry.Payload, event.Payload) {
				t.Fatalf("dlq must keep the original payload")
			}
			if entry.ErrorMessage == nil || *entry.ErrorMessage == "" {
				t.Fatalf("dlq entry needs an error message")
			}
			if got := h.rows.terminal[event.ID]; got != 3 {
				t.Fatalf("row should be pinned at max attempts, got %d", got)
			}
			if len(h.rows.published) != 0 || h.metrics.terminal != 1 {
				t.Fatalf("unexpected bookkeeping: published=%v metrics=%+v", h.rows.published, *h.metrics)
			}
		})
	}
}

func TestProcessBatchEmpty(t *testing.T) {
	h := newHarness(t, 5, topicRegistry{topic: "farmersbracket-orders"})
	h.run(t)
	if len(h.pub.sent) != 0 || h.metrics.batch != 0 {
		t.Fatalf("nothing should be published for an empty batch")
	}
}

func TestNextBackoffDoublesUpToCeiling(t *testing.T) {
	base := 500 * time.Millisecond
	cases := map[time.Duration]time.Duration{
		0:               time.Second,
		base:            time.Second,
		4 * time.Second: 8 * time.Second,
		8 * time.Second: maxErrorBackoff,
		maxErrorBackoff: maxErrorBackoff,
	}
	for current, want := range cases {
		if got := nextBackoff(current, base, maxErrorBackoff); got != want {
			t.Fatalf("nextBackoff(%s) = %s, want %s", current, got, want)
		}
	}
}

func TestWithJitterStaysInsideWindow(t *testing.T) {
	for range 50 {
		got := withJitter(time.Second)
		if got < time.Second || got >= time.Second+jitterWindow {
			t.Fatalf("jitter out of range: %s", got)
		}
	}
	if got := withJitter(0); got != 0 {
		t.Fatalf("expected zero for zero input, got %s", got)
	}
}

func TestSleepContextStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestNewServiceNamesMissingDependency(t *testing.T) {
	params := ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.Nop(),
		DB:         inlineTx{},
		PubSub:     idlePubSub{},
		Repository: &rowLog{},
		Registry:   topicRegistry{},
	}
	_, err := NewService(params)
	if err == nil || !strings.Contains(err.Error(), "dlq repository") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewServiceAppliesDefaults(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Config:        &config.Config{},
		Logger:        logger.Nop(),
		DB:            inlineTx{},
		PubSub:        idlePubSub{},
		Repository:    &rowLog{},
		Registry:      topicRegistry{},
		DLQRepository: &dlqLog{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if svc.batchSize != defaultBatchSize || svc.maxAttempts != defaultMaxAttempts || svc.pollInterval != defaultPollInterval {
		t.Fatalf("defaults not applied: %+v", svc)
	}
	if svc.publisherFactory == nil || svc.metrics == nil {
		t.Fatal("publisher factory and metrics should default")
	}
}
