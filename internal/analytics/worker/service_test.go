package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/internal/analytics/types"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
	"github.com/farmersbracket/farmersbracket-backend/pkg/logger"
	"github.com/farmersbracket/farmersbracket-backend/pkg/metrics"
	"github.com/farmersbracket/farmersbracket-backend/pkg/outbox"
)

func TestBuildEnvelope(t *testing.T) {
	eventID := uuid.New()
	payload := outbox.PayloadEnvelope{
		EventID:    eventID,
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:       json.RawMessage(`{"order_id":"ord-1"}`),
	}
	msg := buildMessage(payload, map[string]string{
		"event_type":     "order.created",
		"aggregate_type": "order",
		"aggregate_id":   "ord-1",
	})

	env, err := buildEnvelope(msg)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventType != enums.EventOrderCreated {
		t.Fatalf("unexpected event type %v", env.EventType)
	}
	if env.AggregateType != enums.AggregateOrder {
		t.Fatalf("unexpected aggregate type %v", env.AggregateType)
	}
	if env.AggregateID != "ord-1" {
		t.Fatalf("unexpected aggregate id %s", env.AggregateID)
	}
	if env.EventID != eventID.String() {
		t.Fatalf("unexpected event id %s", env.EventID)
	}
	if !env.OccurredAt.Equal(payload.OccurredAt) {
		t.Fatalf("unexpected occurred at %v", env.OccurredAt)
	}
}

func TestBuildEnvelopeFallsBackToAttributes(t *testing.T) {
	msg := buildMessage(outbox.PayloadEnvelope{Data: json.RawMessage(`{}`)}, map[string]string{
		"event_id":       "attr-id",
		"event_type":     "order.paid",
		"aggregate_type": "order",
		"aggregate_id":   "ord-2",
		"created_at":     "2026-03-02T10:00:00Z",
	})
	env, err := buildEnvelope(msg)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventID != "attr-id" {
		t.Fatalf("expected attribute event id, got %s", env.EventID)
	}
	if env.OccurredAt.Day() != 2 {
		t.Fatalf("expected created_at fallback, got %v", env.OccurredAt)
	}
}

func TestProcessAlreadyProcessed(t *testing.T) {
	guard := &stubGuard{claimed: false}
	handler := &stubHandler{}
	svc := newTestService(t, handler, guard)

	if got := svc.process(context.Background(), buildAnalyticsMessage(t)); got != metrics.OutcomeDuplicate {
		t.Fatalf("expected duplicate outcome, got %s", got)
	}
	if handler.called {
		t.Fatal("handler should not be invoked when already processed")
	}
	if len(guard.claims) != 1 {
		t.Fatalf("expected claim once, got %d", len(guard.claims))
	}
}

func TestProcessHandlesClaimedEvent(t *testing.T) {
	guard := &stubGuard{claimed: true}
	handler := &stubHandler{}
	svc := newTestService(t, handler, guard)

	if got := svc.process(context.Background(), buildAnalyticsMessage(t)); got != metrics.OutcomeSuccess {
		t.Fatalf("expected success outcome, got %s", got)
	}
	if !handler.called || handler.envelope.EventType != enums.EventOrderCreated {
		t.Fatalf("handler not invoked with envelope: %+v", handler.envelope)
	}
	if len(guard.released) != 0 {
		t.Fatal("claim should be kept on success")
	}
}

func TestProcessHandlerErrorRetries(t *testing.T) {
	guard := &stubGuard{claimed: true}
	handler := &stubHandler{err: errors.New("boom")}
	svc := newTestService(t, handler, guard)

	if got := svc.process(context.Background(), buildAnalyticsMessage(t)); got != metrics.OutcomeRetry {
		t.Fatalf("expected retry on handler error, got %s", got)
	}
	if len(guard.released) != 1 {
		t.Fatalf("expected idempotency release on failure")
	}
}

func TestProcessClaimErrorNacks(t *testing.T) {
	guard := &stubGuard{err: errors.New("redis down")}
	handler := &stubHandler{}
	svc := newTestService(t, handler, guard)

	if got := svc.process(context.Background(), buildAnalyticsMessage(t)); got != metrics.OutcomeRetry {
		t.Fatalf("expected retry when redis fails, got %s", got)
	}
	if handler.called {
		t.Fatal("handler should not run without a claim")
	}
}

func TestProcessInvalidEnvelope(t *testing.T) {
	guard := &stubGuard{claimed: true}
	handler := &stubHandler{}
	svc := newTestService(t, handler, guard)

	got := svc.process(context.Background(), &gcppubsub.Message{Data: []byte("invalid json")})
	if got != metrics.OutcomeInvalid {
		t.Fatalf("invalid envelope should be dropped, got %s", got)
	}
	if handler.called || len(guard.claims) != 0 {
		t.Fatal("nothing should run for an invalid envelope")
	}
}

func TestProcessUnsupportedEventSkipsClaim(t *testing.T) {
	guard := &stubGuard{claimed: true}
	handler := &stubHandler{}
	svc := newTestService(t, handler, guard)

	msg := buildMessage(outbox.PayloadEnvelope{EventID: uuid.New(), Data: json.RawMessage(`{}`)}, map[string]string{
		"event_type":     "notification.created",
		"aggregate_type": "notification",
		"aggregate_id":   uuid.NewString(),
	})
	if got := svc.process(context.Background(), msg); got != metrics.OutcomeSkipped {
		t.Fatalf("unsupported event should be skipped, got %s", got)
	}
	if len(guard.claims) != 0 || handler.called {
		t.Fatal("unsupported events are not claimed")
	}
}

func TestProcessRecordsOutcomes(t *testing.T) {
	recorder := &stubRecorder{}
	svc, err := newService(nil, &stubHandler{}, &stubGuard{claimed: true}, logger.Nop(), WithRecorder(recorder))
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	svc.process(context.Background(), buildAnalyticsMessage(t))
	svc.process(context.Background(), &gcppubsub.Message{Data: []byte("{"), Attributes: map[string]string{"event_type": "order.paid"}})

	want := []string{
		"analytics/order.created/" + metrics.OutcomeSuccess,
		"analytics/order.paid/" + metrics.OutcomeInvalid,
	}
	if len(recorder.seen) != len(want) {
		t.Fatalf("expected %d deliveries, got %v", len(want), recorder.seen)
	}
	for i := range want {
		if recorder.seen[i] != want[i] {
			t.Fatalf("delivery %d: expected %s, got %s", i, want[i], recorder.seen[i])
		}
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(nil, &stubHandler{}, &stubGuard{}, logger.Nop()); err == nil {
		t.Fatal("expected error without subscription")
	}
	if _, err := newService(nil, nil, &stubGuard{}, logger.Nop()); err == nil {
		t.Fatal("expected error without handler")
	}
	if _, err := newService(nil, &stubHandler{}, nil, logger.Nop()); err == nil {
		t.Fatal("expected error without guard")
	}
}

func buildAnalyticsMessage(t *testing.T) *gcppubsub.Message {
	t.Helper()
	payload := outbox.PayloadEnvelope{
		EventID:    uuid.New(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"order_id":"abc"}`),
	}
	return buildMessage(payload, map[string]string{
		"event_type":     "order.created",
		"aggregate_type": "order",
		"aggregate_id":   uuid.NewString(),
	})
}

func buildMessage(payload outbox.PayloadEnvelope, attrs map[string]string) *gcppubsub.Message {
	data, _ := json.Marshal(payload)
	return &gcppubsub.Message{
		ID:         "msg-1",
		Data:       data,
		Attributes: attrs,
	}
}

func newTestService(t *testing.T, handler Handler, guard *stubGuard) *Service {
	t.Helper()
	svc, err := newService(nil, handler, guard, logger.New(logger.Options{ServiceName: "analytics-test"}))
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

type stubHandler struct {
	called   bool
	envelope types.Envelope
	err      error
}

func (h *stubHandler) Supports(eventType enums.OutboxEventType) bool {
	return eventType == enums.EventOrderCreated || eventType == enums.EventOrderPaid
}

func (h *stubHandler) Handle(ctx context.Context, envelope types.Envelope) error {
	h.called = true
	h.envelope = envelope
	return h.err
}

type stubGuard struct {
	claimed  bool
	err      error
	claims   []string
	released []string
}

func (s *stubGuard) Claim(ctx context.Context, consumer, id string) (bool, error) {
	s.claims = append(s.claims, id)
	return s.claimed, s.err
}

func (s *stubGuard) Release(ctx context.Context, consumer, id string) error {
	s.released = append(s.released, id)
	return nil
}

type stubRecorder struct {
	seen []string
}

func (r *stubRecorder) Delivery(consumer, eventType, outcome string) {
	r.seen = append(r.seen, consumer+"/"+eventType+"/"+outcome)
}
