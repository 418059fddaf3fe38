// Package types holds the shapes shared by the analytics worker, router and
// BigQuery writer.
package types

import (
	"encoding/json"
	"time"

	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
)

// Envelope is one outbox event after it has been lifted off Pub/Sub. EventID
// is the idempotency key; Payload is the event body still encoded.
type Envelope struct {
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   string                    `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Payload       json.RawMessage           `json:"payload"`
}

// LogFields identifies the envelope in log entries.
func (e Envelope) LogFields() map[string]any {
	return map[string]any{
		"event_id":     e.EventID,
		"event_type":   e.EventType,
		"aggregate_id": e.AggregateID,
		"occurred_at":  e.OccurredAt.Format(time.RFC3339Nano),
	}
}
