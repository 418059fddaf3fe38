package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
)

// OutboxRecord is what an outbox row carries to subscribers. A DLQ row keeps
// a copy of it.
type OutboxRecord struct {
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
}

// OutboxEvent is written in the same transaction as the change it describes
// and drained by the publisher.
type OutboxEvent struct {
	ID           uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OutboxRecord `gorm:"embedded"`
	CreatedAt    time.Time    `gorm:"column:created_at;autoCreateTime"`
	PublishedAt  *time.Time   `gorm:"column:published_at"`
	AttemptCount int          `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string      `gorm:"column:last_error"`
}
