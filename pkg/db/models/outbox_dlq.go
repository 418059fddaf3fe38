package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
)

// OutboxDLQ is an event the publisher gave up on. EventID points back at the
// outbox row.
type OutboxDLQ struct {
	ID           uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EventID      uuid.UUID                  `gorm:"column:event_id;type:uuid;not null"`
	OutboxRecord `gorm:"embedded"`
	ErrorReason  enums.OutboxDLQErrorReason `gorm:"column:error_reason;not null"`
	ErrorMessage *string                    `gorm:"column:error_message"`
	AttemptCount int                        `gorm:"column:attempt_count;not null;default:0"`
	FailedAt     time.Time                  `gorm:"column:failed_at;autoCreateTime"`
	CreatedAt    time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

func (OutboxDLQ) TableName() string { return "outbox_dlq" }
