package models

import (
	"time"

	"github.com/google/uuid"
)

// Chat is a conversation between one customer and one farmer.
type Chat struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID    uuid.UUID  `gorm:"column:customer_id;type:uuid;not null"`
	FarmerID      uuid.UUID  `gorm:"column:farmer_id;type:uuid;not null"`
	LastMessageAt *time.Time `gorm:"column:last_message_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// HasParticipant reports whether userID belongs to the chat.
func (c Chat) HasParticipant(userID uuid.UUID) bool {
	return c.CustomerID == userID || c.FarmerID == userID
}

// Counterpart returns the other participant.
func (c Chat) Counterpart(userID uuid.UUID) uuid.UUID {
	if c.CustomerID == userID {
		return c.FarmerID
	}
	return c.CustomerID
}

// Message is a single chat entry.
type Message struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ChatID    uuid.UUID  `gorm:"column:chat_id;type:uuid;not null"`
	SenderID  uuid.UUID  `gorm:"column:sender_id;type:uuid;not null"`
	Body      string     `gorm:"column:body;not null"`
	ReadAt    *time.Time `gorm:"column:read_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
