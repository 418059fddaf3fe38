package chats

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
)

// ChatDTO is a conversation as listed for one participant.
type ChatDTO struct {
	ID              uuid.UUID  `json:"id"`
	CustomerID      uuid.UUID  `json:"customer_id"`
	FarmerID        uuid.UUID  `json:"farmer_id"`
	CounterpartID   uuid.UUID  `json:"counterpart_id"`
	CounterpartName string     `json:"counterpart_name,omitempty"`
	Unread          int64      `json:"unread"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// MessageDTO is a single chat message.
type MessageDTO struct {
	ID        uuid.UUID  `json:"id"`
	ChatID    uuid.UUID  `json:"chat_id"`
	SenderID  uuid.UUID  `json:"sender_id"`
	Body      string     `json:"body"`
	Mine      bool       `json:"mine"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func newChatDTO(chat models.Chat, viewer uuid.UUID) ChatDTO {
	return ChatDTO{
		ID:            chat.ID,
		CustomerID:    chat.CustomerID,
		FarmerID:      chat.FarmerID,
		CounterpartID: chat.Counterpart(viewer),
		LastMessageAt: chat.LastMessageAt,
		CreatedAt:     chat.CreatedAt,
	}
}

func newMessageDTO(message models.Message, viewer uuid.UUID) MessageDTO {
	return MessageDTO{
		ID:        message.ID,
		ChatID:    message.ChatID,
		SenderID:  message.SenderID,
		Body:      message.Body,
		Mine:      message.SenderID == viewer,
		ReadAt:    message.ReadAt,
		CreatedAt: message.CreatedAt,
	}
}
