package chats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

// Repository persists chats and their messages.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a chat repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindOrCreate returns the chat between the pair, creating it on first use.
// A concurrent create that loses the unique race reloads the winner.
func (r *Repository) FindOrCreate(ctx context.Context, customerID, farmerID uuid.UUID, now time.Time) (*models.Chat, bool, error) {
	existing, err := r.findPair(ctx, customerID, farmerID)
	if err == nil {
		return existing, false, nil
	}
	if !db.IsNotFound(err) {
		return nil, false, db.MapError(err, "chat")
	}

	chat := &models.Chat{
		ID:            uuid.New(),
		CustomerID:    customerID,
		FarmerID:      farmerID,
		LastMessageAt: &now,
		CreatedAt:     now,
	}
	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			existing, findErr := r.findPair(ctx, customerID, farmerID)
			if findErr != nil {
				return nil, false, db.MapError(findErr, "chat")
			}
			return existing, false, nil
		}
		return nil, false, db.MapError(err, "chat")
	}
	return chat, true, nil
}

func (r *Repository) findPair(ctx context.Context, customerID, farmerID uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND farmer_id = ?", customerID, farmerID).
		First(&chat).
		Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// FindByID loads a chat.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).First(&chat, "id = ?", id).Error; err != nil {
		return nil, db.MapError(err, "chat")
	}
	return &chat, nil
}

// ListForUser returns chats the user takes part in, most recently active
// first, with one lookahead row.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Chat, error) {
	qb := r.db.WithContext(ctx).Where("customer_id = ? OR farmer_id = ?", userID, userID)
	if cursor != nil {
		qb = qb.Where("(last_message_at < ?) OR (last_message_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Chat
	err := qb.Order("last_message_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error
	if err != nil {
		return nil, db.MapError(err, "chat")
	}
	return rows, nil
}

// AddMessage inserts a message and bumps the chat's activity timestamp.
func (r *Repository) AddMessage(ctx context.Context, message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		return db.MapError(err, "message")
	}
	err := r.db.WithContext(ctx).
		Model(&models.Chat{}).
		Where("id = ?", message.ChatID).
		UpdateColumn("last_message_at", message.CreatedAt).
		Error
	return db.MapError(err, "chat")
}

// ListMessages returns a chat's messages newest first with one lookahead row.
func (r *Repository) ListMessages(ctx context.Context, chatID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Message, error) {
	qb := r.db.WithContext(ctx).Where("chat_id = ?", chatID)
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Message
	err := qb.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error
	if err != nil {
		return nil, db.MapError(err, "message")
	}
	return rows, nil
}

// MarkRead stamps read_at on messages the reader received.
func (r *Repository) MarkRead(ctx context.Context, chatID, readerID uuid.UUID, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND read_at IS NULL", chatID, readerID).
		UpdateColumn("read_at", at)
	if result.Error != nil {
		return 0, db.MapError(result.Error, "message")
	}
	return result.RowsAffected, nil
}

// UnreadCounts maps each chat to the number of messages the reader has not seen.
func (r *Repository) UnreadCounts(ctx context.Context, chatIDs []uuid.UUID, readerID uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(chatIDs))
	if len(chatIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ChatID uuid.UUID
		Unread int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("chat_id, COUNT(*) AS unread").
		Where("chat_id IN ? AND sender_id <> ? AND read_at IS NULL", chatIDs, readerID).
		Group("chat_id").
		Scan(&rows).
		Error
	if err != nil {
		return nil, db.MapError(err, "message")
	}
	for _, row := range rows {
		out[row.ChatID] = row.Unread
	}
	return out, nil
}
