package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

// Repository is the notifications table, always scoped to one owner except
// for retention.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type listNotificationsParams struct {
	UserID     uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &gormRepository{db: tx}
}

func ownedBy(userID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

func unread(db *gorm.DB) *gorm.DB {
	return db.Where("read_at IS NULL")
}

// olderThan continues a newest-first listing after cursor.
func olderThan(cursor *pagination.Cursor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if cursor == nil {
			return db
		}
		return db.Where("created_at < ? OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
}

func (r *gormRepository) table(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{})
}

func (r *gormRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

// List fetches one row past the limit so the caller can build the next cursor.
func (r *gormRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
	q := r.table(ctx).Scopes(ownedBy(params.UserID), olderThan(params.Cursor))
	if params.UnreadOnly {
		q = q.Scopes(unread)
	}
	var rows []models.Notification
	if err := q.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkRead reports whether the notification exists for userID. Marking an
// already read notification is not an error and keeps the first read_at.
func (r *gormRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error) {
	res := r.table(ctx).Scopes(ownedBy(userID), unread).
		Where("id = ?", notificationID).
		UpdateColumn("read_at", now)
	if res.Error != nil || res.RowsAffected > 0 {
		return res.RowsAffected > 0, res.Error
	}

	var count int64
	err := r.table(ctx).Scopes(ownedBy(userID)).Where("id = ?", notificationID).Count(&count).Error
	return count > 0, err
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	res := r.table(ctx).Scopes(ownedBy(userID), unread).UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *gormRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.table(ctx).Scopes(ownedBy(userID), unread).Count(&count).Error
	return count, err
}

// DeleteReadBefore is the retention sweep. It spans every user.
func (r *gormRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
