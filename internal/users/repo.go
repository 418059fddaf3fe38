package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new user and returns the persisted model. A duplicate
// email surfaces as CONFLICT.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, db.MapError(err, "user")
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email, ignoring case.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := r.db.WithContext(ctx).Where("lower(email) = ?", normalized).First(&user).Error; err != nil {
		return nil, db.MapError(err, "user")
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, db.MapError(err, "user")
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{"last_login_at": at})
}

// UpdatePassword replaces the stored password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, at time.Time) error {
	return r.updateColumns(ctx, id, map[string]any{"password_hash": hash, "updated_at": at})
}

// MarkEmailConfirmed stamps email_confirmed_at unless it is already set.
func (r *Repository) MarkEmailConfirmed(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND email_confirmed_at IS NULL", id).
		UpdateColumns(map[string]any{"email_confirmed_at": at, "updated_at": at}).
		Error
	return db.MapError(err, "user")
}

// Names maps user ids to full names for display.
func (r *Repository) Names(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.User
	if err := r.db.WithContext(ctx).Select("id", "full_name").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, db.MapError(err, "user")
	}
	for _, row := range rows {
		out[row.ID] = row.FullName
	}
	return out, nil
}

func (r *Repository) updateColumns(ctx context.Context, id uuid.UUID, values map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumns(values)
	if result.Error != nil {
		return db.MapError(result.Error, "user")
	}
	if result.RowsAffected == 0 {
		return db.MapError(gorm.ErrRecordNotFound, "user")
	}
	return nil
}
