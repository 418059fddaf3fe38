package reviews

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

// Repository persists product reviews.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a review repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a review. A second review by the same user for the same
// product is reported as ErrAlreadyReviewed.
func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	err := r.db.WithContext(ctx).Create(review).Error
	if db.IsUniqueViolation(err, "") {
		return ErrAlreadyReviewed
	}
	return db.MapError(err, "review")
}

// ListByProduct returns reviews newest first with one lookahead row.
func (r *Repository) ListByProduct(ctx context.Context, productID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Review, error) {
	qb := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Review
	err := qb.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error
	if err != nil {
		return nil, db.MapError(err, "review")
	}
	return rows, nil
}

type ratingTotals struct {
	Count int64
	Sum   int64
}

// Totals returns the number of reviews and the sum of their ratings.
func (r *Repository) Totals(ctx context.Context, productID uuid.UUID) (count, sum int64, err error) {
	var totals ratingTotals
	err = r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS count, COALESCE(SUM(rating), 0) AS sum").
		Where("product_id = ?", productID).
		Scan(&totals).
		Error
	if err != nil {
		return 0, 0, db.MapError(err, "review")
	}
	return totals.Count, totals.Sum, nil
}
