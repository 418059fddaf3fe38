package farmers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
)

// Repository reads farmer sales figures from order items.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a farmer stats repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SalesTotals counts the distinct orders that include the farmer's products
// and sums the farmer's line totals. Cancelled orders are excluded.
func (r *Repository) SalesTotals(ctx context.Context, farmerID uuid.UUID) (SalesTotals, error) {
	var totals SalesTotals
	err := r.db.WithContext(ctx).
		Table("order_items oi").
		Select("COUNT(DISTINCT oi.order_id) AS orders, COALESCE(SUM(oi.quantity), 0) AS units, COALESCE(SUM(oi.line_total_cents), 0) AS revenue_cents").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("oi.farmer_id = ? AND o.status <> ?", farmerID, enums.OrderStatusCancelled).
		Scan(&totals).
		Error
	if err != nil {
		return SalesTotals{}, db.MapError(err, "sales")
	}
	return totals, nil
}
