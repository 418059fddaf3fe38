package reports

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
)

// Repository batch-loads the rows a report is built from.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a report repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LoadOrders returns orders created inside r with their items. When farmerID
// is set only orders containing that farmer's lines are returned, and only
// those lines are attached.
func (r *Repository) LoadOrders(ctx context.Context, rng Range, farmerID *uuid.UUID) ([]models.Order, error) {
	qb := r.db.WithContext(ctx).Model(&models.Order{})
	if !rng.From.IsZero() {
		qb = qb.Where("created_at >= ?", rng.From)
	}
	if !rng.To.IsZero() {
		qb = qb.Where("created_at <= ?", rng.To)
	}
	if farmerID != nil {
		qb = qb.
			Where("id IN (?)", r.db.Model(&models.OrderItem{}).Select("order_id").Where("farmer_id = ?", *farmerID)).
			Preload("Items", "farmer_id = ?", *farmerID)
	} else {
		qb = qb.Preload("Items")
	}

	var rows []models.Order
	if err := qb.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, db.MapError(err, "order")
	}
	return rows, nil
}

// LoadProducts returns the catalog, optionally limited to one farmer.
func (r *Repository) LoadProducts(ctx context.Context, farmerID *uuid.UUID) ([]models.Product, error) {
	qb := r.db.WithContext(ctx).Model(&models.Product{})
	if farmerID != nil {
		qb = qb.Where("farmer_id = ?", *farmerID)
	}
	var rows []models.Product
	if err := qb.Order("name ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, db.MapError(err, "product")
	}
	return rows, nil
}

type farmerRow struct {
	ID   uuid.UUID
	Name string
	Farm *string
}

// LoadFarmers returns farmer profiles with the name of their first farm.
func (r *Repository) LoadFarmers(ctx context.Context, farmerID *uuid.UUID) ([]FarmerRecord, error) {
	qb := r.db.WithContext(ctx).
		Table("users u").
		Select("u.id AS id, u.full_name AS name, MIN(f.name) AS farm").
		Joins("LEFT JOIN farms f ON f.farmer_id = u.id").
		Where("u.role = ?", enums.RoleFarmer)
	if farmerID != nil {
		qb = qb.Where("u.id = ?", *farmerID)
	}
	var rows []farmerRow
	if err := qb.Group("u.id, u.full_name").Order("u.full_name ASC").Scan(&rows).Error; err != nil {
		return nil, db.MapError(err, "farmer")
	}
	out := make([]FarmerRecord, 0, len(rows))
	for _, row := range rows {
		record := FarmerRecord{ID: row.ID, Name: row.Name}
		if row.Farm != nil {
			record.Farm = *row.Farm
		}
		out = append(out, record)
	}
	return out, nil
}
