package farms

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/geo"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

// Repository persists farms.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a farm repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a farm.
func (r *Repository) Create(ctx context.Context, farm *models.Farm) error {
	if farm.ID == uuid.Nil {
		farm.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(farm).Error; err != nil {
		return db.MapError(err, "farm")
	}
	return nil
}

// FindByID loads a farm by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Farm, error) {
	var farm models.Farm
	if err := r.db.WithContext(ctx).First(&farm, "id = ?", id).Error; err != nil {
		return nil, db.MapError(err, "farm")
	}
	return &farm, nil
}

// List returns farms newest first using keyset pagination. One extra row is
// fetched so callers can build the next cursor.
func (r *Repository) List(ctx context.Context, farmerID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Farm, error) {
	qb := r.db.WithContext(ctx).Model(&models.Farm{})
	if farmerID != nil {
		qb = qb.Where("farmer_id = ?", *farmerID)
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Farm
	err := qb.Order("created_at DESC").Order("id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error
	if err != nil {
		return nil, db.MapError(err, "farm")
	}
	return rows, nil
}

// ListInBox returns farms with coordinates inside the box.
func (r *Repository) ListInBox(ctx context.Context, box geo.Box) ([]models.Farm, error) {
	var rows []models.Farm
	err := r.db.WithContext(ctx).
		Where("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat).
		Where("longitude BETWEEN ? AND ?", box.MinLng, box.MaxLng).
		Find(&rows).
		Error
	if err != nil {
		return nil, db.MapError(err, "farm")
	}
	return rows, nil
}

// NamesByFarmers maps each farmer to the name of their oldest farm.
func (r *Repository) NamesByFarmers(ctx context.Context, farmerIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(farmerIDs))
	if len(farmerIDs) == 0 {
		return out, nil
	}
	var rows []models.Farm
	err := r.db.WithContext(ctx).
		Select("farmer_id", "name").
		Where("farmer_id IN ?", farmerIDs).
		Order("created_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, db.MapError(err, "farm")
	}
	for _, row := range rows {
		if _, seen := out[row.FarmerID]; !seen {
			out[row.FarmerID] = row.Name
		}
	}
	return out, nil
}
