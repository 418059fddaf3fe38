package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db"
	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/geo"
	"github.com/farmersbracket/farmersbracket-backend/pkg/pagination"
)

const distanceCandidates = 500

const productWithFarmColumns = "p.*, f.name AS farm_name, f.location AS farm_location, f.latitude AS farm_latitude, f.longitude AS farm_longitude"

// ProductWithFarm is a product row joined with its farm's display and location columns.
type ProductWithFarm struct {
	models.Product
	FarmName      *string  `gorm:"column:farm_name"`
	FarmLocation  *string  `gorm:"column:farm_location"`
	FarmLatitude  *float64 `gorm:"column:farm_latitude"`
	FarmLongitude *float64 `gorm:"column:farm_longitude"`
}

// FarmNameOrEmpty returns the joined farm name, if any.
func (p ProductWithFarm) FarmNameOrEmpty() string {
	if p.FarmName == nil {
		return ""
	}
	return *p.FarmName
}

// FarmPoint returns the farm coordinates when both are present.
func (p ProductWithFarm) FarmPoint() (geo.Point, bool) {
	if p.FarmLatitude == nil || p.FarmLongitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *p.FarmLatitude, Lng: *p.FarmLongitude}, true
}

// BrowseQuery is the repository-level browse filter.
type BrowseQuery struct {
	Category string
	Organic  *bool
	Featured *bool
	Search   string
	FarmID   *uuid.UUID
	FarmerID *uuid.UUID
	InStock  bool
	Box      *geo.Box
	Cursor   *pagination.Cursor
	Limit    int
	// DistanceSort drops keyset paging and loads a wider candidate set that
	// the caller orders by distance.
	DistanceSort bool
}

// Repository wires together product persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, db.MapError(err, "product")
	}
	return &product, nil
}

// FindWithFarm loads a product and its farm columns.
func (r *Repository) FindWithFarm(ctx context.Context, id uuid.UUID) (*ProductWithFarm, error) {
	var rows []ProductWithFarm
	err := r.base(ctx).
		Where("p.id = ?", id).
		Limit(1).
		Scan(&rows).
		Error
	if err != nil {
		return nil, db.MapError(err, "product")
	}
	if len(rows) == 0 {
		return nil, db.MapError(gorm.ErrRecordNotFound, "product")
	}
	return &rows[0], nil
}

// FindByIDs loads the listed products keyed by id. Missing ids are absent from the map.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, db.MapError(err, "product")
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

// Browse runs a filtered keyset query ordered newest first. It fetches one row
// beyond Limit so callers can detect another page.
func (r *Repository) Browse(ctx context.Context, query BrowseQuery) ([]ProductWithFarm, error) {
	qb := r.base(ctx)

	if category := strings.TrimSpace(query.Category); category != "" {
		qb = qb.Where("LOWER(p.category) = ?", strings.ToLower(category))
	}
	if query.Organic != nil {
		qb = qb.Where("p.is_organic = ?", *query.Organic)
	}
	if query.Featured != nil {
		qb = qb.Where("p.is_featured = ?", *query.Featured)
	}
	if search := strings.TrimSpace(query.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		qb = qb.Where("(LOWER(p.name) LIKE ? OR LOWER(COALESCE(p.description, '')) LIKE ? OR LOWER(p.category) LIKE ?)", pattern, pattern, pattern)
	}
	if query.FarmID != nil {
		qb = qb.Where("p.farm_id = ?", *query.FarmID)
	}
	if query.FarmerID != nil {
		qb = qb.Where("p.farmer_id = ?", *query.FarmerID)
	}
	if query.InStock {
		qb = qb.Where("p.quantity > 0")
	}
	if query.Box != nil {
		qb = qb.Where("f.latitude BETWEEN ? AND ?", query.Box.MinLat, query.Box.MaxLat).
			Where("f.longitude BETWEEN ? AND ?", query.Box.MinLng, query.Box.MaxLng)
	}
	if query.Cursor != nil && !query.DistanceSort {
		qb = qb.Where("(p.created_at < ?) OR (p.created_at = ? AND p.id < ?)", query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID)
	}

	limit := pagination.LimitWithBuffer(query.Limit)
	if query.DistanceSort {
		limit = distanceCandidates
	}
	qb = qb.Order("p.created_at DESC").Order("p.id DESC").Limit(limit)

	var rows []ProductWithFarm
	if err := qb.Scan(&rows).Error; err != nil {
		return nil, db.MapError(err, "product")
	}
	return rows, nil
}

// ListFeatured returns the newest featured products that are in stock.
func (r *Repository) ListFeatured(ctx context.Context, limit int) ([]ProductWithFarm, error) {
	var rows []ProductWithFarm
	err := r.base(ctx).
		Where("p.is_featured = ?", true).
		Where("p.quantity > 0").
		Order("p.created_at DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Scan(&rows).
		Error
	if err != nil {
		return nil, db.MapError(err, "product")
	}
	return rows, nil
}

// ListAll returns every product. Reports use it for category and farmer rollups.
func (r *Repository) ListAll(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, db.MapError(err, "product")
	}
	return rows, nil
}

// CountByFarmer counts the listings owned by a farmer.
func (r *Repository) CountByFarmer(ctx context.Context, farmerID uuid.UUID) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("farmer_id = ?", farmerID).Count(&count).Error; err != nil {
		return 0, db.MapError(err, "product")
	}
	return int(count), nil
}

func (r *Repository) base(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("products p").
		Select(productWithFarmColumns).
		Joins("LEFT JOIN farms f ON f.id = p.farm_id")
}
