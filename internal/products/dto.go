package products

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/geo"
	"github.com/farmersbracket/farmersbracket-backend/pkg/money"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	FarmerID    uuid.UUID       `json:"farmer_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	PriceCents  int64           `json:"price_cents"`
	Price       string          `json:"price"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category"`
	Images      []string        `json:"images"`
	IsOrganic   bool            `json:"is_organic"`
	IsFeatured  bool            `json:"is_featured"`
	Quantity    int             `json:"quantity"`
	InStock     bool            `json:"in_stock"`
	Farm        *FarmSummaryDTO `json:"farm,omitempty"`
	DistanceKm  *float64        `json:"distance_km,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// FarmSummaryDTO surfaces the farm fields shown next to a product.
type FarmSummaryDTO struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Location string     `json:"location,omitempty"`
	Point    *geo.Point `json:"point,omitempty"`
}

// NewProductDTO builds the client payload from a joined row.
func NewProductDTO(row ProductWithFarm) ProductDTO {
	dto := ProductDTO{
		ID:          row.ID,
		FarmerID:    row.FarmerID,
		Name:        row.Name,
		Description: row.Description,
		PriceCents:  row.PriceCents,
		Price:       money.Format(row.PriceCents),
		Unit:        row.Unit,
		Category:    row.Category,
		Images:      append([]string{}, row.Images...),
		IsOrganic:   row.IsOrganic,
		IsFeatured:  row.IsFeatured,
		Quantity:    row.Quantity,
		InStock:     row.Quantity > 0,
		CreatedAt:   row.CreatedAt,
	}
	if row.FarmID != nil && row.FarmName != nil {
		farm := &FarmSummaryDTO{ID: *row.FarmID, Name: *row.FarmName}
		if row.FarmLocation != nil {
			farm.Location = *row.FarmLocation
		}
		if point, ok := row.FarmPoint(); ok {
			farm.Point = &point
		}
		dto.Farm = farm
	}
	return dto
}

func (d ProductDTO) withDistance(km float64) ProductDTO {
	rounded := geo.RoundKm(km)
	d.DistanceKm = &rounded
	return d
}
