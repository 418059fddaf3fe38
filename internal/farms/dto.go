package farms

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/db/models"
	"github.com/farmersbracket/farmersbracket-backend/pkg/geo"
)

// FarmDTO is the farm payload returned to clients.
type FarmDTO struct {
	ID          uuid.UUID  `json:"id"`
	FarmerID    uuid.UUID  `json:"farmer_id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Location    string     `json:"location"`
	Point       *geo.Point `json:"point,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	DistanceKm  *float64   `json:"distance_km,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewFarmDTO maps a farm row to its payload.
func NewFarmDTO(farm models.Farm) FarmDTO {
	dto := FarmDTO{
		ID:          farm.ID,
		FarmerID:    farm.FarmerID,
		Name:        farm.Name,
		Description: farm.Description,
		Location:    farm.Location,
		ImageURL:    farm.ImageURL,
		CreatedAt:   farm.CreatedAt,
	}
	if point, ok := pointOf(farm); ok {
		dto.Point = &point
	}
	return dto
}

func pointOf(farm models.Farm) (geo.Point, bool) {
	if farm.Latitude == nil || farm.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *farm.Latitude, Lng: *farm.Longitude}, true
}
