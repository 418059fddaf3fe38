package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/farmersbracket/farmersbracket-backend/pkg/db/types"
)

// Product is a listing sold by a farmer. PriceCents is the live price; orders
// snapshot it into OrderItem.UnitPriceCents.
type Product struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FarmerID    uuid.UUID          `gorm:"column:farmer_id;type:uuid;not null"`
	FarmID      *uuid.UUID         `gorm:"column:farm_id;type:uuid"`
	Name        string             `gorm:"column:name;not null"`
	Description *string            `gorm:"column:description"`
	PriceCents  int64              `gorm:"column:price_cents;not null"`
	Unit        string             `gorm:"column:unit;not null"`
	Category    string             `gorm:"column:category;not null"`
	Images      dbtypes.StringList `gorm:"column:images;type:jsonb;not null"`
	IsOrganic   bool               `gorm:"column:is_organic;not null;default:false"`
	IsFeatured  bool               `gorm:"column:is_featured;not null;default:false"`
	Quantity    int                `gorm:"column:quantity;not null;default:0"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
