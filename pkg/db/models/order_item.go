package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem snapshots a product and its price at purchase time. Rows are
// immutable after insert.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	FarmerID       uuid.UUID `gorm:"column:farmer_id;type:uuid;not null"`
	ProductName    string    `gorm:"column:product_name;not null"`
	Category       string    `gorm:"column:category;not null"`
	Unit           string    `gorm:"column:unit;not null"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int64     `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
