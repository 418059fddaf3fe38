package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmersbracket/farmersbracket-backend/pkg/enums"
)

// User is a profile row. Farmers and customers share the table and differ by role.
type User struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email            string     `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash     string     `gorm:"column:password_hash;not null"`
	FullName         string     `gorm:"column:full_name;not null"`
	Phone            *string    `gorm:"column:phone"`
	Role             enums.Role `gorm:"column:role;type:user_role;not null"`
	EmailConfirmedAt *time.Time `gorm:"column:email_confirmed_at"`
	LastLoginAt      *time.Time `gorm:"column:last_login_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
