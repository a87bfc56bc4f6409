package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/pkg/enums"
)

// User represents the canonical identity entity for customers, interpreters
// and back-office staff alike. Role-specific data lives on the profile rows.
type User struct {
	ID           uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string              `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string              `gorm:"column:password_hash;not null"`
	Name         string              `gorm:"column:name;not null"`
	Phone        *string             `gorm:"column:phone"`
	Role         enums.UserRole      `gorm:"column:role;type:text;not null"`
	ConsumerType *enums.ConsumerType `gorm:"column:consumer_type;type:text"`
	Town         *string             `gorm:"column:town"`
	IsActive     bool                `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time          `gorm:"column:last_login_at"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
