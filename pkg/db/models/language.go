package models

import (
	"time"

	"github.com/google/uuid"
)

// Language is a spoken language bookings can be placed for.
type Language struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"type:text;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
