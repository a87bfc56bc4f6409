package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/pkg/enums"
)

// StatusChange is the append-only audit trail of booking status moves.
type StatusChange struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID  uuid.UUID           `gorm:"column:booking_id;type:uuid;not null;index"`
	FromStatus enums.BookingStatus `gorm:"column:from_status;type:text;not null"`
	ToStatus   enums.BookingStatus `gorm:"column:to_status;type:text;not null"`
	ActorID    *uuid.UUID          `gorm:"column:actor_id;type:uuid"`
	ActorRole  *enums.UserRole     `gorm:"column:actor_role;type:text"`
	Comment    *string             `gorm:"column:comment"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
}
