package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment links an interpreter to a booking. A booking has at most one
// row with canceled_at IS NULL AND completed_at IS NULL; older rows record
// interpreters that were swapped out, withdrew, or finished the session.
type Assignment struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID     uuid.UUID  `gorm:"column:booking_id;type:uuid;not null;index"`
	InterpreterID uuid.UUID  `gorm:"column:interpreter_id;type:uuid;not null;index"`
	CanceledAt    *time.Time `gorm:"column:canceled_at"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`
	CompletedBy   *uuid.UUID `gorm:"column:completed_by;type:uuid"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}
