package models

import (
	"time"

	"github.com/google/uuid"
)

// BlacklistEntry excludes one interpreter from one customer's bookings.
type BlacklistEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID    uuid.UUID `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:uq_blacklist_pair"`
	InterpreterID uuid.UUID `gorm:"column:interpreter_id;type:uuid;not null;uniqueIndex:uq_blacklist_pair"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
