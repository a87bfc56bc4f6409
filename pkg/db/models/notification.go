package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/pkg/enums"
)

// Notification records one message to one recipient on one channel, from
// targeting through delivery.
type Notification struct {
	ID        uuid.UUID                 `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID *uuid.UUID                `gorm:"column:booking_id;type:uuid;index"`
	UserID    uuid.UUID                 `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.NotificationType    `gorm:"column:type;type:text;not null"`
	Channel   enums.NotificationChannel `gorm:"column:channel;type:text;not null"`
	Status    enums.DeliveryStatus      `gorm:"column:status;type:text;not null;default:'pending'"`
	Payload   json.RawMessage           `gorm:"column:payload;type:jsonb"`
	SendAfter *time.Time                `gorm:"column:send_after"`
	SentAt    *time.Time                `gorm:"column:sent_at"`
	LastError *string                   `gorm:"column:last_error"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
