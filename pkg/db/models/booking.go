package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/pkg/enums"
)

// Booking is an interpretation session request placed by a customer.
// InterpreterID mirrors the active Assignment row so eligibility and list
// queries do not need a join; the assignment table keeps the history.
type Booking struct {
	ID              uuid.UUID                       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID      uuid.UUID                       `gorm:"column:customer_id;type:uuid;not null;index"`
	InterpreterID   *uuid.UUID                      `gorm:"column:interpreter_id;type:uuid;index"`
	LanguageID      uuid.UUID                       `gorm:"column:language_id;type:uuid;not null"`
	Status          enums.BookingStatus             `gorm:"column:status;type:text;not null;default:'pending';index"`
	Type            enums.BookingType               `gorm:"column:type;type:text;not null"`
	JobType         enums.JobType                   `gorm:"column:job_type;type:text;not null"`
	Due             time.Time                       `gorm:"column:due;not null;index"`
	DurationMins    int                             `gorm:"column:duration_mins;not null"`
	Immediate       bool                            `gorm:"column:immediate;not null;default:false"`
	Gender          *enums.Gender                   `gorm:"column:gender;type:text"`
	Certification   *enums.CertificationRequirement `gorm:"column:certification;type:text"`
	Town            *string                         `gorm:"column:town"`
	Address         *string                         `gorm:"column:address"`
	Instructions    *string                         `gorm:"column:instructions"`
	Reference       *string                         `gorm:"column:reference"`
	AdminComments   *string                         `gorm:"column:admin_comments"`
	CustomerEmail   *string                         `gorm:"column:customer_email"`
	CustomerPhone   *string                         `gorm:"column:customer_phone"`
	SessionTime     *string                         `gorm:"column:session_time"`
	WillExpireAt    time.Time                       `gorm:"column:will_expire_at;not null"`
	EndAt           *time.Time                      `gorm:"column:end_at"`
	WithdrawAt      *time.Time                      `gorm:"column:withdraw_at"`
	CustomerNotCall bool                            `gorm:"column:customer_not_call;not null;default:false"`
	FanoutSent      bool                            `gorm:"column:fanout_sent;not null;default:false"`
	ReminderSent    bool                            `gorm:"column:reminder_sent;not null;default:false"`
	Customer        *User                           `gorm:"foreignKey:CustomerID"`
	Interpreter     *User                           `gorm:"foreignKey:InterpreterID"`
	Language        *Language                       `gorm:"foreignKey:LanguageID"`
	Assignments     []Assignment                    `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time                       `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt       time.Time                       `gorm:"column:updated_at;autoUpdateTime"`
}
