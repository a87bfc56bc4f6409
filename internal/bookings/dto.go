package bookings

import (
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
)

// CreateBookingRequest is the payload for placing a booking. Immediate
// bookings ignore Due and Type: the session is forced to phone and scheduled
// a few minutes out.
type CreateBookingRequest struct {
	LanguageID    uuid.UUID                       `json:"language_id" validate:"required"`
	Type          enums.BookingType               `json:"type"`
	Due           *time.Time                      `json:"due,omitempty"`
	DurationMins  int                             `json:"duration_mins"`
	Immediate     bool                            `json:"immediate"`
	Gender        *enums.Gender                   `json:"gender,omitempty"`
	Certification *enums.CertificationRequirement `json:"certification,omitempty"`
	Town          *string                         `json:"town,omitempty"`
	Address       *string                         `json:"address,omitempty"`
	Instructions  *string                         `json:"instructions,omitempty"`
	Reference     *string                         `json:"reference,omitempty"`
	CustomerEmail *string                         `json:"customer_email,omitempty"`
	CustomerPhone *string                         `json:"customer_phone,omitempty"`
}

// UpdateBookingRequest is the edit payload consumed by the update
// orchestrator. Nil fields are left untouched; AdminComments and Reference
// are persisted unconditionally when present.
type UpdateBookingRequest struct {
	InterpreterID    *uuid.UUID           `json:"interpreter_id,omitempty"`
	InterpreterEmail *string              `json:"interpreter_email,omitempty"`
	Due              *time.Time           `json:"due,omitempty"`
	LanguageID       *uuid.UUID           `json:"language_id,omitempty"`
	Status           *enums.BookingStatus `json:"status,omitempty"`
	SessionTime      *string              `json:"session_time,omitempty"`
	AdminComments    *string              `json:"admin_comments,omitempty"`
	Reference        *string              `json:"reference,omitempty"`
}

// ActingUser identifies who triggered an operation. Passed explicitly into
// every service call; there is no ambient current-user state.
type ActingUser struct {
	ID   uuid.UUID
	Role enums.UserRole
}

// IsOperator reports whether the actor may act on any booking.
func (a ActingUser) IsOperator() bool {
	return a.Role.IsOperator()
}

// BookingDTO is the transport shape of a booking.
type BookingDTO struct {
	ID              uuid.UUID                       `json:"id"`
	CustomerID      uuid.UUID                       `json:"customer_id"`
	InterpreterID   *uuid.UUID                      `json:"interpreter_id,omitempty"`
	LanguageID      uuid.UUID                       `json:"language_id"`
	Status          enums.BookingStatus             `json:"status"`
	Type            enums.BookingType               `json:"type"`
	JobType         enums.JobType                   `json:"job_type"`
	Due             time.Time                       `json:"due"`
	DurationMins    int                             `json:"duration_mins"`
	Immediate       bool                            `json:"immediate"`
	Gender          *enums.Gender                   `json:"gender,omitempty"`
	Certification   *enums.CertificationRequirement `json:"certification,omitempty"`
	Town            *string                         `json:"town,omitempty"`
	Address         *string                         `json:"address,omitempty"`
	Instructions    *string                         `json:"instructions,omitempty"`
	Reference       *string                         `json:"reference,omitempty"`
	AdminComments   *string                         `json:"admin_comments,omitempty"`
	SessionTime     *string                         `json:"session_time,omitempty"`
	WillExpireAt    time.Time                       `json:"will_expire_at"`
	EndAt           *time.Time                      `json:"end_at,omitempty"`
	WithdrawAt      *time.Time                      `json:"withdraw_at,omitempty"`
	CustomerNotCall bool                            `json:"customer_not_call"`
	CreatedAt       time.Time                       `json:"created_at"`
	UpdatedAt       time.Time                       `json:"updated_at"`
}

// FromModel converts a booking row into its transport shape.
func FromModel(b *models.Booking) *BookingDTO {
	if b == nil {
		return nil
	}
	return &BookingDTO{
		ID:              b.ID,
		CustomerID:      b.CustomerID,
		InterpreterID:   b.InterpreterID,
		LanguageID:      b.LanguageID,
		Status:          b.Status,
		Type:            b.Type,
		JobType:         b.JobType,
		Due:             b.Due,
		DurationMins:    b.DurationMins,
		Immediate:       b.Immediate,
		Gender:          b.Gender,
		Certification:   b.Certification,
		Town:            b.Town,
		Address:         b.Address,
		Instructions:    b.Instructions,
		Reference:       b.Reference,
		AdminComments:   b.AdminComments,
		SessionTime:     b.SessionTime,
		WillExpireAt:    b.WillExpireAt,
		EndAt:           b.EndAt,
		WithdrawAt:      b.WithdrawAt,
		CustomerNotCall: b.CustomerNotCall,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

// ListParams configures the paginated booking lists.
type ListParams struct {
	Limit    int
	Cursor   string
	Statuses []enums.BookingStatus
}

// ListResult wraps returned bookings and the cursor for the next page.
type ListResult struct {
	Items  []BookingDTO `json:"items"`
	Cursor string       `json:"cursor"`
}

// UpdateResult reports what the update orchestrator did.
type UpdateResult struct {
	Booking           *BookingDTO `json:"booking"`
	StatusChanged     bool        `json:"status_changed"`
	AssignmentChanged bool        `json:"assignment_changed"`
	DueChanged        bool        `json:"due_changed"`
	LanguageChanged   bool        `json:"language_changed"`
	NotificationsSent bool        `json:"notifications_sent"`
}

// HistoryEntry is one row of the booking's status audit trail.
type HistoryEntry struct {
	FromStatus enums.BookingStatus `json:"from_status"`
	ToStatus   enums.BookingStatus `json:"to_status"`
	ActorID    *uuid.UUID          `json:"actor_id,omitempty"`
	ActorRole  *enums.UserRole     `json:"actor_role,omitempty"`
	Comment    *string             `json:"comment,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}
