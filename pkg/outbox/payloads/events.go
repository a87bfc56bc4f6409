package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/pkg/enums"
)

// BookingCreatedEvent signals a new booking that needs interpreter fan-out.
type BookingCreatedEvent struct {
	BookingID  uuid.UUID         `json:"bookingId"`
	CustomerID uuid.UUID         `json:"customerId"`
	LanguageID uuid.UUID         `json:"languageId"`
	JobType    enums.JobType     `json:"jobType"`
	Type       enums.BookingType `json:"type"`
	Due        time.Time         `json:"due"`
	Immediate  bool              `json:"immediate"`
}

// BookingUpdatedEvent is the generic "status changed" notice sent to the
// customer when a transition carries no richer event of its own.
type BookingUpdatedEvent struct {
	BookingID  uuid.UUID           `json:"bookingId"`
	CustomerID uuid.UUID           `json:"customerId"`
	OldStatus  enums.BookingStatus `json:"oldStatus"`
	NewStatus  enums.BookingStatus `json:"newStatus"`
}

// SessionStartedEvent is emitted when the interpreter opens the session.
type SessionStartedEvent struct {
	BookingID     uuid.UUID `json:"bookingId"`
	CustomerID    uuid.UUID `json:"customerId"`
	InterpreterID uuid.UUID `json:"interpreterId"`
	StartedAt     time.Time `json:"startedAt"`
}

// BookingAcceptedEvent is emitted when an interpreter wins a booking.
type BookingAcceptedEvent struct {
	BookingID     uuid.UUID `json:"bookingId"`
	CustomerID    uuid.UUID `json:"customerId"`
	InterpreterID uuid.UUID `json:"interpreterId"`
	Due           time.Time `json:"due"`
}

// BookingCanceledEvent covers customer withdrawals and interpreter cancels.
// ReturnedToPool is set when the booking went back to pending for a new
// interpreter instead of terminating.
type BookingCanceledEvent struct {
	BookingID      uuid.UUID           `json:"bookingId"`
	CustomerID     uuid.UUID           `json:"customerId"`
	InterpreterID  *uuid.UUID          `json:"interpreterId,omitempty"`
	Status         enums.BookingStatus `json:"status"`
	CanceledBy     enums.UserRole      `json:"canceledBy"`
	ReturnedToPool bool                `json:"returnedToPool"`
	CanceledAt     time.Time           `json:"canceledAt"`
}

// BookingExpiredEvent reports a pending booking that ran out of acceptance time.
type BookingExpiredEvent struct {
	BookingID  uuid.UUID `json:"bookingId"`
	CustomerID uuid.UUID `json:"customerId"`
	ExpiredAt  time.Time `json:"expiredAt"`
}

// BookingReopenedEvent signals an expired or canceled booking put back on the market.
type BookingReopenedEvent struct {
	BookingID         uuid.UUID  `json:"bookingId"`
	OriginalBookingID *uuid.UUID `json:"originalBookingId,omitempty"`
	CustomerID        uuid.UUID  `json:"customerId"`
	Due               time.Time  `json:"due"`
}

// SessionEndedEvent carries the billing inputs captured when a session completes.
type SessionEndedEvent struct {
	BookingID     uuid.UUID `json:"bookingId"`
	CustomerID    uuid.UUID `json:"customerId"`
	InterpreterID uuid.UUID `json:"interpreterId"`
	SessionTime   string    `json:"sessionTime"`
	EndedAt       time.Time `json:"endedAt"`
}

// SessionReminderDueEvent triggers the pre-session reminders for both parties.
type SessionReminderDueEvent struct {
	BookingID     uuid.UUID         `json:"bookingId"`
	CustomerID    uuid.UUID         `json:"customerId"`
	InterpreterID uuid.UUID         `json:"interpreterId"`
	Due           time.Time         `json:"due"`
	Type          enums.BookingType `json:"type"`
	DurationMins  int               `json:"durationMins"`
}

// InterpreterChangedEvent is emitted when an update swaps the interpreter.
type InterpreterChangedEvent struct {
	BookingID        uuid.UUID  `json:"bookingId"`
	CustomerID       uuid.UUID  `json:"customerId"`
	NewInterpreterID *uuid.UUID `json:"newInterpreterId,omitempty"`
	OldInterpreterID *uuid.UUID `json:"oldInterpreterId,omitempty"`
}

// ScheduleChangedEvent is emitted when an update moves the due time.
type ScheduleChangedEvent struct {
	BookingID     uuid.UUID  `json:"bookingId"`
	CustomerID    uuid.UUID  `json:"customerId"`
	InterpreterID *uuid.UUID `json:"interpreterId,omitempty"`
	OldDue        time.Time  `json:"oldDue"`
	NewDue        time.Time  `json:"newDue"`
}

// LanguageChangedEvent is emitted when an update changes the booked language.
type LanguageChangedEvent struct {
	BookingID     uuid.UUID  `json:"bookingId"`
	CustomerID    uuid.UUID  `json:"customerId"`
	InterpreterID *uuid.UUID `json:"interpreterId,omitempty"`
	OldLanguageID uuid.UUID  `json:"oldLanguageId"`
	NewLanguageID uuid.UUID  `json:"newLanguageId"`
}

// CustomerNotCallEvent records a no-show customer on a completed session.
type CustomerNotCallEvent struct {
	BookingID     uuid.UUID `json:"bookingId"`
	CustomerID    uuid.UUID `json:"customerId"`
	InterpreterID uuid.UUID `json:"interpreterId"`
	MarkedAt      time.Time `json:"markedAt"`
}
