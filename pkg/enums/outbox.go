package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateBooking      OutboxAggregateType = "booking"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateBooking,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventBookingCreated        OutboxEventType = "booking_created"
	EventBookingUpdated        OutboxEventType = "booking_updated"
	EventBookingAccepted       OutboxEventType = "booking_accepted"
	EventBookingCanceled       OutboxEventType = "booking_canceled"
	EventBookingExpired        OutboxEventType = "booking_expired"
	EventBookingReopened       OutboxEventType = "booking_reopened"
	EventSessionStarted        OutboxEventType = "session_started"
	EventSessionEnded          OutboxEventType = "session_ended"
	EventSessionReminderDue    OutboxEventType = "session_reminder_due"
	EventInterpreterChanged    OutboxEventType = "interpreter_changed"
	EventScheduleChanged       OutboxEventType = "schedule_changed"
	EventLanguageChanged       OutboxEventType = "language_changed"
	EventCustomerNotCall       OutboxEventType = "customer_not_call"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventBookingCreated,
	EventBookingUpdated,
	EventBookingAccepted,
	EventBookingCanceled,
	EventBookingExpired,
	EventBookingReopened,
	EventSessionStarted,
	EventSessionEnded,
	EventSessionReminderDue,
	EventInterpreterChanged,
	EventScheduleChanged,
	EventLanguageChanged,
	EventCustomerNotCall,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
