package enums

import "fmt"

// BookingStatus captures the lifecycle of an interpretation booking.
type BookingStatus string

const (
	BookingStatusPending          BookingStatus = "pending"
	BookingStatusAssigned         BookingStatus = "assigned"
	BookingStatusStarted          BookingStatus = "started"
	BookingStatusCompleted        BookingStatus = "completed"
	BookingStatusWithdrawBefore24 BookingStatus = "withdrawbefore24"
	BookingStatusWithdrawAfter24  BookingStatus = "withdrawafter24"
	BookingStatusTimedout         BookingStatus = "timedout"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusAssigned,
	BookingStatusStarted,
	BookingStatusCompleted,
	BookingStatusWithdrawBefore24,
	BookingStatusWithdrawAfter24,
	BookingStatusTimedout,
}

// String implements fmt.Stringer.
func (b BookingStatus) String() string {
	return string(b)
}

// IsValid reports whether the value matches a known BookingStatus.
func (b BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status transition is expected.
func (b BookingStatus) IsTerminal() bool {
	switch b {
	case BookingStatusCompleted, BookingStatusWithdrawBefore24, BookingStatusWithdrawAfter24:
		return true
	}
	return false
}

// ParseBookingStatus converts raw input into a BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}
