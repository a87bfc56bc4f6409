package enums

import "fmt"

// BookingType is the medium the interpretation session is held over.
// "both" means the customer accepts either; phone wins when an SMS has to
// pick a single template.
type BookingType string

const (
	BookingTypePhone    BookingType = "phone"
	BookingTypePhysical BookingType = "physical"
	BookingTypeBoth     BookingType = "both"
)

var validBookingTypes = []BookingType{
	BookingTypePhone,
	BookingTypePhysical,
	BookingTypeBoth,
}

// String implements fmt.Stringer.
func (b BookingType) String() string {
	return string(b)
}

// IsValid reports whether the value matches a known BookingType.
func (b BookingType) IsValid() bool {
	for _, candidate := range validBookingTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// AllowsPhone reports whether a phone session satisfies the booking.
func (b BookingType) AllowsPhone() bool {
	return b == BookingTypePhone || b == BookingTypeBoth
}

// ParseBookingType converts raw input into a BookingType.
func ParseBookingType(value string) (BookingType, error) {
	for _, candidate := range validBookingTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking type %q", value)
}
