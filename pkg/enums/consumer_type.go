package enums

import "fmt"

// ConsumerType is the billing classification of a customer organisation.
type ConsumerType string

const (
	ConsumerTypeRWS  ConsumerType = "rwsconsumer"
	ConsumerTypeNGO  ConsumerType = "ngo"
	ConsumerTypePaid ConsumerType = "paid"
)

var validConsumerTypes = []ConsumerType{
	ConsumerTypeRWS,
	ConsumerTypeNGO,
	ConsumerTypePaid,
}

// IsValid reports whether the value matches a known ConsumerType.
func (c ConsumerType) IsValid() bool {
	for _, candidate := range validConsumerTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// JobType returns the compensation class bookings from this consumer carry.
func (c ConsumerType) JobType() JobType {
	switch c {
	case ConsumerTypeRWS:
		return JobTypeRWS
	case ConsumerTypeNGO:
		return JobTypeUnpaid
	default:
		return JobTypePaid
	}
}

// ParseConsumerType converts raw input into a ConsumerType.
func ParseConsumerType(value string) (ConsumerType, error) {
	for _, candidate := range validConsumerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid consumer type %q", value)
}
