package enums

import "fmt"

// JobType is the compensation class a booking is published under.
type JobType string

const (
	JobTypePaid   JobType = "paid"
	JobTypeRWS    JobType = "rws"
	JobTypeUnpaid JobType = "unpaid"
)

var validJobTypes = []JobType{
	JobTypePaid,
	JobTypeRWS,
	JobTypeUnpaid,
}

// IsValid reports whether the value matches a known JobType.
func (j JobType) IsValid() bool {
	for _, candidate := range validJobTypes {
		if candidate == j {
			return true
		}
	}
	return false
}

// ParseJobType converts raw input into a JobType.
func ParseJobType(value string) (JobType, error) {
	for _, candidate := range validJobTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job type %q", value)
}

// InterpreterType classifies an interpreter's engagement with the platform.
type InterpreterType string

const (
	InterpreterTypeProfessional InterpreterType = "professional"
	InterpreterTypeRWS          InterpreterType = "rwstranslator"
	InterpreterTypeVolunteer    InterpreterType = "volunteer"
)

var validInterpreterTypes = []InterpreterType{
	InterpreterTypeProfessional,
	InterpreterTypeRWS,
	InterpreterTypeVolunteer,
}

// IsValid reports whether the value matches a known InterpreterType.
func (i InterpreterType) IsValid() bool {
	for _, candidate := range validInterpreterTypes {
		if candidate == i {
			return true
		}
	}
	return false
}

// JobType returns the compensation class this interpreter type may take.
func (i InterpreterType) JobType() (JobType, bool) {
	switch i {
	case InterpreterTypeProfessional:
		return JobTypePaid, true
	case InterpreterTypeRWS:
		return JobTypeRWS, true
	case InterpreterTypeVolunteer:
		return JobTypeUnpaid, true
	}
	return "", false
}

// ParseInterpreterType converts raw input into an InterpreterType.
func ParseInterpreterType(value string) (InterpreterType, error) {
	for _, candidate := range validInterpreterTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid interpreter type %q", value)
}
