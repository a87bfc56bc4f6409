package enums

import "fmt"

// Gender is used both for interpreter profiles and as a booking preference.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

var validGenders = []Gender{
	GenderMale,
	GenderFemale,
}

// IsValid reports whether the value matches a known Gender.
func (g Gender) IsValid() bool {
	for _, candidate := range validGenders {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGender converts raw input into a Gender.
func ParseGender(value string) (Gender, error) {
	for _, candidate := range validGenders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gender %q", value)
}
