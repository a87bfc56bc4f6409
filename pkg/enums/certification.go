package enums

import "fmt"

// CertificationRequirement is what the customer asked for on a booking.
// Empty means no preference was stated.
type CertificationRequirement string

const (
	CertificationRequired       CertificationRequirement = "yes"
	CertificationBoth           CertificationRequirement = "both"
	CertificationLawRequired    CertificationRequirement = "law"
	CertificationNLaw           CertificationRequirement = "n_law"
	CertificationHealthRequired CertificationRequirement = "health"
	CertificationNHealth        CertificationRequirement = "n_health"
	CertificationNotRequired    CertificationRequirement = "normal"
)

var validCertificationRequirements = []CertificationRequirement{
	CertificationRequired,
	CertificationBoth,
	CertificationLawRequired,
	CertificationNLaw,
	CertificationHealthRequired,
	CertificationNHealth,
	CertificationNotRequired,
}

// IsValid reports whether the value matches a known CertificationRequirement.
func (c CertificationRequirement) IsValid() bool {
	for _, candidate := range validCertificationRequirements {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCertificationRequirement converts raw input into a CertificationRequirement.
func ParseCertificationRequirement(value string) (CertificationRequirement, error) {
	for _, candidate := range validCertificationRequirements {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid certification requirement %q", value)
}

// InterpreterLevel is the credential tier held by an interpreter.
type InterpreterLevel string

const (
	LevelCertified           InterpreterLevel = "Certified"
	LevelCertifiedLaw        InterpreterLevel = "Certified with specialisation in law"
	LevelCertifiedHealthCare InterpreterLevel = "Certified with specialisation in health care"
	LevelLayman              InterpreterLevel = "Layman"
	LevelReadCourses         InterpreterLevel = "Read Translation courses"
)

var validInterpreterLevels = []InterpreterLevel{
	LevelCertified,
	LevelCertifiedLaw,
	LevelCertifiedHealthCare,
	LevelLayman,
	LevelReadCourses,
}

// IsValid reports whether the value matches a known InterpreterLevel.
func (l InterpreterLevel) IsValid() bool {
	for _, candidate := range validInterpreterLevels {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseInterpreterLevel converts raw input into an InterpreterLevel.
func ParseInterpreterLevel(value string) (InterpreterLevel, error) {
	for _, candidate := range validInterpreterLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid interpreter level %q", value)
}
