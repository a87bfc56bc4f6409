package matching

import (
	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/internal/users"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
)

// Requirements is the subset of a booking that decides interpreter eligibility.
type Requirements struct {
	JobType       enums.JobType
	LanguageID    uuid.UUID
	Type          enums.BookingType
	Gender        *enums.Gender
	Certification *enums.CertificationRequirement
	Town          *string
	InterpreterID *uuid.UUID
}

// RequirementsFromBooking extracts the matching criteria from a booking row.
func RequirementsFromBooking(b *models.Booking) Requirements {
	return Requirements{
		JobType:       b.JobType,
		LanguageID:    b.LanguageID,
		Type:          b.Type,
		Gender:        b.Gender,
		Certification: b.Certification,
		Town:          b.Town,
		InterpreterID: b.InterpreterID,
	}
}

// AllowedLevels resolves a certification requirement into the credential tiers
// that satisfy it. A nil requirement accepts every tier.
func AllowedLevels(req *enums.CertificationRequirement) []enums.InterpreterLevel {
	if req == nil {
		return []enums.InterpreterLevel{
			enums.LevelCertified,
			enums.LevelCertifiedLaw,
			enums.LevelCertifiedHealthCare,
			enums.LevelLayman,
			enums.LevelReadCourses,
		}
	}

	switch *req {
	case enums.CertificationRequired, enums.CertificationBoth:
		return []enums.InterpreterLevel{
			enums.LevelCertified,
			enums.LevelCertifiedLaw,
			enums.LevelCertifiedHealthCare,
		}
	case enums.CertificationLawRequired, enums.CertificationNLaw:
		return []enums.InterpreterLevel{enums.LevelCertifiedLaw}
	case enums.CertificationHealthRequired, enums.CertificationNHealth:
		return []enums.InterpreterLevel{enums.LevelCertifiedHealthCare}
	case enums.CertificationNotRequired:
		return []enums.InterpreterLevel{
			enums.LevelLayman,
			enums.LevelReadCourses,
		}
	}
	return nil
}

// IsEligible reports whether one interpreter satisfies every criterion of the
// booking: compensation class, language, gender preference, certification tier,
// blacklist and, for on-site sessions, town coverage.
func IsEligible(req Requirements, candidate users.InterpreterCandidate, blacklisted map[uuid.UUID]struct{}) bool {
	// A booking bound to a named interpreter is never offered to anyone else.
	if req.InterpreterID != nil && *req.InterpreterID != candidate.User.ID {
		return false
	}

	if _, blocked := blacklisted[candidate.User.ID]; blocked {
		return false
	}

	jobType, ok := candidate.Profile.Type.JobType()
	if !ok || jobType != req.JobType {
		return false
	}

	if !candidate.Profile.LanguageIDs.Contains(req.LanguageID) {
		return false
	}

	if req.Gender != nil && candidate.Profile.Gender != *req.Gender {
		return false
	}

	if !holdsAnyLevel(candidate.Profile, AllowedLevels(req.Certification)) {
		return false
	}

	// Phone sessions can be taken from anywhere. Town coverage only matters
	// when the interpreter has to show up in person.
	if req.Type == enums.BookingTypePhysical && req.Town != nil {
		if !coversTown(candidate.Profile, *req.Town) {
			return false
		}
	}

	return true
}

// Eligible filters candidates down to those who satisfy the requirements.
func Eligible(req Requirements, candidates []users.InterpreterCandidate, blacklist []uuid.UUID) []users.InterpreterCandidate {
	blocked := make(map[uuid.UUID]struct{}, len(blacklist))
	for _, id := range blacklist {
		blocked[id] = struct{}{}
	}

	matched := make([]users.InterpreterCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if IsEligible(req, candidate, blocked) {
			matched = append(matched, candidate)
		}
	}
	return matched
}

func holdsAnyLevel(profile models.InterpreterProfile, allowed []enums.InterpreterLevel) bool {
	for _, held := range profile.Levels {
		for _, want := range allowed {
			if enums.InterpreterLevel(held) == want {
				return true
			}
		}
	}
	return false
}

func coversTown(profile models.InterpreterProfile, town string) bool {
	if profile.WorksInAllTowns {
		return true
	}
	for _, t := range profile.Towns {
		if t == town {
			return true
		}
	}
	return false
}
