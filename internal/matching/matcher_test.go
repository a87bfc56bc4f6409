package matching

import (
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordtolk/nordtolk-backend/internal/users"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	dbtypes "github.com/nordtolk/nordtolk-backend/pkg/db/types"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
)

func newCandidate(languageID uuid.UUID, opts ...func(*users.InterpreterCandidate)) users.InterpreterCandidate {
	id := uuid.New()
	candidate := users.InterpreterCandidate{
		User: models.User{
			ID:       id,
			Role:     enums.UserRoleInterpreter,
			IsActive: true,
		},
		Profile: models.InterpreterProfile{
			UserID:      id,
			Type:        enums.InterpreterTypeProfessional,
			Gender:      enums.GenderFemale,
			Levels:      pq.StringArray{string(enums.LevelCertified)},
			LanguageIDs: dbtypes.UUIDArray{languageID},
		},
	}
	for _, opt := range opts {
		opt(&candidate)
	}
	return candidate
}

func paidRequirements(languageID uuid.UUID) Requirements {
	return Requirements{
		JobType:    enums.JobTypePaid,
		LanguageID: languageID,
		Type:       enums.BookingTypePhone,
	}
}

func TestEligibleMatchesJobTypeAndLanguage(t *testing.T) {
	langID := uuid.New()
	otherLang := uuid.New()

	professional := newCandidate(langID)
	volunteer := newCandidate(langID, func(c *users.InterpreterCandidate) {
		c.Profile.Type = enums.InterpreterTypeVolunteer
		c.Profile.Levels = pq.StringArray{string(enums.LevelLayman)}
	})
	wrongLanguage := newCandidate(otherLang)

	matched := Eligible(paidRequirements(langID), []users.InterpreterCandidate{professional, volunteer, wrongLanguage}, nil)
	require.Len(t, matched, 1)
	assert.Equal(t, professional.User.ID, matched[0].User.ID)

	unpaid := Requirements{
		JobType:    enums.JobTypeUnpaid,
		LanguageID: langID,
		Type:       enums.BookingTypePhone,
	}
	matched = Eligible(unpaid, []users.InterpreterCandidate{professional, volunteer}, nil)
	require.Len(t, matched, 1)
	assert.Equal(t, volunteer.User.ID, matched[0].User.ID)
}

func TestEligibleGenderPreference(t *testing.T) {
	langID := uuid.New()
	female := newCandidate(langID)
	male := newCandidate(langID, func(c *users.InterpreterCandidate) {
		c.Profile.Gender = enums.GenderMale
	})

	req := paidRequirements(langID)
	matched := Eligible(req, []users.InterpreterCandidate{female, male}, nil)
	assert.Len(t, matched, 2)

	wantMale := enums.GenderMale
	req.Gender = &wantMale
	matched = Eligible(req, []users.InterpreterCandidate{female, male}, nil)
	require.Len(t, matched, 1)
	assert.Equal(t, male.User.ID, matched[0].User.ID)
}

func TestEligibleCertificationTiers(t *testing.T) {
	langID := uuid.New()
	lawCertified := newCandidate(langID, func(c *users.InterpreterCandidate) {
		c.Profile.Levels = pq.StringArray{string(enums.LevelCertifiedLaw)}
	})
	layman := newCandidate(langID, func(c *users.InterpreterCandidate) {
		c.Profile.Levels = pq.StringArray{string(enums.LevelLayman)}
	})

	cases := []struct {
		name        string
		requirement enums.CertificationRequirement
		wantLaw     bool
		wantLayman  bool
	}{
		{"certified accepts any certified tier", enums.CertificationRequired, true, false},
		{"both behaves like certified", enums.CertificationBoth, true, false},
		{"law wants the law specialisation", enums.CertificationLawRequired, true, false},
		{"n_law behaves like law", enums.CertificationNLaw, true, false},
		{"health excludes law-only interpreters", enums.CertificationHealthRequired, false, false},
		{"normal wants non-certified tiers", enums.CertificationNotRequired, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := paidRequirements(langID)
			requirement := tc.requirement
			req.Certification = &requirement

			matched := Eligible(req, []users.InterpreterCandidate{lawCertified, layman}, nil)
			ids := map[uuid.UUID]bool{}
			for _, m := range matched {
				ids[m.User.ID] = true
			}
			assert.Equal(t, tc.wantLaw, ids[lawCertified.User.ID])
			assert.Equal(t, tc.wantLayman, ids[layman.User.ID])
		})
	}
}

func TestEligibleNoCertificationPreferenceAcceptsAll(t *testing.T) {
	langID := uuid.New()
	layman := newCandidate(langID, func(c *users.InterpreterCandidate) {
		c.Profile.Levels = pq.StringArray{string(enums.LevelReadCourses)}
	})

	matched := Eligible(paidRequirements(langID), []users.InterpreterCandidate{layman}, nil)
	assert.Len(t, matched, 1)
}

func TestEligibleBoundBookingMatchesOnlyNamedInterpreter(t *testing.T) {
	langID := uuid.New()
	named := newCandidate(langID)
	other := newCandidate(langID)

	req := paidRequirements(langID)
	req.InterpreterID = &named.User.ID

	matched := Eligible(req, []users.InterpreterCandidate{named, other}, nil)
	require.Len(t, matched, 1)
	assert.Equal(t, named.User.ID, matched[0].User.ID)
}

func TestEligibleBlacklistExcludes(t *testing.T) {
	langID := uuid.New()
	blocked := newCandidate(langID)
	allowed := newCandidate(langID)

	matched := Eligible(paidRequirements(langID), []users.InterpreterCandidate{blocked, allowed}, []uuid.UUID{blocked.User.ID})
	require.Len(t, matched, 1)
	assert.Equal(t, allowed.User.ID, matched[0].User.ID)
}

func TestEligibleTownOnlyRestrictsPhysical(t *testing.T) {
	langID := uuid.New()
	local := newCandidate(langID, func(c *users.InterpreterCandidate) {
		c.Profile.Towns = pq.StringArray{"Stockholm"}
	})
	roamer := newCandidate(langID, func(c *users.InterpreterCandidate) {
		c.Profile.WorksInAllTowns = true
	})
	elsewhere := newCandidate(langID, func(c *users.InterpreterCandidate) {
		c.Profile.Towns = pq.StringArray{"Malmö"}
	})

	town := "Stockholm"
	physical := Requirements{
		JobType:    enums.JobTypePaid,
		LanguageID: langID,
		Type:       enums.BookingTypePhysical,
		Town:       &town,
	}
	matched := Eligible(physical, []users.InterpreterCandidate{local, roamer, elsewhere}, nil)
	ids := map[uuid.UUID]bool{}
	for _, m := range matched {
		ids[m.User.ID] = true
	}
	assert.True(t, ids[local.User.ID])
	assert.True(t, ids[roamer.User.ID])
	assert.False(t, ids[elsewhere.User.ID])

	// A phone booking into the same town does not filter on coverage.
	phone := physical
	phone.Type = enums.BookingTypePhone
	matched = Eligible(phone, []users.InterpreterCandidate{elsewhere}, nil)
	assert.Len(t, matched, 1)
}
