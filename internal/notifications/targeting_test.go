package notifications

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordtolk/nordtolk-backend/internal/users"
	"github.com/nordtolk/nordtolk-backend/pkg/businesshours"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	dbtypes "github.com/nordtolk/nordtolk-backend/pkg/db/types"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	"github.com/nordtolk/nordtolk-backend/pkg/i18n"
)

func testTargeter() *Targeter {
	return NewTargeter(i18n.NewCatalog(), businesshours.Window{NightStart: 22, NightEnd: 7, DayStart: 9})
}

func fanoutBooking(bookingType enums.BookingType) (*models.Booking, *models.Language) {
	lang := &models.Language{ID: uuid.New(), Name: "Somali"}
	town := "Uppsala"
	return &models.Booking{
		ID:           uuid.New(),
		CustomerID:   uuid.New(),
		LanguageID:   lang.ID,
		Status:       enums.BookingStatusPending,
		Type:         bookingType,
		JobType:      enums.JobTypePaid,
		Due:          time.Date(2026, 5, 4, 14, 30, 0, 0, time.UTC),
		DurationMins: 45,
		Town:         &town,
	}, lang
}

func fanoutCandidate(phone *string, mutate func(*models.InterpreterProfile)) users.InterpreterCandidate {
	id := uuid.New()
	profile := models.InterpreterProfile{
		UserID:      id,
		Type:        enums.InterpreterTypeProfessional,
		Gender:      enums.GenderFemale,
		LanguageIDs: dbtypes.UUIDArray{uuid.New()},
	}
	if mutate != nil {
		mutate(&profile)
	}
	return users.InterpreterCandidate{
		User:    models.User{ID: id, Name: "Tolk", Phone: phone, Role: enums.UserRoleInterpreter},
		Profile: profile,
	}
}

func TestFanoutMessagesTemplates(t *testing.T) {
	targeter := testTargeter()
	day := time.Date(2026, 5, 3, 11, 0, 0, 0, time.UTC)
	phone := "+46700000001"

	t.Run("physical booking uses the on-site sms", func(t *testing.T) {
		booking, lang := fanoutBooking(enums.BookingTypePhysical)
		messages, suppressed := targeter.FanoutMessages(booking, lang, []users.InterpreterCandidate{fanoutCandidate(&phone, nil)}, day)
		require.Zero(t, suppressed)
		require.Len(t, messages, 2)

		pushMsg, smsMsg := messages[0], messages[1]
		assert.Equal(t, enums.ChannelPush, pushMsg.Channel)
		assert.Contains(t, pushMsg.Body, "Somali")
		assert.Equal(t, "45", pushMsg.Data["duration"])

		assert.Equal(t, enums.ChannelSMS, smsMsg.Channel)
		assert.Equal(t, phone, smsMsg.To)
		assert.Contains(t, smsMsg.Body, "platstolkning")
		assert.Contains(t, smsMsg.Body, "Uppsala")
		assert.Contains(t, smsMsg.Body, ShortRef(booking.ID))
	})

	t.Run("phone booking uses the phone sms", func(t *testing.T) {
		booking, lang := fanoutBooking(enums.BookingTypePhone)
		messages, _ := targeter.FanoutMessages(booking, lang, []users.InterpreterCandidate{fanoutCandidate(&phone, nil)}, day)
		require.Len(t, messages, 2)
		assert.Contains(t, messages[1].Body, "telefontolkning")
		assert.NotContains(t, messages[1].Body, "Uppsala")
	})

	t.Run("immediate booking renders the emergency push", func(t *testing.T) {
		booking, lang := fanoutBooking(enums.BookingTypePhone)
		booking.Immediate = true
		messages, _ := targeter.FanoutMessages(booking, lang, []users.InterpreterCandidate{fanoutCandidate(nil, nil)}, day)
		require.Len(t, messages, 1)
		assert.Contains(t, messages[0].Body, "akutbokning")
		assert.True(t, messages[0].Emergency)
	})
}

func TestFanoutMessagesPreferences(t *testing.T) {
	targeter := testTargeter()
	night := time.Date(2026, 5, 3, 23, 0, 0, 0, time.UTC)
	phone := "+46700000001"

	t.Run("notification opt-out suppresses the candidate", func(t *testing.T) {
		booking, lang := fanoutBooking(enums.BookingTypePhone)
		messages, suppressed := targeter.FanoutMessages(booking, lang, []users.InterpreterCandidate{
			fanoutCandidate(&phone, func(p *models.InterpreterProfile) { p.NotGetNotification = true }),
		}, night)
		assert.Empty(t, messages)
		assert.Equal(t, 1, suppressed)
	})

	t.Run("nighttime opt-out defers to the next business morning", func(t *testing.T) {
		booking, lang := fanoutBooking(enums.BookingTypePhone)
		messages, _ := targeter.FanoutMessages(booking, lang, []users.InterpreterCandidate{
			fanoutCandidate(&phone, func(p *models.InterpreterProfile) { p.NotGetNighttime = true }),
		}, night)
		require.Len(t, messages, 2)
		for _, msg := range messages {
			require.NotNil(t, msg.SendAfter)
			assert.Equal(t, time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC), *msg.SendAfter)
		}
	})

	t.Run("immediate bookings are never deferred", func(t *testing.T) {
		booking, lang := fanoutBooking(enums.BookingTypePhone)
		booking.Immediate = true
		messages, _ := targeter.FanoutMessages(booking, lang, []users.InterpreterCandidate{
			fanoutCandidate(nil, func(p *models.InterpreterProfile) { p.NotGetNighttime = true }),
		}, night)
		require.Len(t, messages, 1)
		assert.Nil(t, messages[0].SendAfter)
	})
}

func TestShortRef(t *testing.T) {
	id := uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000000")
	assert.Equal(t, "A1B2C3D4", ShortRef(id))
}
