package bookings

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordtolk/nordtolk-backend/internal/notifications"
	"github.com/nordtolk/nordtolk-backend/pkg/config"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/payloads"
)

func newTransitionBooking(status enums.BookingStatus) *models.Booking {
	due := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	return &models.Booking{
		ID:           uuid.New(),
		CustomerID:   uuid.New(),
		LanguageID:   uuid.New(),
		Status:       status,
		Type:         enums.BookingTypePhone,
		JobType:      enums.JobTypePaid,
		Due:          due,
		DurationMins: 60,
		WillExpireAt: due,
		CreatedAt:    due.Add(-72 * time.Hour),
	}
}

func transitionNow() time.Time {
	return time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)
}

func TestApplyStatusChangeNoOps(t *testing.T) {
	cases := []struct {
		name      string
		from      enums.BookingStatus
		requested enums.BookingStatus
	}{
		{"same status", enums.BookingStatusPending, enums.BookingStatusPending},
		{"invalid status", enums.BookingStatusPending, enums.BookingStatus("bogus")},
		{"completed to pending", enums.BookingStatusCompleted, enums.BookingStatusPending},
		{"started to assigned", enums.BookingStatusStarted, enums.BookingStatusAssigned},
		{"assigned to completed", enums.BookingStatusAssigned, enums.BookingStatusCompleted},
		{"withdrawbefore24 to anything", enums.BookingStatusWithdrawBefore24, enums.BookingStatusPending},
		{"timedout to assigned without assignment", enums.BookingStatusTimedout, enums.BookingStatusAssigned},
		{"pending to assigned without assignment", enums.BookingStatusPending, enums.BookingStatusAssigned},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			booking := newTransitionBooking(tc.from)
			result, err := ApplyStatusChange(booking, tc.requested, TransitionContext{Now: transitionNow()})
			require.NoError(t, err)
			assert.False(t, result.Changed)
			assert.Empty(t, result.Intents)
			assert.Equal(t, tc.from, booking.Status, "no-op must not touch the booking")
		})
	}
}

func TestApplyStatusChangeTimedoutToPendingReopens(t *testing.T) {
	booking := newTransitionBooking(enums.BookingStatusTimedout)
	originalID := booking.ID
	interpreterID := uuid.New()
	booking.InterpreterID = &interpreterID
	booking.FanoutSent = true
	booking.ReminderSent = true
	now := transitionNow()

	result, err := ApplyStatusChange(booking, enums.BookingStatusPending, TransitionContext{Now: now})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.True(t, result.Reopened)
	assert.Equal(t, enums.BookingStatusPending, booking.Status)
	assert.Nil(t, booking.InterpreterID)
	assert.False(t, booking.FanoutSent)
	assert.False(t, booking.ReminderSent)
	assert.Equal(t, now, booking.CreatedAt)
	// due is ~53h out, inside the grace window, so expiry lands on due itself
	assert.Equal(t, booking.Due, booking.WillExpireAt)

	require.Len(t, result.Intents, 1)
	assert.Equal(t, enums.EventBookingReopened, result.Intents[0].EventType)
	data := result.Intents[0].Data.(payloads.BookingReopenedEvent)
	require.NotNil(t, data.OriginalBookingID)
	assert.Equal(t, originalID, *data.OriginalBookingID)
}

func TestApplyStatusChangeAssignmentPaths(t *testing.T) {
	for _, from := range []enums.BookingStatus{enums.BookingStatusPending, enums.BookingStatusTimedout} {
		t.Run(string(from), func(t *testing.T) {
			booking := newTransitionBooking(from)
			interpreterID := uuid.New()
			booking.InterpreterID = &interpreterID

			result, err := ApplyStatusChange(booking, enums.BookingStatusAssigned, TransitionContext{
				AssignmentChanged: true,
				Now:               transitionNow(),
			})
			require.NoError(t, err)

			assert.True(t, result.Changed)
			assert.Equal(t, enums.BookingStatusAssigned, booking.Status)
			require.Len(t, result.Intents, 1)
			assert.Equal(t, enums.EventBookingAccepted, result.Intents[0].EventType)
			data := result.Intents[0].Data.(payloads.BookingAcceptedEvent)
			assert.Equal(t, interpreterID, data.InterpreterID)
		})
	}
}

func TestApplyStatusChangeCommentRequired(t *testing.T) {
	cases := []struct {
		name string
		from enums.BookingStatus
	}{
		{"completed to timedout", enums.BookingStatusCompleted},
		{"pending to timedout", enums.BookingStatusPending},
		{"withdrawafter24 to timedout", enums.BookingStatusWithdrawAfter24},
		{"assigned to timedout", enums.BookingStatusAssigned},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			booking := newTransitionBooking(tc.from)
			_, err := ApplyStatusChange(booking, enums.BookingStatusTimedout, TransitionContext{Now: transitionNow()})
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
			assert.Equal(t, tc.from, booking.Status, "failed transition must not touch the booking")

			booking = newTransitionBooking(tc.from)
			result, err := ApplyStatusChange(booking, enums.BookingStatusTimedout, TransitionContext{
				AdminComment: "customer never confirmed",
				Now:          transitionNow(),
			})
			require.NoError(t, err)
			assert.True(t, result.Changed)
			assert.Equal(t, enums.BookingStatusTimedout, booking.Status)
		})
	}
}

func TestApplyStatusChangeStartedToCompleted(t *testing.T) {
	interpreterID := uuid.New()
	now := transitionNow()

	t.Run("missing comment", func(t *testing.T) {
		booking := newTransitionBooking(enums.BookingStatusStarted)
		_, err := ApplyStatusChange(booking, enums.BookingStatusCompleted, TransitionContext{
			SessionTime: "01:30:00",
			Now:         now,
		})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})

	t.Run("missing session time", func(t *testing.T) {
		booking := newTransitionBooking(enums.BookingStatusStarted)
		_, err := ApplyStatusChange(booking, enums.BookingStatusCompleted, TransitionContext{
			AdminComment: "closed manually",
			Now:          now,
		})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	})

	t.Run("comment and session time", func(t *testing.T) {
		booking := newTransitionBooking(enums.BookingStatusStarted)
		booking.InterpreterID = &interpreterID
		result, err := ApplyStatusChange(booking, enums.BookingStatusCompleted, TransitionContext{
			AdminComment: "closed manually",
			SessionTime:  "01:30:00",
			Now:          now,
		})
		require.NoError(t, err)

		assert.True(t, result.Changed)
		assert.Equal(t, enums.BookingStatusCompleted, booking.Status)
		require.NotNil(t, booking.EndAt)
		assert.Equal(t, now, *booking.EndAt)
		require.NotNil(t, booking.SessionTime)
		assert.Equal(t, "01:30:00", *booking.SessionTime)

		require.Len(t, result.Intents, 1)
		assert.Equal(t, enums.EventSessionEnded, result.Intents[0].EventType)
		data := result.Intents[0].Data.(payloads.SessionEndedEvent)
		assert.Equal(t, "01:30:00", data.SessionTime)
	})
}

func TestApplyStatusChangePendingGenericMove(t *testing.T) {
	booking := newTransitionBooking(enums.BookingStatusPending)
	result, err := ApplyStatusChange(booking, enums.BookingStatusTimedout, TransitionContext{
		AdminComment: "no interpreter found",
		Now:          transitionNow(),
	})
	require.NoError(t, err)

	assert.True(t, result.Changed)
	assert.Equal(t, enums.BookingStatusTimedout, booking.Status)
	require.Len(t, result.Intents, 1)
	assert.Equal(t, enums.EventBookingUpdated, result.Intents[0].EventType)
	data := result.Intents[0].Data.(payloads.BookingUpdatedEvent)
	assert.Equal(t, enums.BookingStatusPending, data.OldStatus)
	assert.Equal(t, enums.BookingStatusTimedout, data.NewStatus)
}

func TestApplyStatusChangeAssignedWithdraw(t *testing.T) {
	now := transitionNow()

	t.Run("defaults canceled-by to admin", func(t *testing.T) {
		booking := newTransitionBooking(enums.BookingStatusAssigned)
		interpreterID := uuid.New()
		booking.InterpreterID = &interpreterID

		result, err := ApplyStatusChange(booking, enums.BookingStatusWithdrawBefore24, TransitionContext{Now: now})
		require.NoError(t, err)

		assert.True(t, result.Changed)
		assert.Equal(t, enums.BookingStatusWithdrawBefore24, booking.Status)
		require.NotNil(t, booking.WithdrawAt)
		assert.Equal(t, now, *booking.WithdrawAt)

		require.Len(t, result.Intents, 1)
		data := result.Intents[0].Data.(payloads.BookingCanceledEvent)
		assert.Equal(t, enums.UserRoleAdmin, data.CanceledBy)
		require.NotNil(t, data.InterpreterID)
		assert.Equal(t, interpreterID, *data.InterpreterID)
	})

	t.Run("propagates actor role", func(t *testing.T) {
		booking := newTransitionBooking(enums.BookingStatusAssigned)
		result, err := ApplyStatusChange(booking, enums.BookingStatusWithdrawAfter24, TransitionContext{
			ActorRole: enums.UserRoleCustomer,
			Now:       now,
		})
		require.NoError(t, err)

		require.Len(t, result.Intents, 1)
		data := result.Intents[0].Data.(payloads.BookingCanceledEvent)
		assert.Equal(t, enums.UserRoleCustomer, data.CanceledBy)
	})
}

func TestApplyStatusChangeNilBooking(t *testing.T) {
	_, err := ApplyStatusChange(nil, enums.BookingStatusPending, TransitionContext{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestApplyStatusChangeIntentsCarryBookingID(t *testing.T) {
	booking := newTransitionBooking(enums.BookingStatusPending)
	interpreterID := uuid.New()
	booking.InterpreterID = &interpreterID

	result, err := ApplyStatusChange(booking, enums.BookingStatusAssigned, TransitionContext{
		AssignmentChanged: true,
		Now:               transitionNow(),
		Config:            config.BookingConfig{},
	})
	require.NoError(t, err)

	var got []notifications.Intent
	got = append(got, result.Intents...)
	require.Len(t, got, 1)
	assert.Equal(t, booking.ID, got[0].BookingID)
}
