package bookings

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/internal/notifications"
	"github.com/nordtolk/nordtolk-backend/pkg/config"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/payloads"
)

// TransitionContext carries what the orchestrator knows when requesting a
// status move. AdminComment is the comment from the edit request (merged into
// the booking afterwards); SessionTime is only set on the started→completed
// admin path.
type TransitionContext struct {
	AssignmentChanged bool
	AdminComment      string
	SessionTime       string
	ActorRole         enums.UserRole
	Now               time.Time
	Config            config.BookingConfig
}

// TransitionResult reports what a status change did. Unknown transitions set
// Changed=false with no error; callers must treat that as "nothing happened".
type TransitionResult struct {
	Changed  bool
	Reopened bool
	Intents  []notifications.Intent
}

// ApplyStatusChange validates the requested transition against the current
// status and mutates the booking in memory. Persisting the row, writing the
// audit trail and emitting the intents to the outbox are the caller's job, so
// everything lands in one transaction.
func ApplyStatusChange(booking *models.Booking, requested enums.BookingStatus, tctx TransitionContext) (TransitionResult, error) {
	if booking == nil {
		return TransitionResult{}, pkgerrors.New(pkgerrors.CodeValidation, "booking required")
	}
	if !requested.IsValid() || requested == booking.Status {
		return TransitionResult{}, nil
	}
	now := tctx.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	switch booking.Status {
	case enums.BookingStatusTimedout:
		return applyFromTimedout(booking, requested, tctx, now)
	case enums.BookingStatusCompleted:
		return applyFromCompleted(booking, requested, tctx)
	case enums.BookingStatusStarted:
		return applyFromStarted(booking, requested, tctx, now)
	case enums.BookingStatusPending:
		return applyFromPending(booking, requested, tctx)
	case enums.BookingStatusWithdrawAfter24:
		return applyFromWithdrawAfter24(booking, requested, tctx)
	case enums.BookingStatusAssigned:
		return applyFromAssigned(booking, requested, tctx, now)
	}
	return TransitionResult{}, nil
}

func applyFromTimedout(booking *models.Booking, requested enums.BookingStatus, tctx TransitionContext, now time.Time) (TransitionResult, error) {
	if requested == enums.BookingStatusPending {
		original := booking.ID
		booking.Status = enums.BookingStatusPending
		booking.CreatedAt = now
		booking.WillExpireAt = WillExpireAt(booking.Due, now, tctx.Config)
		booking.FanoutSent = false
		booking.ReminderSent = false
		booking.InterpreterID = nil
		return TransitionResult{
			Changed:  true,
			Reopened: true,
			Intents: []notifications.Intent{{
				EventType: enums.EventBookingReopened,
				BookingID: booking.ID,
				Data: payloads.BookingReopenedEvent{
					BookingID:         booking.ID,
					OriginalBookingID: &original,
					CustomerID:        booking.CustomerID,
					Due:               booking.Due,
				},
			}},
		}, nil
	}

	if tctx.AssignmentChanged {
		booking.Status = requested
		intent := notifications.Intent{
			EventType: enums.EventBookingAccepted,
			BookingID: booking.ID,
			Data: payloads.BookingAcceptedEvent{
				BookingID:     booking.ID,
				CustomerID:    booking.CustomerID,
				InterpreterID: derefInterpreter(booking),
				Due:           booking.Due,
			},
		}
		return TransitionResult{Changed: true, Intents: []notifications.Intent{intent}}, nil
	}
	return TransitionResult{}, nil
}

func applyFromCompleted(booking *models.Booking, requested enums.BookingStatus, tctx TransitionContext) (TransitionResult, error) {
	if requested != enums.BookingStatusTimedout {
		return TransitionResult{}, nil
	}
	if strings.TrimSpace(tctx.AdminComment) == "" {
		return TransitionResult{}, pkgerrors.New(pkgerrors.CodeValidation, "admin comment required").
			WithDetails(map[string]interface{}{"missing": "admin_comments"})
	}
	booking.Status = enums.BookingStatusTimedout
	return TransitionResult{Changed: true}, nil
}

func applyFromStarted(booking *models.Booking, requested enums.BookingStatus, tctx TransitionContext, now time.Time) (TransitionResult, error) {
	if requested != enums.BookingStatusCompleted {
		return TransitionResult{}, nil
	}
	if strings.TrimSpace(tctx.AdminComment) == "" {
		return TransitionResult{}, pkgerrors.New(pkgerrors.CodeValidation, "admin comment required").
			WithDetails(map[string]interface{}{"missing": "admin_comments"})
	}
	if strings.TrimSpace(tctx.SessionTime) == "" {
		return TransitionResult{}, pkgerrors.New(pkgerrors.CodeValidation, "session time required").
			WithDetails(map[string]interface{}{"missing": "session_time"})
	}

	booking.Status = enums.BookingStatusCompleted
	endAt := now
	booking.EndAt = &endAt
	sessionTime := tctx.SessionTime
	booking.SessionTime = &sessionTime

	intent := notifications.Intent{
		EventType: enums.EventSessionEnded,
		BookingID: booking.ID,
		Data: payloads.SessionEndedEvent{
			BookingID:     booking.ID,
			CustomerID:    booking.CustomerID,
			InterpreterID: derefInterpreter(booking),
			SessionTime:   sessionTime,
			EndedAt:       endAt,
		},
	}
	return TransitionResult{Changed: true, Intents: []notifications.Intent{intent}}, nil
}

func applyFromPending(booking *models.Booking, requested enums.BookingStatus, tctx TransitionContext) (TransitionResult, error) {
	if requested == enums.BookingStatusAssigned {
		if !tctx.AssignmentChanged {
			return TransitionResult{}, nil
		}
		booking.Status = enums.BookingStatusAssigned
		intent := notifications.Intent{
			EventType: enums.EventBookingAccepted,
			BookingID: booking.ID,
			Data: payloads.BookingAcceptedEvent{
				BookingID:     booking.ID,
				CustomerID:    booking.CustomerID,
				InterpreterID: derefInterpreter(booking),
				Due:           booking.Due,
			},
		}
		return TransitionResult{Changed: true, Intents: []notifications.Intent{intent}}, nil
	}

	if requested == enums.BookingStatusTimedout && strings.TrimSpace(tctx.AdminComment) == "" {
		return TransitionResult{}, pkgerrors.New(pkgerrors.CodeValidation, "admin comment required").
			WithDetails(map[string]interface{}{"missing": "admin_comments"})
	}

	old := booking.Status
	booking.Status = requested
	intent := notifications.Intent{
		EventType: enums.EventBookingUpdated,
		BookingID: booking.ID,
		Data: payloads.BookingUpdatedEvent{
			BookingID:  booking.ID,
			CustomerID: booking.CustomerID,
			OldStatus:  old,
			NewStatus:  requested,
		},
	}
	return TransitionResult{Changed: true, Intents: []notifications.Intent{intent}}, nil
}

func applyFromWithdrawAfter24(booking *models.Booking, requested enums.BookingStatus, tctx TransitionContext) (TransitionResult, error) {
	if requested != enums.BookingStatusTimedout {
		return TransitionResult{}, nil
	}
	if strings.TrimSpace(tctx.AdminComment) == "" {
		return TransitionResult{}, pkgerrors.New(pkgerrors.CodeValidation, "admin comment required").
			WithDetails(map[string]interface{}{"missing": "admin_comments"})
	}
	booking.Status = enums.BookingStatusTimedout
	return TransitionResult{Changed: true}, nil
}

func applyFromAssigned(booking *models.Booking, requested enums.BookingStatus, tctx TransitionContext, now time.Time) (TransitionResult, error) {
	switch requested {
	case enums.BookingStatusTimedout:
		if strings.TrimSpace(tctx.AdminComment) == "" {
			return TransitionResult{}, pkgerrors.New(pkgerrors.CodeValidation, "admin comment required").
				WithDetails(map[string]interface{}{"missing": "admin_comments"})
		}
		booking.Status = enums.BookingStatusTimedout
		return TransitionResult{Changed: true}, nil

	case enums.BookingStatusWithdrawBefore24, enums.BookingStatusWithdrawAfter24:
		interpreterID := booking.InterpreterID
		booking.Status = requested
		withdrawAt := now
		booking.WithdrawAt = &withdrawAt
		canceledBy := tctx.ActorRole
		if canceledBy == "" {
			canceledBy = enums.UserRoleAdmin
		}
		intent := notifications.Intent{
			EventType: enums.EventBookingCanceled,
			BookingID: booking.ID,
			Data: payloads.BookingCanceledEvent{
				BookingID:     booking.ID,
				CustomerID:    booking.CustomerID,
				InterpreterID: interpreterID,
				Status:        requested,
				CanceledBy:    canceledBy,
				CanceledAt:    now,
			},
		}
		return TransitionResult{Changed: true, Intents: []notifications.Intent{intent}}, nil
	}
	return TransitionResult{}, nil
}

func derefInterpreter(booking *models.Booking) uuid.UUID {
	if booking.InterpreterID == nil {
		return uuid.Nil
	}
	return *booking.InterpreterID
}
