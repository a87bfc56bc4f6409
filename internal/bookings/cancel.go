package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/nordtolk-backend/internal/notifications"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/payloads"
)

// Cancel withdraws a booking. A customer (or operator) withdrawal lands in
// withdrawbefore24 or withdrawafter24 depending on how close the session is.
// An interpreter cancel far enough out returns the booking to the pool for a
// new fan-out; closer than the cutoff it is refused.
func (s *Service) Cancel(ctx context.Context, actor ActingUser, bookingID uuid.UUID) (*BookingDTO, error) {
	now := s.now()
	cutoff := time.Duration(s.withdrawCutoffHours()) * time.Hour

	var updated *BookingDTO
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		booking, err := repo.FindByID(ctx, bookingID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if err := s.authorize(actor, booking); err != nil {
			return err
		}
		if booking.Status.IsTerminal() || booking.Status == enums.BookingStatusTimedout {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is already closed")
		}

		if actor.Role == enums.UserRoleInterpreter {
			return s.cancelByInterpreter(ctx, tx, booking, actor, now, cutoff, &updated)
		}
		return s.cancelByCustomer(ctx, tx, booking, actor, now, cutoff, &updated)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithBookingID(ctx, bookingID.String())
	s.logg.Info(logCtx, "booking canceled")
	return updated, nil
}

func (s *Service) cancelByCustomer(ctx context.Context, tx *gorm.DB, booking *models.Booking, actor ActingUser, now time.Time, cutoff time.Duration, out **BookingDTO) error {
	repo := s.repo.WithTx(tx)

	target := enums.BookingStatusWithdrawAfter24
	if booking.Due.Sub(now) > cutoff {
		target = enums.BookingStatusWithdrawBefore24
	}

	from := booking.Status
	result, err := ApplyStatusChange(booking, target, TransitionContext{
		ActorRole: actor.Role,
		Now:       now,
		Config:    s.cfg,
	})
	if err != nil {
		return err
	}
	if !result.Changed {
		// pending bookings route through the generic status-change branch;
		// anything else the table does not cover is applied directly here so
		// a customer can always withdraw an open booking.
		booking.Status = target
		withdrawAt := now
		booking.WithdrawAt = &withdrawAt
	}

	if err := repo.CancelOpenAssignments(ctx, booking.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel assignments")
	}
	if err := repo.Save(ctx, booking); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save booking")
	}
	if err := s.recordStatusChange(ctx, tx, booking, from, actor, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status change")
	}

	intents := result.Intents
	if len(intents) == 0 {
		intents = append(intents, newIntent(enums.EventBookingCanceled, booking.ID, payloads.BookingCanceledEvent{
			BookingID:     booking.ID,
			CustomerID:    booking.CustomerID,
			InterpreterID: booking.InterpreterID,
			Status:        booking.Status,
			CanceledBy:    actor.Role,
			CanceledAt:    now,
		}))
	}
	if err := s.emitIntents(ctx, tx, actor, intents); err != nil {
		return err
	}

	*out = FromModel(booking)
	return nil
}

func (s *Service) cancelByInterpreter(ctx context.Context, tx *gorm.DB, booking *models.Booking, actor ActingUser, now time.Time, cutoff time.Duration, out **BookingDTO) error {
	repo := s.repo.WithTx(tx)

	if booking.InterpreterID == nil || *booking.InterpreterID != actor.ID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not assigned to this booking")
	}
	if booking.Due.Sub(now) <= cutoff {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "too close to the session to cancel")
	}

	from := booking.Status
	interpreterID := actor.ID

	if err := repo.CancelOpenAssignments(ctx, booking.ID, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel assignment")
	}

	booking.Status = enums.BookingStatusPending
	booking.InterpreterID = nil
	booking.FanoutSent = false
	booking.ReminderSent = false
	booking.WillExpireAt = WillExpireAt(booking.Due, now, s.cfg)

	if err := repo.Save(ctx, booking); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save booking")
	}
	if err := s.recordStatusChange(ctx, tx, booking, from, actor, nil); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status change")
	}

	intent := newIntent(enums.EventBookingCanceled, booking.ID, payloads.BookingCanceledEvent{
		BookingID:      booking.ID,
		CustomerID:     booking.CustomerID,
		InterpreterID:  &interpreterID,
		Status:         enums.BookingStatusPending,
		CanceledBy:     enums.UserRoleInterpreter,
		ReturnedToPool: true,
		CanceledAt:     now,
	})
	if err := s.emitIntents(ctx, tx, actor, []notifications.Intent{intent}); err != nil {
		return err
	}

	*out = FromModel(booking)
	return nil
}

func (s *Service) withdrawCutoffHours() int {
	if s.cfg.WithdrawCutoffHours > 0 {
		return s.cfg.WithdrawCutoffHours
	}
	return 24
}
