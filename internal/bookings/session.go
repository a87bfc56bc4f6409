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
	"github.com/nordtolk/nordtolk-backend/pkg/sessiontime"
)

// Start opens the session on an assigned booking. Only the assigned
// interpreter (or an operator) may start it.
func (s *Service) Start(ctx context.Context, actor ActingUser, bookingID uuid.UUID) (*BookingDTO, error) {
	now := s.now()

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
		if err := s.requireAssignedInterpreter(actor, booking); err != nil {
			return err
		}
		if booking.Status != enums.BookingStatusAssigned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not assigned")
		}

		from := booking.Status
		booking.Status = enums.BookingStatusStarted

		if err := repo.Save(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save booking")
		}
		if err := s.recordStatusChange(ctx, tx, booking, from, actor, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status change")
		}

		intent := newIntent(enums.EventSessionStarted, booking.ID, payloads.SessionStartedEvent{
			BookingID:     booking.ID,
			CustomerID:    booking.CustomerID,
			InterpreterID: *booking.InterpreterID,
			StartedAt:     now,
		})
		if err := s.emitIntents(ctx, tx, actor, []notifications.Intent{intent}); err != nil {
			return err
		}

		updated = FromModel(booking)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithBookingID(ctx, bookingID.String())
	s.logg.Info(logCtx, "session started")
	return updated, nil
}

// End completes a started session. The elapsed session time is measured from
// the booked due time to now, and one session-ended event drives both the
// customer invoice and the interpreter payout notifications.
func (s *Service) End(ctx context.Context, actor ActingUser, bookingID uuid.UUID) (*BookingDTO, error) {
	now := s.now()

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
		if err := s.requireAssignedInterpreter(actor, booking); err != nil {
			return err
		}
		if booking.Status != enums.BookingStatusStarted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "session has not started")
		}

		from := booking.Status
		interpreterID := *booking.InterpreterID
		sessionTime := sessiontime.FormatHMS(now.Sub(booking.Due))

		booking.Status = enums.BookingStatusCompleted
		endAt := now
		booking.EndAt = &endAt
		booking.SessionTime = &sessionTime

		if err := s.completeActiveAssignment(ctx, repo, booking.ID, now, actor.ID); err != nil {
			return err
		}
		if err := repo.Save(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save booking")
		}
		if err := s.recordStatusChange(ctx, tx, booking, from, actor, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status change")
		}

		intent := newIntent(enums.EventSessionEnded, booking.ID, payloads.SessionEndedEvent{
			BookingID:     booking.ID,
			CustomerID:    booking.CustomerID,
			InterpreterID: interpreterID,
			SessionTime:   sessionTime,
			EndedAt:       now,
		})
		if err := s.emitIntents(ctx, tx, actor, []notifications.Intent{intent}); err != nil {
			return err
		}

		updated = FromModel(booking)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithBookingID(ctx, bookingID.String())
	s.logg.Info(logCtx, "session ended")
	return updated, nil
}

// CustomerNotCall closes a started phone session that the customer never
// joined. The booking completes for the interpreter's sake and the admin is
// notified that the session was not carried out.
func (s *Service) CustomerNotCall(ctx context.Context, actor ActingUser, bookingID uuid.UUID) (*BookingDTO, error) {
	now := s.now()

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
		if err := s.requireAssignedInterpreter(actor, booking); err != nil {
			return err
		}
		if booking.Status != enums.BookingStatusStarted && booking.Status != enums.BookingStatusAssigned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not in session")
		}

		from := booking.Status
		interpreterID := *booking.InterpreterID

		booking.Status = enums.BookingStatusCompleted
		booking.CustomerNotCall = true
		endAt := now
		booking.EndAt = &endAt

		if err := s.completeActiveAssignment(ctx, repo, booking.ID, now, actor.ID); err != nil {
			return err
		}
		if err := repo.Save(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save booking")
		}
		if err := s.recordStatusChange(ctx, tx, booking, from, actor, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status change")
		}

		intent := newIntent(enums.EventCustomerNotCall, booking.ID, payloads.CustomerNotCallEvent{
			BookingID:     booking.ID,
			CustomerID:    booking.CustomerID,
			InterpreterID: interpreterID,
			MarkedAt:      now,
		})
		if err := s.emitIntents(ctx, tx, actor, []notifications.Intent{intent}); err != nil {
			return err
		}

		updated = FromModel(booking)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithBookingID(ctx, bookingID.String())
	s.logg.Info(logCtx, "customer did not call")
	return updated, nil
}

func (s *Service) requireAssignedInterpreter(actor ActingUser, booking *models.Booking) error {
	if actor.IsOperator() {
		if booking.InterpreterID == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking has no interpreter")
		}
		return nil
	}
	if booking.InterpreterID == nil || *booking.InterpreterID != actor.ID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not assigned to this booking")
	}
	return nil
}

func (s *Service) completeActiveAssignment(ctx context.Context, repo *Repository, bookingID uuid.UUID, now time.Time, by uuid.UUID) error {
	assignment, err := repo.ActiveAssignment(ctx, bookingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
	}
	if assignment == nil || assignment.CanceledAt != nil || assignment.CompletedAt != nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no open assignment")
	}
	if err := repo.CompleteAssignment(ctx, assignment.ID, now, by); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete assignment")
	}
	return nil
}
