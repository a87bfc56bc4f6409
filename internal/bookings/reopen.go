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

// Reopen puts a closed booking back on the market. A non-timedout booking is
// reset to pending in place; a timedout one is cloned to a fresh row so the
// expired record stays in history. Either way open assignments are cancelled
// and the interpreter fan-out runs again off the reopened event.
func (s *Service) Reopen(ctx context.Context, actor ActingUser, bookingID uuid.UUID, comment string) (*BookingDTO, error) {
	if !actor.IsOperator() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only operators reopen bookings")
	}

	now := s.now()
	var reopened *BookingDTO

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		booking, err := repo.FindByID(ctx, bookingID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.Status == enums.BookingStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is already open")
		}

		if err := repo.CancelOpenAssignments(ctx, booking.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel assignments")
		}

		if booking.Status != enums.BookingStatusTimedout {
			from := booking.Status
			booking.Status = enums.BookingStatusPending
			booking.InterpreterID = nil
			booking.FanoutSent = false
			booking.ReminderSent = false
			booking.WithdrawAt = nil
			booking.CreatedAt = now
			booking.WillExpireAt = WillExpireAt(booking.Due, now, s.cfg)
			if comment != "" {
				booking.AdminComments = &comment
			}

			if err := repo.Save(ctx, booking); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save booking")
			}
			commentPtr := optionalComment(comment)
			if err := s.recordStatusChange(ctx, tx, booking, from, actor, commentPtr); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status change")
			}

			intent := newIntent(enums.EventBookingReopened, booking.ID, payloads.BookingReopenedEvent{
				BookingID:  booking.ID,
				CustomerID: booking.CustomerID,
				Due:        booking.Due,
			})
			if err := s.emitIntents(ctx, tx, actor, []notifications.Intent{intent}); err != nil {
				return err
			}
			reopened = FromModel(booking)
			return nil
		}

		clone := cloneForReopen(booking, now, comment)
		clone.WillExpireAt = WillExpireAt(clone.Due, now, s.cfg)
		if _, err := repo.Create(ctx, clone); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reopened booking")
		}
		commentPtr := optionalComment(comment)
		if err := s.recordStatusChange(ctx, tx, clone, enums.BookingStatusTimedout, actor, commentPtr); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status change")
		}

		original := booking.ID
		intent := newIntent(enums.EventBookingReopened, clone.ID, payloads.BookingReopenedEvent{
			BookingID:         clone.ID,
			OriginalBookingID: &original,
			CustomerID:        clone.CustomerID,
			Due:               clone.Due,
		})
		if err := s.emitIntents(ctx, tx, actor, []notifications.Intent{intent}); err != nil {
			return err
		}
		reopened = FromModel(clone)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithBookingID(ctx, reopened.ID.String())
	s.logg.Info(logCtx, "booking reopened")
	return reopened, nil
}

// cloneForReopen copies the booking's request attributes into a fresh pending
// row. Session and withdrawal state is deliberately left behind.
func cloneForReopen(b *models.Booking, now time.Time, comment string) *models.Booking {
	clone := &models.Booking{
		ID:            uuid.New(),
		CustomerID:    b.CustomerID,
		LanguageID:    b.LanguageID,
		Status:        enums.BookingStatusPending,
		Type:          b.Type,
		JobType:       b.JobType,
		Due:           b.Due,
		DurationMins:  b.DurationMins,
		Immediate:     b.Immediate,
		Gender:        b.Gender,
		Certification: b.Certification,
		Town:          b.Town,
		Address:       b.Address,
		Instructions:  b.Instructions,
		Reference:     b.Reference,
		CustomerEmail: b.CustomerEmail,
		CustomerPhone: b.CustomerPhone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if comment != "" {
		clone.AdminComments = &comment
	}
	return clone
}

func optionalComment(comment string) *string {
	if comment == "" {
		return nil
	}
	return &comment
}
