package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/nordtolk-backend/internal/matching"
	"github.com/nordtolk/nordtolk-backend/internal/users"
	"github.com/nordtolk/nordtolk-backend/pkg/db"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
)

const acceptLockTTL = 10 * time.Second

// Accept lets an interpreter claim a pending booking. The check-then-act is
// serialized per interpreter with a redis lock, and the status is re-checked
// inside the transaction so two racing interpreters cannot both win.
func (s *Service) Accept(ctx context.Context, actor ActingUser, bookingID uuid.UUID) (*BookingDTO, error) {
	if actor.Role != enums.UserRoleInterpreter {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only interpreters accept bookings")
	}

	lockKey := s.locker.LockKey("accept", actor.ID.String())
	acquired, err := s.locker.SetNX(ctx, lockKey, bookingID.String(), acceptLockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire accept lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another acceptance is in progress")
	}
	defer func() {
		if delErr := s.locker.Del(context.WithoutCancel(ctx), lockKey); delErr != nil {
			s.logg.Warn(ctx, "release accept lock failed")
		}
	}()

	profile, err := s.users.FindProfile(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "interpreter profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load interpreter profile")
	}
	account, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load interpreter account")
	}

	now := s.now()
	var updated *BookingDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		booking, err := repo.FindByID(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}
		if booking.Status != enums.BookingStatusPending {
			return pkgerrors.New(pkgerrors.CodeConflict, "booking is no longer available")
		}

		blacklist, err := s.users.BlacklistedInterpreterIDs(ctx, booking.CustomerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load blacklist")
		}
		blocked := make(map[uuid.UUID]struct{}, len(blacklist))
		for _, id := range blacklist {
			blocked[id] = struct{}{}
		}
		candidate := users.InterpreterCandidate{User: *account, Profile: *profile}
		if !matching.IsEligible(matching.RequirementsFromBooking(booking), candidate, blocked) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not eligible for this booking")
		}

		if err := s.guardOverlap(ctx, repo, actor.ID, booking.Due, booking.DurationMins); err != nil {
			return err
		}

		if _, err := repo.CreateAssignment(ctx, booking.ID, actor.ID); err != nil {
			// A concurrent winner already holds the active assignment.
			if db.IsUniqueViolation(err, "uq_assignments_active") {
				return pkgerrors.New(pkgerrors.CodeConflict, "booking is no longer available")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}

		from := booking.Status
		interpreterID := actor.ID
		booking.InterpreterID = &interpreterID
		result, err := ApplyStatusChange(booking, enums.BookingStatusAssigned, TransitionContext{
			AssignmentChanged: true,
			Now:               now,
			Config:            s.cfg,
		})
		if err != nil {
			return err
		}
		if !result.Changed {
			return pkgerrors.New(pkgerrors.CodeConflict, "booking is no longer available")
		}

		if err := repo.Save(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save booking")
		}
		if err := s.recordStatusChange(ctx, tx, booking, from, actor, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status change")
		}
		if err := s.emitIntents(ctx, tx, actor, result.Intents); err != nil {
			return err
		}

		updated = FromModel(booking)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithBookingID(ctx, bookingID.String())
	s.logg.Info(logCtx, "booking accepted")
	return updated, nil
}

// guardOverlap rejects an acceptance when the interpreter already holds an
// open assignment whose session overlaps the requested slot.
func (s *Service) guardOverlap(ctx context.Context, repo *Repository, interpreterID uuid.UUID, due time.Time, durationMins int) error {
	_, held, err := repo.OpenAssignmentsForInterpreter(ctx, interpreterID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open assignments")
	}
	for i := range held {
		if overlaps(due, durationMins, held[i].Due, held[i].DurationMins) {
			return pkgerrors.New(pkgerrors.CodeConflict, "overlapping booking already accepted").
				WithDetails(map[string]interface{}{"conflicting_booking_id": held[i].ID})
		}
	}
	return nil
}
