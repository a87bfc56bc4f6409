package bookings

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/nordtolk-backend/internal/notifications"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/payloads"
)

// Update applies an operator edit to a booking in one transaction: interpreter
// reassignment, schedule move, language change and status transition, each leg
// only when the request actually changes the field. Comments and reference are
// merged unconditionally. A validation failure on any leg aborts the whole
// edit.
func (s *Service) Update(ctx context.Context, actor ActingUser, bookingID uuid.UUID, req UpdateBookingRequest) (*UpdateResult, error) {
	if !actor.IsOperator() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only operators edit bookings")
	}

	now := s.now()
	var result *UpdateResult

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		booking, err := repo.FindByID(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
		}

		assignment, err := repo.ActiveAssignment(ctx, booking.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
		}

		var (
			outcome  UpdateResult
			oldDue   = booking.Due
			oldLang  = booking.LanguageID
			oldInter = currentInterpreter(booking, assignment)

			assignmentDiff *notifications.Intent
			dueDiff        *notifications.Intent
			languageDiff   *notifications.Intent
		)

		newInterpreter, err := s.resolveInterpreter(ctx, req)
		if err != nil {
			return err
		}
		if newInterpreter != nil && (oldInter == nil || *oldInter != *newInterpreter) {
			if err := repo.CancelOpenAssignments(ctx, booking.ID, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel assignments")
			}
			if _, err := repo.CreateAssignment(ctx, booking.ID, *newInterpreter); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
			}
			interpreterID := *newInterpreter
			booking.InterpreterID = &interpreterID
			outcome.AssignmentChanged = true
			intent := newIntent(enums.EventInterpreterChanged, booking.ID, payloads.InterpreterChangedEvent{
				BookingID:        booking.ID,
				CustomerID:       booking.CustomerID,
				NewInterpreterID: newInterpreter,
				OldInterpreterID: oldInter,
			})
			assignmentDiff = &intent
		}

		if req.Due != nil && !req.Due.Equal(booking.Due) {
			due := req.Due.UTC()
			booking.Due = due
			booking.WillExpireAt = WillExpireAt(due, booking.CreatedAt, s.cfg)
			outcome.DueChanged = true
			intent := newIntent(enums.EventScheduleChanged, booking.ID, payloads.ScheduleChangedEvent{
				BookingID:     booking.ID,
				CustomerID:    booking.CustomerID,
				InterpreterID: booking.InterpreterID,
				OldDue:        oldDue,
				NewDue:        due,
			})
			dueDiff = &intent
		}

		if req.LanguageID != nil && *req.LanguageID != booking.LanguageID {
			if _, err := repo.FindLanguage(ctx, *req.LanguageID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation, "unknown language")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load language")
			}
			booking.LanguageID = *req.LanguageID
			outcome.LanguageChanged = true
			intent := newIntent(enums.EventLanguageChanged, booking.ID, payloads.LanguageChangedEvent{
				BookingID:     booking.ID,
				CustomerID:    booking.CustomerID,
				InterpreterID: booking.InterpreterID,
				OldLanguageID: oldLang,
				NewLanguageID: *req.LanguageID,
			})
			languageDiff = &intent
		}

		var statusIntents []notifications.Intent
		if req.Status != nil && *req.Status != booking.Status {
			from := booking.Status
			transition, err := ApplyStatusChange(booking, *req.Status, TransitionContext{
				AssignmentChanged: outcome.AssignmentChanged,
				AdminComment:      deref(req.AdminComments),
				SessionTime:       deref(req.SessionTime),
				ActorRole:         actor.Role,
				Now:               now,
				Config:            s.cfg,
			})
			if err != nil {
				return err
			}
			if transition.Changed {
				outcome.StatusChanged = true
				statusIntents = transition.Intents
				if transition.Reopened {
					if err := repo.CancelOpenAssignments(ctx, booking.ID, now); err != nil {
						return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel assignments")
					}
				}
				if err := s.recordStatusChange(ctx, tx, booking, from, actor, req.AdminComments); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record status change")
				}
			}
		}

		if req.AdminComments != nil {
			booking.AdminComments = req.AdminComments
		}
		if req.Reference != nil {
			booking.Reference = req.Reference
		}

		if err := repo.Save(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save booking")
		}

		// Field-edit notices go out due first, then interpreter, then
		// language, regardless of the order the legs ran in.
		var diffs []notifications.Intent
		for _, diff := range []*notifications.Intent{dueDiff, assignmentDiff, languageDiff} {
			if diff != nil {
				diffs = append(diffs, *diff)
			}
		}

		// A booking already past its due time is saved as-is but no longer
		// worth notifying anyone about schedule, interpreter or language
		// edits. Status transitions still notify.
		intents := statusIntents
		if booking.Due.After(now) {
			intents = append(diffs, statusIntents...)
		}
		if err := s.emitIntents(ctx, tx, actor, intents); err != nil {
			return err
		}

		outcome.Booking = FromModel(booking)
		outcome.NotificationsSent = len(intents) > 0
		result = &outcome
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithBookingID(ctx, bookingID.String())
	s.logg.Info(logCtx, "booking updated")
	return result, nil
}

// resolveInterpreter turns the request's interpreter id or email into a user
// id, verifying the account exists and is an interpreter. Returns nil when the
// request does not touch the assignment.
func (s *Service) resolveInterpreter(ctx context.Context, req UpdateBookingRequest) (*uuid.UUID, error) {
	switch {
	case req.InterpreterID != nil:
		account, err := s.users.FindByID(ctx, *req.InterpreterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown interpreter")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load interpreter")
		}
		return requireInterpreterRole(account)
	case req.InterpreterEmail != nil:
		account, err := s.users.FindByEmail(ctx, *req.InterpreterEmail)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown interpreter")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load interpreter")
		}
		return requireInterpreterRole(account)
	}
	return nil, nil
}

func requireInterpreterRole(account *models.User) (*uuid.UUID, error) {
	if account.Role != enums.UserRoleInterpreter {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user is not an interpreter").
			WithDetails(map[string]interface{}{"user_id": account.ID})
	}
	id := account.ID
	return &id, nil
}

// currentInterpreter prefers the live assignment row over the denormalized
// column so a stale mirror cannot hide a reassignment.
func currentInterpreter(booking *models.Booking, assignment *models.Assignment) *uuid.UUID {
	if assignment != nil && assignment.CanceledAt == nil && assignment.CompletedAt == nil {
		id := assignment.InterpreterID
		return &id
	}
	return booking.InterpreterID
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
