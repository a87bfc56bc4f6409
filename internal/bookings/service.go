package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/nordtolk-backend/internal/matching"
	"github.com/nordtolk/nordtolk-backend/internal/notifications"
	"github.com/nordtolk/nordtolk-backend/internal/users"
	"github.com/nordtolk/nordtolk-backend/pkg/config"
	"github.com/nordtolk/nordtolk-backend/pkg/db"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox"
	"github.com/nordtolk/nordtolk-backend/pkg/pagination"
)

// AcceptLocker serializes booking acceptance per interpreter. Satisfied by
// the redis client; tests substitute an in-memory fake.
type AcceptLocker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(parts ...string) string
}

// ServiceParams packages the booking service dependencies.
type ServiceParams struct {
	DB      *db.Client
	Users   *users.Repository
	Matcher matching.Service
	Outbox  *outbox.Service
	Locker  AcceptLocker
	Config  config.BookingConfig
	Logger  *logger.Logger
}

// Service implements the booking lifecycle: creation, the update
// orchestrator, acceptance, cancellation, session end, and reopening.
type Service struct {
	db      *db.Client
	repo    *Repository
	users   *users.Repository
	matcher matching.Service
	outbox  *outbox.Service
	locker  AcceptLocker
	cfg     config.BookingConfig
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the booking service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "database client required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if params.Matcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "matching service required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox service required")
	}
	if params.Locker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "accept locker required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Service{
		db:      params.DB,
		repo:    NewRepository(params.DB.DB()),
		users:   params.Users,
		matcher: params.Matcher,
		outbox:  params.Outbox,
		locker:  params.Locker,
		cfg:     params.Config,
		logg:    params.Logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Get loads one booking, enforcing that the actor is a party to it.
func (s *Service) Get(ctx context.Context, actor ActingUser, id uuid.UUID) (*BookingDTO, error) {
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, booking); err != nil {
		return nil, err
	}
	return FromModel(booking), nil
}

// ListForUser pages through the bookings visible to the actor: their own for
// customers, their assignments for interpreters, everything for operators
// when a customer id is supplied.
func (s *Service) ListForUser(ctx context.Context, actor ActingUser, params ListParams) (*ListResult, error) {
	q := listQuery{Limit: params.Limit, Statuses: params.Statuses}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		q.Cursor = cursor
	}

	var (
		rows []models.Booking
		next *pagination.Cursor
		err  error
	)
	switch {
	case actor.Role == enums.UserRoleInterpreter:
		rows, next, err = s.repo.ListForInterpreter(ctx, actor.ID, q)
	default:
		rows, next, err = s.repo.ListForCustomer(ctx, actor.ID, q)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings")
	}

	result := &ListResult{Items: make([]BookingDTO, 0, len(rows))}
	for i := range rows {
		result.Items = append(result.Items, *FromModel(&rows[i]))
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

// History returns the status audit trail of a booking.
func (s *Service) History(ctx context.Context, actor ActingUser, id uuid.UUID) ([]HistoryEntry, error) {
	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, booking); err != nil {
		return nil, err
	}

	rows, err := s.repo.StatusHistory(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load status history")
	}
	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, HistoryEntry{
			FromStatus: row.FromStatus,
			ToStatus:   row.ToStatus,
			ActorID:    row.ActorID,
			ActorRole:  row.ActorRole,
			Comment:    row.Comment,
			CreatedAt:  row.CreatedAt,
		})
	}
	return entries, nil
}

// PotentialForInterpreter returns the pending bookings the interpreter is
// eligible to accept, soonest first.
func (s *Service) PotentialForInterpreter(ctx context.Context, interpreterID uuid.UUID) ([]BookingDTO, error) {
	profile, err := s.users.FindProfile(ctx, interpreterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "interpreter profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load interpreter profile")
	}
	account, err := s.users.FindByID(ctx, interpreterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load interpreter account")
	}
	candidate := users.InterpreterCandidate{User: *account, Profile: *profile}

	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending bookings")
	}

	result := make([]BookingDTO, 0, len(pending))
	for i := range pending {
		booking := &pending[i]
		blacklist, err := s.users.BlacklistedInterpreterIDs(ctx, booking.CustomerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load blacklist")
		}
		blocked := make(map[uuid.UUID]struct{}, len(blacklist))
		for _, id := range blacklist {
			blocked[id] = struct{}{}
		}
		if matching.IsEligible(matching.RequirementsFromBooking(booking), candidate, blocked) {
			result = append(result, *FromModel(booking))
		}
	}
	return result, nil
}

func (s *Service) findBooking(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	return booking, nil
}

func (s *Service) authorize(actor ActingUser, booking *models.Booking) error {
	if actor.IsOperator() {
		return nil
	}
	if booking.CustomerID == actor.ID {
		return nil
	}
	if booking.InterpreterID != nil && *booking.InterpreterID == actor.ID {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this booking")
}

func (s *Service) actorRef(actor ActingUser) *outbox.ActorRef {
	if actor.ID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.ID, Role: string(actor.Role)}
}

func newIntent(eventType enums.OutboxEventType, bookingID uuid.UUID, data interface{}) notifications.Intent {
	return notifications.Intent{EventType: eventType, BookingID: bookingID, Data: data}
}

// emitIntents writes state-machine intents to the outbox within the booking
// transaction.
func (s *Service) emitIntents(ctx context.Context, tx *gorm.DB, actor ActingUser, intents []notifications.Intent) error {
	ref := s.actorRef(actor)
	for _, intent := range intents {
		if err := s.outbox.Emit(ctx, tx, intent.ToDomainEvent(ref)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue notification")
		}
	}
	return nil
}

func (s *Service) recordStatusChange(ctx context.Context, tx *gorm.DB, booking *models.Booking, from enums.BookingStatus, actor ActingUser, comment *string) error {
	role := actor.Role
	change := &models.StatusChange{
		BookingID:  booking.ID,
		FromStatus: from,
		ToStatus:   booking.Status,
		Comment:    comment,
	}
	if actor.ID != uuid.Nil {
		actorID := actor.ID
		change.ActorID = &actorID
		change.ActorRole = &role
	}
	return s.repo.WithTx(tx).InsertStatusChange(ctx, change)
}
