package matching

import (
	"context"

	"github.com/nordtolk/nordtolk-backend/internal/users"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
)

// Service resolves the set of interpreters a booking may be offered to.
type Service interface {
	EligibleForBooking(ctx context.Context, booking *models.Booking) ([]users.InterpreterCandidate, error)
}

type service struct {
	users *users.Repository
}

// NewService wires the matcher against the users repository.
func NewService(userRepo *users.Repository) (Service, error) {
	if userRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	return &service{users: userRepo}, nil
}

func (s *service) EligibleForBooking(ctx context.Context, booking *models.Booking) ([]users.InterpreterCandidate, error) {
	if booking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking required")
	}

	candidates, err := s.users.ListActiveInterpreters(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list interpreters")
	}

	blacklist, err := s.users.BlacklistedInterpreterIDs(ctx, booking.CustomerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load blacklist")
	}

	return Eligible(RequirementsFromBooking(booking), candidates, blacklist), nil
}
