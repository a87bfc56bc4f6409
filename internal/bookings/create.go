package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/payloads"
)

// Create places a new booking for the acting customer. Immediate bookings
// are forced to phone sessions due a few minutes out; scheduled bookings
// must carry a future due time, a session type and a duration.
func (s *Service) Create(ctx context.Context, actor ActingUser, req CreateBookingRequest) (*BookingDTO, error) {
	now := s.now()

	customer, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}

	if req.LanguageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "language is required").
			WithDetails(map[string]interface{}{"missing": "language_id"})
	}
	if _, err := s.repo.FindLanguage(ctx, req.LanguageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown language")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load language")
	}

	booking := &models.Booking{
		ID:            uuid.New(),
		CustomerID:    customer.ID,
		LanguageID:    req.LanguageID,
		Status:        enums.BookingStatusPending,
		JobType:       jobTypeForCustomer(customer),
		DurationMins:  req.DurationMins,
		Immediate:     req.Immediate,
		Gender:        req.Gender,
		Certification: req.Certification,
		Town:          req.Town,
		Address:       req.Address,
		Instructions:  req.Instructions,
		Reference:     req.Reference,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if booking.Town == nil {
		booking.Town = customer.Town
	}

	if req.Immediate {
		lead := s.cfg.ImmediateLeadMinutes
		if lead <= 0 {
			lead = 5
		}
		booking.Type = enums.BookingTypePhone
		booking.Due = now.Add(time.Duration(lead) * time.Minute)
		if booking.DurationMins <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration is required").
				WithDetails(map[string]interface{}{"missing": "duration_mins"})
		}
	} else {
		if req.Due == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "due date and time are required").
				WithDetails(map[string]interface{}{"missing": "due"})
		}
		if !req.Due.After(now) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "due must be in the future")
		}
		if !req.Type.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "session type is required").
				WithDetails(map[string]interface{}{"missing": "type"})
		}
		if req.DurationMins <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration is required").
				WithDetails(map[string]interface{}{"missing": "duration_mins"})
		}
		booking.Type = req.Type
		booking.Due = req.Due.UTC()
	}

	if req.Gender != nil && !req.Gender.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid gender preference")
	}
	if req.Certification != nil && !req.Certification.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid certification requirement")
	}

	booking.WillExpireAt = WillExpireAt(booking.Due, now, s.cfg)

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, booking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create booking")
		}
		event := payloads.BookingCreatedEvent{
			BookingID:  booking.ID,
			CustomerID: booking.CustomerID,
			LanguageID: booking.LanguageID,
			JobType:    booking.JobType,
			Type:       booking.Type,
			Due:        booking.Due,
			Immediate:  booking.Immediate,
		}
		return s.outbox.Emit(ctx, tx, newIntent(enums.EventBookingCreated, booking.ID, event).ToDomainEvent(s.actorRef(actor)))
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithBookingID(ctx, booking.ID.String())
	s.logg.Info(logCtx, "booking created")
	return FromModel(booking), nil
}

// jobTypeForCustomer derives the compensation class a customer's bookings
// are published under.
func jobTypeForCustomer(customer *models.User) enums.JobType {
	if customer.ConsumerType == nil {
		return enums.JobTypeUnpaid
	}
	return customer.ConsumerType.JobType()
}
