package cron

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/nordtolk-backend/internal/bookings"
	"github.com/nordtolk/nordtolk-backend/pkg/db"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/payloads"
)

const defaultExpiryBatchSize = 100

// BookingExpiryJob times out pending bookings whose acceptance window has
// closed. Each booking moves in its own transaction so one bad row cannot
// stall the rest of the batch.
type BookingExpiryJob struct {
	db     *db.Client
	repo   *bookings.Repository
	outbox *outbox.Service
	batch  int
	logg   *logger.Logger
	now    func() time.Time
}

// NewBookingExpiryJob wires the expiry sweep.
func NewBookingExpiryJob(dbc *db.Client, outboxSvc *outbox.Service, batch int, logg *logger.Logger) (*BookingExpiryJob, error) {
	if dbc == nil {
		return nil, errors.New("database client required")
	}
	if outboxSvc == nil {
		return nil, errors.New("outbox service required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &BookingExpiryJob{
		db:     dbc,
		repo:   bookings.NewRepository(dbc.DB()),
		outbox: outboxSvc,
		batch:  batch,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *BookingExpiryJob) Name() string {
	return "booking-expiry"
}

// Run sweeps one batch of expired bookings.
func (j *BookingExpiryJob) Run(ctx context.Context) error {
	now := j.now()
	rows, err := j.repo.FindExpired(ctx, now, j.batch)
	if err != nil {
		return err
	}

	var expired int
	for i := range rows {
		if err := j.expireBooking(ctx, rows[i].ID, now); err != nil {
			logCtx := j.logg.WithBookingID(ctx, rows[i].ID.String())
			j.logg.Error(logCtx, "failed to expire booking", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		j.logg.Info(j.logg.WithField(ctx, "expired", expired), "expired pending bookings")
	}
	return nil
}

func (j *BookingExpiryJob) expireBooking(ctx context.Context, id uuid.UUID, now time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repo.WithTx(tx)
		booking, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		// Someone may have accepted or canceled between the scan and this
		// transaction.
		if booking.Status != enums.BookingStatusPending || booking.WillExpireAt.After(now) {
			return nil
		}

		from := booking.Status
		booking.Status = enums.BookingStatusTimedout
		if err := repo.Save(ctx, booking); err != nil {
			return err
		}

		comment := "acceptance window closed"
		if err := repo.InsertStatusChange(ctx, &models.StatusChange{
			BookingID:  booking.ID,
			FromStatus: from,
			ToStatus:   booking.Status,
			Comment:    &comment,
		}); err != nil {
			return err
		}

		return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingExpired,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Data: payloads.BookingExpiredEvent{
				BookingID:  booking.ID,
				CustomerID: booking.CustomerID,
				ExpiredAt:  booking.WillExpireAt,
			},
			OccurredAt: now,
		})
	})
}
