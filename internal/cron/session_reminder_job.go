package cron

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/nordtolk-backend/internal/bookings"
	"github.com/nordtolk/nordtolk-backend/pkg/config"
	"github.com/nordtolk/nordtolk-backend/pkg/db"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/payloads"
)

const defaultReminderBatchSize = 100

// SessionReminderJob emits a reminder event for assigned bookings whose
// session starts within the configured lead window. The reminder_sent flag
// keeps the reminder to one per booking even across restarts.
type SessionReminderJob struct {
	db     *db.Client
	repo   *bookings.Repository
	outbox *outbox.Service
	lead   time.Duration
	batch  int
	logg   *logger.Logger
	now    func() time.Time
}

// NewSessionReminderJob wires the reminder sweep.
func NewSessionReminderJob(dbc *db.Client, outboxSvc *outbox.Service, cfg config.BookingConfig, logg *logger.Logger) (*SessionReminderJob, error) {
	if dbc == nil {
		return nil, errors.New("database client required")
	}
	if outboxSvc == nil {
		return nil, errors.New("outbox service required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	lead := time.Duration(cfg.SessionReminderLeadMinutes) * time.Minute
	if lead <= 0 {
		lead = 100 * time.Minute
	}
	return &SessionReminderJob{
		db:     dbc,
		repo:   bookings.NewRepository(dbc.DB()),
		outbox: outboxSvc,
		lead:   lead,
		batch:  defaultReminderBatchSize,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// Name identifies the job in logs and metrics.
func (j *SessionReminderJob) Name() string {
	return "session-reminder"
}

// Run sweeps one batch of bookings entering the reminder window.
func (j *SessionReminderJob) Run(ctx context.Context) error {
	now := j.now()
	rows, err := j.repo.FindDueForReminder(ctx, now, j.lead, j.batch)
	if err != nil {
		return err
	}

	var reminded int
	for i := range rows {
		if err := j.remind(ctx, rows[i].ID, now); err != nil {
			logCtx := j.logg.WithBookingID(ctx, rows[i].ID.String())
			j.logg.Error(logCtx, "failed to queue session reminder", err)
			continue
		}
		reminded++
	}

	if reminded > 0 {
		j.logg.Info(j.logg.WithField(ctx, "reminded", reminded), "queued session reminders")
	}
	return nil
}

func (j *SessionReminderJob) remind(ctx context.Context, id uuid.UUID, now time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repo.WithTx(tx)
		booking, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if booking.Status != enums.BookingStatusAssigned || booking.ReminderSent || booking.InterpreterID == nil {
			return nil
		}

		if err := j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSessionReminderDue,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Data: payloads.SessionReminderDueEvent{
				BookingID:     booking.ID,
				CustomerID:    booking.CustomerID,
				InterpreterID: *booking.InterpreterID,
				Due:           booking.Due,
				Type:          booking.Type,
				DurationMins:  booking.DurationMins,
			},
			OccurredAt: now,
		}); err != nil {
			return err
		}

		return repo.MarkReminderSent(ctx, booking.ID)
	})
}
