package bookings

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nordtolk/nordtolk-backend/internal/matching"
	"github.com/nordtolk/nordtolk-backend/internal/users"
	"github.com/nordtolk/nordtolk-backend/pkg/config"
	dbpkg "github.com/nordtolk/nordtolk-backend/pkg/db"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox"
)

type fakeLocker struct {
	mu   sync.Mutex
	keys map[string]string
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{keys: map[string]string{}}
}

func (f *fakeLocker) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, held := f.keys[key]; held {
		return false, nil
	}
	f.keys[key] = fmt.Sprint(value)
	return true, nil
}

func (f *fakeLocker) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.keys, key)
	}
	return nil
}

func (f *fakeLocker) LockKey(parts ...string) string {
	return strings.Join(parts, ":")
}

type bookingFixture struct {
	conn   *gorm.DB
	svc    *Service
	users  *users.Repository
	locker *fakeLocker
	langID uuid.UUID
	now    time.Time
}

var bookingTestDDL = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL,
  consumer_type TEXT,
  town TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE interpreter_profiles (
  user_id TEXT PRIMARY KEY,
  type TEXT NOT NULL,
  gender TEXT NOT NULL,
  levels TEXT,
  language_ids TEXT,
  towns TEXT,
  works_in_all_towns INTEGER NOT NULL DEFAULT 0,
  not_get_notification INTEGER NOT NULL DEFAULT 0,
  not_get_nighttime INTEGER NOT NULL DEFAULT 0,
  not_get_emergency INTEGER NOT NULL DEFAULT 0,
  not_get_email INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE languages (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  created_at DATETIME
);`,
	`CREATE TABLE blacklist_entries (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  interpreter_id TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (customer_id, interpreter_id)
);`,
	`CREATE TABLE bookings (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  interpreter_id TEXT,
  language_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  type TEXT NOT NULL,
  job_type TEXT NOT NULL,
  due DATETIME NOT NULL,
  duration_mins INTEGER NOT NULL,
  immediate INTEGER NOT NULL DEFAULT 0,
  gender TEXT,
  certification TEXT,
  town TEXT,
  address TEXT,
  instructions TEXT,
  reference TEXT,
  admin_comments TEXT,
  customer_email TEXT,
  customer_phone TEXT,
  session_time TEXT,
  will_expire_at DATETIME NOT NULL,
  end_at DATETIME,
  withdraw_at DATETIME,
  customer_not_call INTEGER NOT NULL DEFAULT 0,
  fanout_sent INTEGER NOT NULL DEFAULT 0,
  reminder_sent INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE assignments (
  id TEXT PRIMARY KEY,
  booking_id TEXT NOT NULL,
  interpreter_id TEXT NOT NULL,
  canceled_at DATETIME,
  completed_at DATETIME,
  completed_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX uq_assignments_active ON assignments (booking_id)
  WHERE canceled_at IS NULL AND completed_at IS NULL;`,
	`CREATE TABLE status_changes (
  id TEXT PRIMARY KEY,
  booking_id TEXT NOT NULL,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  actor_id TEXT,
  actor_role TEXT,
  comment TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
}

func setupBookingService(t *testing.T) *bookingFixture {
	t.Helper()

	dsn := "file:bookings_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	for _, ddl := range bookingTestDDL {
		require.NoError(t, conn.Exec(ddl).Error)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	userRepo := users.NewRepository(conn)
	matcher, err := matching.NewService(userRepo)
	require.NoError(t, err)
	locker := newFakeLocker()

	svc, err := NewService(ServiceParams{
		DB:      dbpkg.NewWithConn(conn),
		Users:   userRepo,
		Matcher: matcher,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), logg),
		Locker:  locker,
		Config:  config.BookingConfig{},
		Logger:  logg,
	})
	require.NoError(t, err)

	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	lang := models.Language{ID: uuid.New(), Name: "Arabic"}
	require.NoError(t, conn.Create(&lang).Error)

	return &bookingFixture{
		conn:   conn,
		svc:    svc,
		users:  userRepo,
		locker: locker,
		langID: lang.ID,
		now:    now,
	}
}

func (f *bookingFixture) createCustomer(t *testing.T) ActingUser {
	t.Helper()

	consumerType := enums.ConsumerTypePaid
	user, err := f.users.Create(context.Background(), users.CreateUserDTO{
		Email:        "customer-" + uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Name:         "Test Customer",
		Role:         enums.UserRoleCustomer,
		ConsumerType: &consumerType,
	})
	require.NoError(t, err)
	return ActingUser{ID: user.ID, Role: enums.UserRoleCustomer}
}

func (f *bookingFixture) createInterpreter(t *testing.T, languageIDs ...uuid.UUID) ActingUser {
	t.Helper()

	user, err := f.users.Create(context.Background(), users.CreateUserDTO{
		Email:        "interpreter-" + uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Name:         "Test Interpreter",
		Role:         enums.UserRoleInterpreter,
	})
	require.NoError(t, err)

	_, err = f.users.UpsertProfile(context.Background(), users.UpsertProfileDTO{
		UserID:          user.ID,
		Type:            enums.InterpreterTypeProfessional,
		Gender:          enums.GenderFemale,
		Levels:          []enums.InterpreterLevel{enums.LevelCertified},
		LanguageIDs:     languageIDs,
		WorksInAllTowns: true,
	})
	require.NoError(t, err)
	return ActingUser{ID: user.ID, Role: enums.UserRoleInterpreter}
}

func (f *bookingFixture) createBooking(t *testing.T, customer ActingUser, due time.Time) *BookingDTO {
	t.Helper()

	booking, err := f.svc.Create(context.Background(), customer, CreateBookingRequest{
		LanguageID:   f.langID,
		Type:         enums.BookingTypePhone,
		Due:          &due,
		DurationMins: 60,
	})
	require.NoError(t, err)
	return booking
}

func (f *bookingFixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()

	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

func (f *bookingFixture) reloadBooking(t *testing.T, id uuid.UUID) *models.Booking {
	t.Helper()

	var booking models.Booking
	require.NoError(t, f.conn.First(&booking, "id = ?", id).Error)
	return &booking
}

func TestServiceCreateScheduled(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	due := fix.now.Add(72 * time.Hour)

	booking := fix.createBooking(t, customer, due)

	assert.Equal(t, enums.BookingStatusPending, booking.Status)
	assert.Equal(t, enums.JobTypePaid, booking.JobType)
	assert.Equal(t, due, booking.Due)
	// 72h lead is inside the grace window, so the booking holds until due
	assert.Equal(t, due, booking.WillExpireAt)
	assert.Equal(t, int64(1), fix.countEvents(t, enums.EventBookingCreated))
}

func TestServiceCreateLongLeadExpiresEarly(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	due := fix.now.Add(200 * time.Hour)

	booking := fix.createBooking(t, customer, due)

	assert.Equal(t, due.Add(-48*time.Hour), booking.WillExpireAt)
}

func TestServiceCreateImmediate(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)

	booking, err := fix.svc.Create(context.Background(), customer, CreateBookingRequest{
		LanguageID:   fix.langID,
		Immediate:    true,
		DurationMins: 30,
	})
	require.NoError(t, err)

	assert.True(t, booking.Immediate)
	assert.Equal(t, enums.BookingTypePhone, booking.Type)
	assert.Equal(t, fix.now.Add(5*time.Minute), booking.Due)
}

func TestServiceCreateValidation(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	future := fix.now.Add(48 * time.Hour)
	past := fix.now.Add(-time.Hour)

	cases := []struct {
		name string
		req  CreateBookingRequest
	}{
		{"missing language", CreateBookingRequest{Type: enums.BookingTypePhone, Due: &future, DurationMins: 60}},
		{"unknown language", CreateBookingRequest{LanguageID: uuid.New(), Type: enums.BookingTypePhone, Due: &future, DurationMins: 60}},
		{"missing due", CreateBookingRequest{LanguageID: fix.langID, Type: enums.BookingTypePhone, DurationMins: 60}},
		{"due in the past", CreateBookingRequest{LanguageID: fix.langID, Type: enums.BookingTypePhone, Due: &past, DurationMins: 60}},
		{"missing type", CreateBookingRequest{LanguageID: fix.langID, Due: &future, DurationMins: 60}},
		{"missing duration", CreateBookingRequest{LanguageID: fix.langID, Type: enums.BookingTypePhone, Due: &future}},
		{"immediate without duration", CreateBookingRequest{LanguageID: fix.langID, Immediate: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fix.svc.Create(context.Background(), customer, tc.req)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}

	assert.Equal(t, int64(0), fix.countEvents(t, enums.EventBookingCreated),
		"failed creations must not queue events")
}

func TestServiceAccept(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	accepted, err := fix.svc.Accept(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.BookingStatusAssigned, accepted.Status)
	require.NotNil(t, accepted.InterpreterID)
	assert.Equal(t, interpreter.ID, *accepted.InterpreterID)

	var assignments []models.Assignment
	require.NoError(t, fix.conn.Where("booking_id = ?", booking.ID).Find(&assignments).Error)
	require.Len(t, assignments, 1)
	assert.Nil(t, assignments[0].CanceledAt)
	assert.Nil(t, assignments[0].CompletedAt)

	var changes []models.StatusChange
	require.NoError(t, fix.conn.Where("booking_id = ?", booking.ID).Find(&changes).Error)
	require.Len(t, changes, 1)
	assert.Equal(t, enums.BookingStatusPending, changes[0].FromStatus)
	assert.Equal(t, enums.BookingStatusAssigned, changes[0].ToStatus)

	assert.Equal(t, int64(1), fix.countEvents(t, enums.EventBookingAccepted))
}

func TestServiceAcceptSecondInterpreterLoses(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	first := fix.createInterpreter(t, fix.langID)
	second := fix.createInterpreter(t, fix.langID)
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	_, err := fix.svc.Accept(context.Background(), first, booking.ID)
	require.NoError(t, err)

	_, err = fix.svc.Accept(context.Background(), second, booking.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	var count int64
	require.NoError(t, fix.conn.Model(&models.Assignment{}).
		Where("booking_id = ? AND canceled_at IS NULL AND completed_at IS NULL", booking.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count, "the booking must hold a single open assignment")
}

func TestServiceAcceptAssignmentRaceLoserGetsConflict(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	winner := fix.createInterpreter(t, fix.langID)
	loser := fix.createInterpreter(t, fix.langID)
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	// The winner's assignment row is committed but the status flip is not
	// visible yet, so the loser survives the recheck and hits the index.
	require.NoError(t, fix.conn.Create(&models.Assignment{
		ID:            uuid.New(),
		BookingID:     booking.ID,
		InterpreterID: winner.ID,
	}).Error)

	_, err := fix.svc.Accept(context.Background(), loser, booking.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestServiceAcceptIneligible(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, uuid.New()) // speaks a different language
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	_, err := fix.svc.Accept(context.Background(), interpreter, booking.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestServiceAcceptRequiresInterpreterRole(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	_, err := fix.svc.Accept(context.Background(), customer, booking.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestServiceAcceptLockContention(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	lockKey := fix.locker.LockKey("accept", interpreter.ID.String())
	held, err := fix.locker.SetNX(context.Background(), lockKey, "other", time.Second)
	require.NoError(t, err)
	require.True(t, held)

	_, err = fix.svc.Accept(context.Background(), interpreter, booking.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestServiceAcceptOverlapGuard(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	due := fix.now.Add(72 * time.Hour)
	first := fix.createBooking(t, customer, due)
	overlapping := fix.createBooking(t, customer, due.Add(30*time.Minute))
	disjoint := fix.createBooking(t, customer, due.Add(3*time.Hour))

	_, err := fix.svc.Accept(context.Background(), interpreter, first.ID)
	require.NoError(t, err)

	_, err = fix.svc.Accept(context.Background(), interpreter, overlapping.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())

	_, err = fix.svc.Accept(context.Background(), interpreter, disjoint.ID)
	require.NoError(t, err)
}

func TestServiceCancelByCustomerSplitsOnCutoff(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)

	farOut := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))
	canceled, err := fix.svc.Cancel(context.Background(), customer, farOut.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusWithdrawBefore24, canceled.Status)

	near := fix.createBooking(t, customer, fix.now.Add(10*time.Hour))
	canceled, err = fix.svc.Cancel(context.Background(), customer, near.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusWithdrawAfter24, canceled.Status)
	require.NotNil(t, canceled.WithdrawAt)
	assert.Equal(t, fix.now, *canceled.WithdrawAt)

	assert.Equal(t, int64(2), fix.countEvents(t, enums.EventBookingCanceled))
}

func TestServiceCancelAssignedBookingCancelsAssignment(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	_, err := fix.svc.Accept(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)

	canceled, err := fix.svc.Cancel(context.Background(), customer, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusWithdrawBefore24, canceled.Status)

	var open int64
	require.NoError(t, fix.conn.Model(&models.Assignment{}).
		Where("booking_id = ? AND canceled_at IS NULL AND completed_at IS NULL", booking.ID).
		Count(&open).Error)
	assert.Equal(t, int64(0), open)
}

func TestServiceCancelByInterpreterReturnsToPool(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	_, err := fix.svc.Accept(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)

	returned, err := fix.svc.Cancel(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.BookingStatusPending, returned.Status)
	assert.Nil(t, returned.InterpreterID)

	row := fix.reloadBooking(t, booking.ID)
	assert.False(t, row.FanoutSent)
	assert.False(t, row.ReminderSent)

	var open int64
	require.NoError(t, fix.conn.Model(&models.Assignment{}).
		Where("booking_id = ? AND canceled_at IS NULL AND completed_at IS NULL", booking.ID).
		Count(&open).Error)
	assert.Equal(t, int64(0), open)

	assert.Equal(t, int64(1), fix.countEvents(t, enums.EventBookingCanceled))
}

func TestServiceCancelByInterpreterTooClose(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	booking := fix.createBooking(t, customer, fix.now.Add(30*time.Hour))

	_, err := fix.svc.Accept(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)

	// move inside the 24h cutoff
	fix.svc.now = func() time.Time { return fix.now.Add(10 * time.Hour) }

	_, err = fix.svc.Cancel(context.Background(), interpreter, booking.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	row := fix.reloadBooking(t, booking.ID)
	assert.Equal(t, enums.BookingStatusAssigned, row.Status)
}

func TestServiceCancelClosedBooking(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	_, err := fix.svc.Cancel(context.Background(), customer, booking.ID)
	require.NoError(t, err)

	_, err = fix.svc.Cancel(context.Background(), customer, booking.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestServiceSessionLifecycle(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	due := fix.now.Add(72 * time.Hour)
	booking := fix.createBooking(t, customer, due)

	_, err := fix.svc.Accept(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)

	started, err := fix.svc.Start(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusStarted, started.Status)
	assert.Equal(t, int64(1), fix.countEvents(t, enums.EventSessionStarted))

	fix.svc.now = func() time.Time { return due.Add(90 * time.Minute) }

	ended, err := fix.svc.End(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.BookingStatusCompleted, ended.Status)
	require.NotNil(t, ended.SessionTime)
	assert.Equal(t, "01:30:00", *ended.SessionTime)
	require.NotNil(t, ended.EndAt)

	var assignment models.Assignment
	require.NoError(t, fix.conn.First(&assignment, "booking_id = ?", booking.ID).Error)
	require.NotNil(t, assignment.CompletedAt)
	require.NotNil(t, assignment.CompletedBy)
	assert.Equal(t, interpreter.ID, *assignment.CompletedBy)

	assert.Equal(t, int64(1), fix.countEvents(t, enums.EventSessionEnded))

	history, err := fix.svc.History(context.Background(), customer, booking.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, enums.BookingStatusAssigned, history[0].ToStatus)
	assert.Equal(t, enums.BookingStatusStarted, history[1].ToStatus)
	assert.Equal(t, enums.BookingStatusCompleted, history[2].ToStatus)
}

func TestServiceSessionStartRequiresAssignment(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	_, err := fix.svc.Start(context.Background(), interpreter, booking.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestServiceCustomerNotCall(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	_, err := fix.svc.Accept(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)

	closed, err := fix.svc.CustomerNotCall(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.BookingStatusCompleted, closed.Status)
	assert.True(t, closed.CustomerNotCall)
	assert.Equal(t, int64(1), fix.countEvents(t, enums.EventCustomerNotCall))
}

func TestServiceReopenTimedoutClones(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	admin := ActingUser{ID: uuid.New(), Role: enums.UserRoleAdmin}
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))
	require.NoError(t, fix.conn.Model(&models.Booking{}).
		Where("id = ?", booking.ID).
		UpdateColumn("status", enums.BookingStatusTimedout).Error)

	reopened, err := fix.svc.Reopen(context.Background(), admin, booking.ID, "second attempt")
	require.NoError(t, err)

	assert.NotEqual(t, booking.ID, reopened.ID, "timedout bookings reopen as a fresh row")
	assert.Equal(t, enums.BookingStatusPending, reopened.Status)
	assert.Equal(t, booking.Due, reopened.Due)

	original := fix.reloadBooking(t, booking.ID)
	assert.Equal(t, enums.BookingStatusTimedout, original.Status, "the expired row stays in history")

	assert.Equal(t, int64(1), fix.countEvents(t, enums.EventBookingReopened))
}

func TestServiceReopenWithdrawnResetsInPlace(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	admin := ActingUser{ID: uuid.New(), Role: enums.UserRoleAdmin}
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	_, err := fix.svc.Accept(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)
	_, err = fix.svc.Cancel(context.Background(), customer, booking.ID)
	require.NoError(t, err)

	reopened, err := fix.svc.Reopen(context.Background(), admin, booking.ID, "customer changed their mind")
	require.NoError(t, err)

	assert.Equal(t, booking.ID, reopened.ID)
	assert.Equal(t, enums.BookingStatusPending, reopened.Status)
	assert.Nil(t, reopened.InterpreterID)
	assert.Nil(t, reopened.WithdrawAt)
}

func TestServiceReopenGuards(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	admin := ActingUser{ID: uuid.New(), Role: enums.UserRoleAdmin}
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	_, err := fix.svc.Reopen(context.Background(), customer, booking.ID, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = fix.svc.Reopen(context.Background(), admin, booking.ID, "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestServiceUpdateReassignsInterpreter(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	first := fix.createInterpreter(t, fix.langID)
	second := fix.createInterpreter(t, fix.langID)
	admin := ActingUser{ID: uuid.New(), Role: enums.UserRoleAdmin}
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	_, err := fix.svc.Accept(context.Background(), first, booking.ID)
	require.NoError(t, err)

	secondID := second.ID
	result, err := fix.svc.Update(context.Background(), admin, booking.ID, UpdateBookingRequest{
		InterpreterID: &secondID,
	})
	require.NoError(t, err)

	assert.True(t, result.AssignmentChanged)
	require.NotNil(t, result.Booking.InterpreterID)
	assert.Equal(t, second.ID, *result.Booking.InterpreterID)

	var open []models.Assignment
	require.NoError(t, fix.conn.Where(
		"booking_id = ? AND canceled_at IS NULL AND completed_at IS NULL", booking.ID,
	).Find(&open).Error)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].InterpreterID)

	assert.Equal(t, int64(1), fix.countEvents(t, enums.EventInterpreterChanged))
}

func TestServiceUpdateDueChange(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	admin := ActingUser{ID: uuid.New(), Role: enums.UserRoleAdmin}
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	newDue := fix.now.Add(200 * time.Hour)
	result, err := fix.svc.Update(context.Background(), admin, booking.ID, UpdateBookingRequest{
		Due: &newDue,
	})
	require.NoError(t, err)

	assert.True(t, result.DueChanged)
	assert.Equal(t, newDue, result.Booking.Due)
	assert.Equal(t, newDue.Add(-48*time.Hour), result.Booking.WillExpireAt,
		"a moved due date recomputes the expiry window")
	assert.Equal(t, int64(1), fix.countEvents(t, enums.EventScheduleChanged))
}

func TestServiceUpdateUnchangedDueEmitsNothing(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	admin := ActingUser{ID: uuid.New(), Role: enums.UserRoleAdmin}
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	due := booking.Due
	result, err := fix.svc.Update(context.Background(), admin, booking.ID, UpdateBookingRequest{
		Due: &due,
	})
	require.NoError(t, err)

	assert.False(t, result.DueChanged)
	assert.False(t, result.NotificationsSent)
	assert.Equal(t, int64(0), fix.countEvents(t, enums.EventScheduleChanged))
}

func TestServiceUpdateLanguageChange(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	admin := ActingUser{ID: uuid.New(), Role: enums.UserRoleAdmin}
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	other := models.Language{ID: uuid.New(), Name: "Somali"}
	require.NoError(t, fix.conn.Create(&other).Error)

	result, err := fix.svc.Update(context.Background(), admin, booking.ID, UpdateBookingRequest{
		LanguageID: &other.ID,
	})
	require.NoError(t, err)
	assert.True(t, result.LanguageChanged)
	assert.Equal(t, other.ID, result.Booking.LanguageID)
	assert.Equal(t, int64(1), fix.countEvents(t, enums.EventLanguageChanged))

	unknown := uuid.New()
	_, err = fix.svc.Update(context.Background(), admin, booking.ID, UpdateBookingRequest{
		LanguageID: &unknown,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestServiceUpdateEmitsDueThenAssignmentThenLanguage(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	admin := ActingUser{ID: uuid.New(), Role: enums.UserRoleAdmin}
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	other := models.Language{ID: uuid.New(), Name: "Tigrinya"}
	require.NoError(t, fix.conn.Create(&other).Error)

	interpreterID := interpreter.ID
	newDue := fix.now.Add(96 * time.Hour)
	result, err := fix.svc.Update(context.Background(), admin, booking.ID, UpdateBookingRequest{
		InterpreterID: &interpreterID,
		Due:           &newDue,
		LanguageID:    &other.ID,
	})
	require.NoError(t, err)
	assert.True(t, result.AssignmentChanged)
	assert.True(t, result.DueChanged)
	assert.True(t, result.LanguageChanged)

	var events []models.OutboxEvent
	require.NoError(t, fix.conn.
		Where("event_type IN ?", []enums.OutboxEventType{
			enums.EventScheduleChanged, enums.EventInterpreterChanged, enums.EventLanguageChanged,
		}).
		Order("rowid").Find(&events).Error)
	require.Len(t, events, 3)
	assert.Equal(t, enums.EventScheduleChanged, events[0].EventType)
	assert.Equal(t, enums.EventInterpreterChanged, events[1].EventType)
	assert.Equal(t, enums.EventLanguageChanged, events[2].EventType)
}

func TestServiceUpdateStaleDueSkipsChangeNotifications(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	admin := ActingUser{ID: uuid.New(), Role: enums.UserRoleAdmin}
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))
	require.NoError(t, fix.conn.Model(&models.Booking{}).
		Where("id = ?", booking.ID).
		UpdateColumn("due", fix.now.Add(-time.Hour)).Error)

	interpreterID := interpreter.ID
	reference := "ref-1234"
	result, err := fix.svc.Update(context.Background(), admin, booking.ID, UpdateBookingRequest{
		InterpreterID: &interpreterID,
		Reference:     &reference,
	})
	require.NoError(t, err)

	assert.True(t, result.AssignmentChanged, "the edit itself still lands")
	require.NotNil(t, result.Booking.Reference)
	assert.Equal(t, reference, *result.Booking.Reference)
	assert.False(t, result.NotificationsSent)
	assert.Equal(t, int64(0), fix.countEvents(t, enums.EventInterpreterChanged),
		"past-due bookings are saved without change notifications")
}

func TestServiceUpdateStatusLegValidationAborts(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	admin := ActingUser{ID: uuid.New(), Role: enums.UserRoleAdmin}
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	_, err := fix.svc.Accept(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)
	_, err = fix.svc.Start(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)

	status := enums.BookingStatusCompleted
	newDue := fix.now.Add(96 * time.Hour)
	_, err = fix.svc.Update(context.Background(), admin, booking.ID, UpdateBookingRequest{
		Due:    &newDue,
		Status: &status, // started→completed needs a comment and a session time
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	row := fix.reloadBooking(t, booking.ID)
	assert.Equal(t, enums.BookingStatusStarted, row.Status)
	assert.NotEqual(t, newDue, row.Due, "a failed leg rolls back the whole edit")
	assert.Equal(t, int64(0), fix.countEvents(t, enums.EventScheduleChanged))
}

func TestServiceUpdateStatusWithCommentAndSessionTime(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	admin := ActingUser{ID: uuid.New(), Role: enums.UserRoleAdmin}
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	_, err := fix.svc.Accept(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)
	_, err = fix.svc.Start(context.Background(), interpreter, booking.ID)
	require.NoError(t, err)

	status := enums.BookingStatusCompleted
	comment := "closed by support"
	sessionTime := "00:45:00"
	result, err := fix.svc.Update(context.Background(), admin, booking.ID, UpdateBookingRequest{
		Status:        &status,
		AdminComments: &comment,
		SessionTime:   &sessionTime,
	})
	require.NoError(t, err)

	assert.True(t, result.StatusChanged)
	assert.Equal(t, enums.BookingStatusCompleted, result.Booking.Status)
	require.NotNil(t, result.Booking.SessionTime)
	assert.Equal(t, sessionTime, *result.Booking.SessionTime)
	require.NotNil(t, result.Booking.AdminComments)
	assert.Equal(t, comment, *result.Booking.AdminComments)
	assert.Equal(t, int64(1), fix.countEvents(t, enums.EventSessionEnded))
}

func TestServiceUpdateRequiresOperator(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	reference := "ref"
	_, err := fix.svc.Update(context.Background(), customer, booking.ID, UpdateBookingRequest{
		Reference: &reference,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())
}

func TestServiceGetAndListAuthorization(t *testing.T) {
	fix := setupBookingService(t)
	owner := fix.createCustomer(t)
	stranger := fix.createCustomer(t)
	booking := fix.createBooking(t, owner, fix.now.Add(72*time.Hour))

	got, err := fix.svc.Get(context.Background(), owner, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.ID, got.ID)

	_, err = fix.svc.Get(context.Background(), stranger, booking.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	list, err := fix.svc.ListForUser(context.Background(), owner, ListParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	list, err = fix.svc.ListForUser(context.Background(), stranger, ListParams{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestServicePotentialForInterpreter(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	interpreter := fix.createInterpreter(t, fix.langID)
	other := fix.createInterpreter(t, uuid.New())
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	potential, err := fix.svc.PotentialForInterpreter(context.Background(), interpreter.ID)
	require.NoError(t, err)
	require.Len(t, potential, 1)
	assert.Equal(t, booking.ID, potential[0].ID)

	potential, err = fix.svc.PotentialForInterpreter(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Empty(t, potential)
}

func TestServicePotentialExcludesBoundBooking(t *testing.T) {
	fix := setupBookingService(t)
	customer := fix.createCustomer(t)
	named := fix.createInterpreter(t, fix.langID)
	other := fix.createInterpreter(t, fix.langID)
	admin := ActingUser{ID: uuid.New(), Role: enums.UserRoleAdmin}
	booking := fix.createBooking(t, customer, fix.now.Add(72*time.Hour))

	namedID := named.ID
	_, err := fix.svc.Update(context.Background(), admin, booking.ID, UpdateBookingRequest{
		InterpreterID: &namedID,
	})
	require.NoError(t, err)

	row := fix.reloadBooking(t, booking.ID)
	assert.Equal(t, enums.BookingStatusPending, row.Status,
		"an assignment-only edit leaves the status alone")

	potential, err := fix.svc.PotentialForInterpreter(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Empty(t, potential, "a bound booking is not offered to other interpreters")

	potential, err = fix.svc.PotentialForInterpreter(context.Background(), named.ID)
	require.NoError(t, err)
	require.Len(t, potential, 1)
	assert.Equal(t, booking.ID, potential[0].ID)
}
