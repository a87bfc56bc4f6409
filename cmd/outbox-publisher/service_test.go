package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/nordtolk-backend/pkg/config"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/registry"
)

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakePubSub struct{}

func (fakePubSub) Ping(context.Context) error            { return nil }
func (fakePubSub) Publisher(string) *gcppubsub.Publisher { return nil }

type fakeOutboxRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (r *fakeOutboxRepo) FetchUnpublishedForPublish(_ *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	out := r.events
	r.events = nil
	return out, nil
}

func (r *fakeOutboxRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *fakeOutboxRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, err error) error {
	r.failed = append(r.failed, id)
	return nil
}

func (r *fakeOutboxRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	r.terminal = append(r.terminal, id)
	return nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (r *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	r.entries = append(r.entries, entry)
	return nil
}

type fakeRegistry struct {
	resolveErr error
}

func (r fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if r.resolveErr != nil {
		return nil, r.resolveErr
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType: event.EventType,
			Topic:     "nt-booking-events",
		},
		Envelope: outbox.PayloadEnvelope{
			Version:    1,
			EventID:    uuid.NewString(),
			OccurredAt: time.Now().UTC(),
		},
	}, nil
}

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) {
	return "msg-1", r.err
}

type fakePublisher struct {
	err       error
	published int
}

func (p *fakePublisher) Publish(context.Context, *gcppubsub.Message) publishResult {
	p.published++
	return fakeResult{err: p.err}
}

func publisherTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard})
}

func publisherTestConfig() *config.Config {
	return &config.Config{
		Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: 3},
	}
}

func testEvent(attempts int) models.OutboxEvent {
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventBookingCreated,
		AggregateType: enums.AggregateBooking,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1}`),
		CreatedAt:     time.Now().UTC(),
		AttemptCount:  attempts,
	}
}

func newTestService(t *testing.T, repo *fakeOutboxRepo, dlq *fakeDLQRepo, reg registryResolver, pub *fakePublisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:     publisherTestConfig(),
		Logger:     publisherTestLogger(),
		DB:         fakeDB{},
		PubSub:     fakePubSub{},
		Repository: repo,
		Registry:   reg,
		PublisherFactory: func(string) publisher {
			return pub
		},
		DLQRepository: dlq,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	event := testEvent(0)
	repo := &fakeOutboxRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQRepo{}
	pub := &fakePublisher{}
	svc := newTestService(t, repo, dlq, fakeRegistry{}, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report processed")
	}
	if pub.published != 1 {
		t.Fatalf("expected 1 publish, got %d", pub.published)
	}
	if len(repo.published) != 1 || repo.published[0] != event.ID {
		t.Fatalf("expected event marked published, got %v", repo.published)
	}
	if len(repo.failed) != 0 || len(repo.terminal) != 0 {
		t.Fatal("unexpected failure marks")
	}
}

func TestProcessBatchEmptyReportsIdle(t *testing.T) {
	repo := &fakeOutboxRepo{}
	svc := newTestService(t, repo, &fakeDLQRepo{}, fakeRegistry{}, &fakePublisher{})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if processed {
		t.Fatal("expected idle batch")
	}
}

func TestProcessBatchRetryableFailureMarksFailed(t *testing.T) {
	event := testEvent(0)
	repo := &fakeOutboxRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{err: errors.New("pubsub unavailable")}
	svc := newTestService(t, repo, &fakeDLQRepo{}, fakeRegistry{}, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(repo.failed) != 1 || repo.failed[0] != event.ID {
		t.Fatalf("expected event marked failed, got %v", repo.failed)
	}
	if len(repo.terminal) != 0 {
		t.Fatal("retryable failure must not go terminal")
	}
}

func TestProcessBatchMaxAttemptsGoesToDLQ(t *testing.T) {
	// MaxAttempts is 3 in the test config, so attempt_count 2 is the last try.
	event := testEvent(2)
	repo := &fakeOutboxRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQRepo{}
	pub := &fakePublisher{err: errors.New("pubsub unavailable")}
	svc := newTestService(t, repo, dlq, fakeRegistry{}, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(repo.terminal) != 1 || repo.terminal[0] != event.ID {
		t.Fatalf("expected event marked terminal, got %v", repo.terminal)
	}
	if len(dlq.entries) != 1 {
		t.Fatalf("expected 1 dlq entry, got %d", len(dlq.entries))
	}
	if dlq.entries[0].ErrorReason != enums.DLQReasonMaxAttemptsExceeded {
		t.Fatalf("unexpected dlq reason %q", dlq.entries[0].ErrorReason)
	}
	if dlq.entries[0].EventID != event.ID {
		t.Fatal("dlq entry must reference the outbox event")
	}
}

func TestProcessBatchNonRetryableGoesToDLQ(t *testing.T) {
	event := testEvent(0)
	repo := &fakeOutboxRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQRepo{}
	pub := &fakePublisher{err: registry.NewNonRetryableError(errors.New("topic deleted"))}
	svc := newTestService(t, repo, dlq, fakeRegistry{}, pub)

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(repo.terminal) != 1 {
		t.Fatalf("expected terminal mark, got %v", repo.terminal)
	}
	if len(repo.failed) != 0 {
		t.Fatal("non-retryable failure must not be retried")
	}
	if len(dlq.entries) != 1 || dlq.entries[0].ErrorReason != enums.DLQReasonNonRetryable {
		t.Fatalf("expected non_retryable dlq entry, got %+v", dlq.entries)
	}
}

func TestProcessBatchUnresolvableEventGoesToDLQ(t *testing.T) {
	event := testEvent(0)
	repo := &fakeOutboxRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQRepo{}
	svc := newTestService(t, repo, dlq, fakeRegistry{resolveErr: errors.New("unknown event type")}, &fakePublisher{})

	if _, err := svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(dlq.entries) != 1 || dlq.entries[0].ErrorReason != enums.DLQReasonInvalidPayload {
		t.Fatalf("expected invalid_payload dlq entry, got %+v", dlq.entries)
	}
	if len(repo.terminal) != 1 {
		t.Fatal("unresolvable event must be marked terminal")
	}
}

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	base := 100 * time.Millisecond
	got := nextBackoff(base, base, time.Second)
	if got != 200*time.Millisecond {
		t.Fatalf("expected 200ms, got %s", got)
	}
	got = nextBackoff(900*time.Millisecond, base, time.Second)
	if got != time.Second {
		t.Fatalf("expected cap at 1s, got %s", got)
	}
}
