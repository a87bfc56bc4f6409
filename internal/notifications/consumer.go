package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/idempotency"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/registry"
)

const bookingNotificationConsumer = "booking-notifications"

type dispatcher interface {
	HandleEvent(ctx context.Context, payload interface{}) (*DispatchReport, error)
}

// Consumer watches the booking event stream and hands decoded payloads to the
// dispatcher. Redo-safety comes from the idempotency store: a redelivered
// message whose event was already handled is acked without dispatching twice.
type Consumer struct {
	dispatcher   dispatcher
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *registry.DecoderRegistry
	logg         *logger.Logger
}

// NewConsumer builds the booking notification consumer.
func NewConsumer(svc dispatcher, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("booking subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		dispatcher:   svc,
		subscription: subscription,
		idempotency:  manager,
		decoders:     registry.NewBookingDecoderRegistry(),
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	rawType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	})

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, bookingNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		// A payload we cannot decode will never decode; drop it.
		c.logg.Error(logCtx, "failed to decode payload", err)
		return processResult{ack: true}
	}

	report, err := c.dispatcher.HandleEvent(ctx, payload)
	if err != nil {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeValidation {
			c.logg.Warn(logCtx, "dropping undispatchable event: "+err.Error())
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "notification dispatch failed", err)
		_ = c.idempotency.Delete(ctx, bookingNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"sent":       report.Sent,
		"deferred":   report.Deferred,
		"suppressed": report.Suppressed,
		"failed":     report.Failed,
	}), "booking event dispatched")
	return processResult{ack: true}
}
