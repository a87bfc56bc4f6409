package notifications

import (
	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox"
)

// Intent is a notification the state machine or update orchestrator wants
// raised. Intents are written to the outbox inside the booking transaction
// and dispatched by the worker, so a slow or failing send never blocks the
// mutation that produced it.
type Intent struct {
	EventType enums.OutboxEventType
	BookingID uuid.UUID
	Data      interface{}
}

// ToDomainEvent converts the intent into an outbox event for the booking
// aggregate.
func (i Intent) ToDomainEvent(actor *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     i.EventType,
		AggregateType: enums.AggregateBooking,
		AggregateID:   i.BookingID,
		Actor:         actor,
		Data:          i.Data,
	}
}
