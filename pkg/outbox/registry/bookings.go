package registry

import (
	"encoding/json"

	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/payloads"
)

// NewBookingDecoderRegistry registers the v1 decoders for every booking
// event. Consumers decode through this so payload schemas stay in one place.
func NewBookingDecoderRegistry() *DecoderRegistry {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventBookingCreated, 1, decodeInto(func() interface{} { return &payloads.BookingCreatedEvent{} }))
	reg.Register(enums.EventBookingUpdated, 1, decodeInto(func() interface{} { return &payloads.BookingUpdatedEvent{} }))
	reg.Register(enums.EventBookingAccepted, 1, decodeInto(func() interface{} { return &payloads.BookingAcceptedEvent{} }))
	reg.Register(enums.EventBookingCanceled, 1, decodeInto(func() interface{} { return &payloads.BookingCanceledEvent{} }))
	reg.Register(enums.EventBookingExpired, 1, decodeInto(func() interface{} { return &payloads.BookingExpiredEvent{} }))
	reg.Register(enums.EventBookingReopened, 1, decodeInto(func() interface{} { return &payloads.BookingReopenedEvent{} }))
	reg.Register(enums.EventSessionStarted, 1, decodeInto(func() interface{} { return &payloads.SessionStartedEvent{} }))
	reg.Register(enums.EventSessionEnded, 1, decodeInto(func() interface{} { return &payloads.SessionEndedEvent{} }))
	reg.Register(enums.EventSessionReminderDue, 1, decodeInto(func() interface{} { return &payloads.SessionReminderDueEvent{} }))
	reg.Register(enums.EventInterpreterChanged, 1, decodeInto(func() interface{} { return &payloads.InterpreterChangedEvent{} }))
	reg.Register(enums.EventScheduleChanged, 1, decodeInto(func() interface{} { return &payloads.ScheduleChangedEvent{} }))
	reg.Register(enums.EventLanguageChanged, 1, decodeInto(func() interface{} { return &payloads.LanguageChangedEvent{} }))
	reg.Register(enums.EventCustomerNotCall, 1, decodeInto(func() interface{} { return &payloads.CustomerNotCallEvent{} }))
	return reg
}

func decodeInto(factory func() interface{}) decoderFunc {
	return func(payload json.RawMessage) (interface{}, error) {
		target := factory()
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, err
		}
		return target, nil
	}
}
