package notifications

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/nordtolk-backend/internal/users"
	"github.com/nordtolk/nordtolk-backend/pkg/businesshours"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	"github.com/nordtolk/nordtolk-backend/pkg/i18n"
)

// Message is one rendered message addressed to one recipient on one channel.
// To is the email address or phone number; push is addressed by UserID.
type Message struct {
	UserID    uuid.UUID
	BookingID *uuid.UUID
	Type      enums.NotificationType
	Channel   enums.NotificationChannel
	Subject   string
	Body      string
	To        string
	ToName    string
	Data      map[string]string
	SendAfter *time.Time
	Emergency bool
}

// Targeter renders the interpreter fan-out for an open booking. Delivery
// preferences are applied here so the dispatcher only sees messages that
// should actually go out.
type Targeter struct {
	catalog *i18n.Catalog
	window  businesshours.Window
}

// NewTargeter wires the fan-out renderer.
func NewTargeter(catalog *i18n.Catalog, window businesshours.Window) *Targeter {
	return &Targeter{catalog: catalog, window: window}
}

// FanoutMessages builds the push and SMS offers for every eligible
// interpreter. Suppressed counts candidates dropped by their notification
// preferences. Interpreters who opted out of nighttime messages get their
// offer deferred to the next business-day start; immediate bookings are
// never deferred.
func (t *Targeter) FanoutMessages(booking *models.Booking, language *models.Language, candidates []users.InterpreterCandidate, now time.Time) ([]Message, int) {
	var (
		messages   []Message
		suppressed int
	)

	heading := "NordTolk"
	pushBody := t.pushBody(booking, language)
	data := t.pushData(booking, language)
	smsText := t.smsText(booking, language)

	for _, candidate := range candidates {
		if candidate.Profile.NotGetNotification {
			suppressed++
			continue
		}
		if booking.Immediate && candidate.Profile.NotGetEmergency {
			suppressed++
			continue
		}

		var sendAfter *time.Time
		if !booking.Immediate && candidate.Profile.NotGetNighttime && t.window.IsNight(now) {
			release := t.window.NextSendTime(now)
			sendAfter = &release
		}

		messages = append(messages, Message{
			UserID:    candidate.User.ID,
			BookingID: &booking.ID,
			Type:      enums.NotificationJobPosted,
			Channel:   enums.ChannelPush,
			Subject:   heading,
			Body:      pushBody,
			Data:      data,
			SendAfter: sendAfter,
			Emergency: booking.Immediate,
		})

		if candidate.User.Phone != nil && *candidate.User.Phone != "" {
			messages = append(messages, Message{
				UserID:    candidate.User.ID,
				BookingID: &booking.ID,
				Type:      enums.NotificationJobPosted,
				Channel:   enums.ChannelSMS,
				Body:      smsText,
				To:        *candidate.User.Phone,
				ToName:    candidate.User.Name,
				SendAfter: sendAfter,
				Emergency: booking.Immediate,
			})
		}
	}
	return messages, suppressed
}

func (t *Targeter) pushBody(booking *models.Booking, language *models.Language) string {
	if booking.Immediate {
		return t.catalog.MustRender(i18n.KeyPushNewImmediateBooking, i18n.Params{
			"language": language.Name,
			"duration": strconv.Itoa(booking.DurationMins),
		})
	}
	return t.catalog.MustRender(i18n.KeyPushNewBooking, i18n.Params{
		"language": language.Name,
		"duration": strconv.Itoa(booking.DurationMins),
		"due":      booking.Due.Format("2006-01-02 15:04"),
	})
}

func (t *Targeter) pushData(booking *models.Booking, language *models.Language) map[string]string {
	return map[string]string{
		"job_id":            booking.ID.String(),
		"notification_type": string(enums.NotificationJobPosted),
		"language":          language.Name,
		"due":               booking.Due.UTC().Format(time.RFC3339),
		"duration":          strconv.Itoa(booking.DurationMins),
		"job_for":           strings.Join(jobForTags(booking), ","),
	}
}

func (t *Targeter) smsText(booking *models.Booking, language *models.Language) string {
	params := i18n.Params{
		"date":       booking.Due.Format("2006-01-02"),
		"time":       booking.Due.Format("15:04"),
		"duration":   strconv.Itoa(booking.DurationMins),
		"language":   language.Name,
		"booking_id": ShortRef(booking.ID),
	}
	if booking.Type == enums.BookingTypePhysical && booking.Town != nil {
		params["town"] = *booking.Town
		return t.catalog.MustRender(i18n.KeySMSPhysicalJob, params)
	}
	return t.catalog.MustRender(i18n.KeySMSPhoneJob, params)
}

// jobForTags summarizes the booking requirements for the push payload so the
// app can render filter chips without another round trip.
func jobForTags(booking *models.Booking) []string {
	tags := []string{string(booking.JobType)}
	if booking.Gender != nil {
		tags = append(tags, string(*booking.Gender))
	}
	if booking.Certification != nil {
		tags = append(tags, string(*booking.Certification))
	}
	if booking.Town != nil {
		tags = append(tags, *booking.Town)
	}
	return tags
}

// ShortRef is the human-facing booking reference used in messages.
func ShortRef(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}
