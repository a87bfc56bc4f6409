package notifications

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/nordtolk/nordtolk-backend/internal/matching"
	"github.com/nordtolk/nordtolk-backend/internal/users"
	"github.com/nordtolk/nordtolk-backend/pkg/businesshours"
	"github.com/nordtolk/nordtolk-backend/pkg/config"
	"github.com/nordtolk/nordtolk-backend/pkg/db/models"
	"github.com/nordtolk/nordtolk-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/nordtolk-backend/pkg/errors"
	"github.com/nordtolk/nordtolk-backend/pkg/i18n"
	"github.com/nordtolk/nordtolk-backend/pkg/logger"
	"github.com/nordtolk/nordtolk-backend/pkg/mailer"
	"github.com/nordtolk/nordtolk-backend/pkg/metrics"
	"github.com/nordtolk/nordtolk-backend/pkg/outbox/payloads"
	"github.com/nordtolk/nordtolk-backend/pkg/push"
	"github.com/nordtolk/nordtolk-backend/pkg/sessiontime"
	"github.com/nordtolk/nordtolk-backend/pkg/sms"
)

// Service turns decoded booking events into outbound messages. Delivery is
// best effort per recipient: one failing gateway call never blocks the other
// messages for the same event, and every attempt leaves a notification row
// behind for the in-app feed.
type Service struct {
	repo     *Repository
	users    *users.Repository
	matcher  matching.Service
	targeter *Targeter
	push     push.Sender
	sms      sms.Sender
	mail     mailer.Sender
	catalog  *i18n.Catalog
	booking  config.BookingConfig
	notify   config.NotifyConfig
	metrics  *metrics.DispatchMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams collects the dispatcher dependencies.
type ServiceParams struct {
	Repo    *Repository
	Users   *users.Repository
	Matcher matching.Service
	Push    push.Sender
	SMS     sms.Sender
	Mail    mailer.Sender
	Catalog *i18n.Catalog
	Booking config.BookingConfig
	Notify  config.NotifyConfig
	Metrics *metrics.DispatchMetrics
	Logger  *logger.Logger
}

// NewService validates the wiring and returns a dispatcher.
func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Repo == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	case p.Users == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	case p.Matcher == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "matching service required")
	case p.Push == nil || p.SMS == nil || p.Mail == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "push, sms and mail senders required")
	case p.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}

	catalog := p.Catalog
	if catalog == nil {
		catalog = i18n.NewCatalog()
	}
	window := businesshours.Window{
		NightStart: p.Notify.NightStartHour,
		NightEnd:   p.Notify.NightEndHour,
		DayStart:   p.Notify.BusinessDayStartHour,
	}
	return &Service{
		repo:     p.Repo,
		users:    p.Users,
		matcher:  p.Matcher,
		targeter: NewTargeter(catalog, window),
		push:     p.Push,
		sms:      p.SMS,
		mail:     p.Mail,
		catalog:  catalog,
		booking:  p.Booking,
		notify:   p.Notify,
		metrics:  p.Metrics,
		logg:     p.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// DispatchReport summarizes one event's delivery outcomes.
type DispatchReport struct {
	Sent       int
	Deferred   int
	Suppressed int
	Failed     int
}

// HandleEvent routes a decoded event payload to its handler. The returned
// error aggregates per-recipient gateway failures; the event was still
// processed for every recipient it could reach.
func (s *Service) HandleEvent(ctx context.Context, payload interface{}) (*DispatchReport, error) {
	report := &DispatchReport{}
	var err error

	switch ev := payload.(type) {
	case *payloads.BookingCreatedEvent:
		err = s.fanOut(ctx, report, ev.BookingID)
	case *payloads.BookingAcceptedEvent:
		err = s.handleAccepted(ctx, report, ev)
	case *payloads.BookingCanceledEvent:
		err = s.handleCanceled(ctx, report, ev)
	case *payloads.BookingReopenedEvent:
		err = s.handleReopened(ctx, report, ev)
	case *payloads.BookingExpiredEvent:
		err = s.handleExpired(ctx, report, ev)
	case *payloads.SessionStartedEvent:
		err = s.recordInApp(ctx, ev.CustomerID, &ev.BookingID, enums.NotificationSessionStarted, map[string]string{
			"started_at": ev.StartedAt.UTC().Format(time.RFC3339),
		})
	case *payloads.SessionEndedEvent:
		err = s.handleSessionEnded(ctx, report, ev)
	case *payloads.SessionReminderDueEvent:
		err = s.handleReminder(ctx, report, ev)
	case *payloads.InterpreterChangedEvent:
		err = s.handleInterpreterChanged(ctx, report, ev)
	case *payloads.ScheduleChangedEvent:
		err = s.handleScheduleChanged(ctx, report, ev)
	case *payloads.LanguageChangedEvent:
		err = s.handleLanguageChanged(ctx, report, ev)
	case *payloads.CustomerNotCallEvent:
		err = s.handleNotCall(ctx, report, ev)
	case *payloads.BookingUpdatedEvent:
		err = s.recordInApp(ctx, ev.CustomerID, &ev.BookingID, enums.NotificationBookingUpdated, map[string]string{
			"old_status": string(ev.OldStatus),
			"new_status": string(ev.NewStatus),
		})
	default:
		return report, pkgerrors.New(pkgerrors.CodeValidation, "unhandled event payload")
	}
	return report, err
}

// fanOut offers a pending booking to every eligible interpreter. Bookings
// that left pending between emit and dispatch are skipped: the offer is
// already stale.
func (s *Service) fanOut(ctx context.Context, report *DispatchReport, bookingID uuid.UUID) error {
	booking, err := s.repo.FindBooking(ctx, bookingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking for fan-out")
	}
	logCtx := s.logg.WithBookingID(ctx, booking.ID.String())
	if booking.Status != enums.BookingStatusPending {
		s.logg.Info(logCtx, "skipping fan-out for non-pending booking")
		return nil
	}

	language, err := s.repo.FindLanguage(ctx, booking.LanguageID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking language")
	}
	candidates, err := s.matcher.EligibleForBooking(ctx, booking)
	if err != nil {
		return err
	}

	messages, suppressed := s.targeter.FanoutMessages(booking, language, candidates, s.now())
	report.Suppressed += suppressed
	for i := 0; i < suppressed; i++ {
		s.metrics.IncSuppressed(string(enums.ChannelPush))
	}

	var errs error
	for _, msg := range messages {
		errs = multierr.Append(errs, s.deliver(ctx, report, msg))
	}
	s.logg.Info(s.logg.WithFields(logCtx, map[string]any{
		"candidates": len(candidates),
		"messages":   len(messages),
		"suppressed": suppressed,
	}), "booking fan-out dispatched")
	return errs
}

func (s *Service) handleAccepted(ctx context.Context, report *DispatchReport, ev *payloads.BookingAcceptedEvent) error {
	booking, err := s.repo.FindBooking(ctx, ev.BookingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load accepted booking")
	}

	ref := ShortRef(ev.BookingID)
	params := i18n.Params{
		"booking_id": ref,
		"date":       ev.Due.Format("2006-01-02"),
		"time":       ev.Due.Format("15:04"),
	}

	var errs error
	errs = multierr.Append(errs, s.emailCustomer(ctx, report, ev.BookingID, ev.CustomerID, enums.NotificationJobAccepted,
		s.catalog.MustRender(i18n.KeyEmailJobAcceptedSubject, params),
		s.catalog.MustRender(i18n.KeyEmailJobAcceptedBody, params),
	))
	errs = multierr.Append(errs, s.emailInterpreter(ctx, report, ev.BookingID, ev.InterpreterID, enums.NotificationJobAccepted,
		s.subjectFor(ref),
		s.catalog.MustRender(i18n.KeyEmailNewInterpreter, params),
	))

	// Acceptance also texts the session details to both parties right away.
	errs = multierr.Append(errs, s.handleReminder(ctx, report, &payloads.SessionReminderDueEvent{
		BookingID:     ev.BookingID,
		CustomerID:    ev.CustomerID,
		InterpreterID: ev.InterpreterID,
		Due:           ev.Due,
		Type:          booking.Type,
		DurationMins:  booking.DurationMins,
	}))
	return errs
}

func (s *Service) handleCanceled(ctx context.Context, report *DispatchReport, ev *payloads.BookingCanceledEvent) error {
	ref := ShortRef(ev.BookingID)
	params := i18n.Params{"booking_id": ref}

	var errs error
	if ev.ReturnedToPool {
		errs = multierr.Append(errs, s.emailCustomer(ctx, report, ev.BookingID, ev.CustomerID, enums.NotificationBookingCanceled,
			s.subjectFor(ref),
			s.catalog.MustRender(i18n.KeyEmailCanceledForReuse, params),
		))
		errs = multierr.Append(errs, s.fanOut(ctx, report, ev.BookingID))
		return errs
	}
	return multierr.Append(errs, s.emailCustomer(ctx, report, ev.BookingID, ev.CustomerID, enums.NotificationBookingCanceled,
		s.subjectFor(ref),
		s.catalog.MustRender(i18n.KeyEmailCanceledCustomer, params),
	))
}

func (s *Service) handleReopened(ctx context.Context, report *DispatchReport, ev *payloads.BookingReopenedEvent) error {
	ref := ShortRef(ev.BookingID)
	params := i18n.Params{
		"booking_id": ref,
		"date":       ev.Due.Format("2006-01-02"),
		"time":       ev.Due.Format("15:04"),
	}

	var errs error
	errs = multierr.Append(errs, s.emailCustomer(ctx, report, ev.BookingID, ev.CustomerID, enums.NotificationBookingReopened,
		s.catalog.MustRender(i18n.KeyEmailReopenedSubject, params),
		s.catalog.MustRender(i18n.KeyEmailReopenedBody, params),
	))
	errs = multierr.Append(errs, s.fanOut(ctx, report, ev.BookingID))
	return errs
}

func (s *Service) handleExpired(ctx context.Context, report *DispatchReport, ev *payloads.BookingExpiredEvent) error {
	params := i18n.Params{
		"booking_id": ShortRef(ev.BookingID),
		"expired_at": ev.ExpiredAt.Format("2006-01-02 15:04"),
	}
	return s.emailCustomer(ctx, report, ev.BookingID, ev.CustomerID, enums.NotificationBookingExpired,
		s.catalog.MustRender(i18n.KeyEmailExpiredSubject, params),
		s.catalog.MustRender(i18n.KeyEmailExpiredBody, params),
	)
}

// handleSessionEnded sends the invoice basis to the customer and the payout
// basis to the interpreter. The payout amount is computed from the recorded
// session time at the configured hourly rate.
func (s *Service) handleSessionEnded(ctx context.Context, report *DispatchReport, ev *payloads.SessionEndedEvent) error {
	booking, err := s.repo.FindBooking(ctx, ev.BookingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load completed booking")
	}
	language, err := s.repo.FindLanguage(ctx, booking.LanguageID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking language")
	}

	minutes, err := sessiontime.ParseMinutes(ev.SessionTime)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse session time")
	}
	rate, err := decimal.NewFromString(s.booking.InterpreterRateSEKPerHour)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "parse interpreter rate")
	}

	ref := ShortRef(ev.BookingID)
	var errs error
	errs = multierr.Append(errs, s.emailCustomer(ctx, report, ev.BookingID, ev.CustomerID, enums.NotificationSessionEndedInvoice,
		s.subjectFor(ref),
		s.catalog.MustRender(i18n.KeyEmailSessionInvoice, i18n.Params{
			"booking_id":   ref,
			"session_time": sessiontime.FormatHoursMins(minutes),
			"language":     language.Name,
		}),
	))
	errs = multierr.Append(errs, s.emailInterpreter(ctx, report, ev.BookingID, ev.InterpreterID, enums.NotificationSessionEndedPayout,
		s.subjectFor(ref),
		s.catalog.MustRender(i18n.KeyEmailSessionPayout, i18n.Params{
			"booking_id":   ref,
			"session_time": sessiontime.FormatHoursMins(minutes),
			"amount":       sessiontime.Payout(minutes, rate).StringFixed(2),
		}),
	))
	return errs
}

// handleReminder texts both parties shortly before the session starts.
// Reminders are time critical and never deferred past quiet hours.
func (s *Service) handleReminder(ctx context.Context, report *DispatchReport, ev *payloads.SessionReminderDueEvent) error {
	booking, err := s.repo.FindBooking(ctx, ev.BookingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking for reminder")
	}
	language, err := s.repo.FindLanguage(ctx, booking.LanguageID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking language")
	}

	text := s.catalog.MustRender(i18n.KeySMSSessionStartRemind, i18n.Params{
		"language": language.Name,
		"medium":   string(ev.Type),
		"date":     ev.Due.Format("2006-01-02"),
		"time":     ev.Due.Format("15:04"),
		"duration": strconv.Itoa(ev.DurationMins),
	})

	var errs error
	for _, userID := range []uuid.UUID{ev.InterpreterID, ev.CustomerID} {
		errs = multierr.Append(errs, s.smsUser(ctx, report, ev.BookingID, userID, enums.NotificationSessionStartReminder, text, booking))
	}
	return errs
}

func (s *Service) handleInterpreterChanged(ctx context.Context, report *DispatchReport, ev *payloads.InterpreterChangedEvent) error {
	booking, err := s.repo.FindBooking(ctx, ev.BookingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	ref := ShortRef(ev.BookingID)

	var errs error
	errs = multierr.Append(errs, s.emailCustomer(ctx, report, ev.BookingID, ev.CustomerID, enums.NotificationInterpreterChanged,
		s.subjectFor(ref),
		s.catalog.MustRender(i18n.KeyEmailChangedInterpreter, i18n.Params{"booking_id": ref}),
	))
	if ev.NewInterpreterID != nil {
		errs = multierr.Append(errs, s.emailInterpreter(ctx, report, ev.BookingID, *ev.NewInterpreterID, enums.NotificationInterpreterChanged,
			s.subjectFor(ref),
			s.catalog.MustRender(i18n.KeyEmailNewInterpreter, i18n.Params{
				"booking_id": ref,
				"date":       booking.Due.Format("2006-01-02"),
				"time":       booking.Due.Format("15:04"),
			}),
		))
	}
	return errs
}

func (s *Service) handleScheduleChanged(ctx context.Context, report *DispatchReport, ev *payloads.ScheduleChangedEvent) error {
	ref := ShortRef(ev.BookingID)
	body := s.catalog.MustRender(i18n.KeyEmailChangedDate, i18n.Params{
		"booking_id": ref,
		"old_time":   ev.OldDue.Format("2006-01-02 15:04"),
		"new_time":   ev.NewDue.Format("2006-01-02 15:04"),
	})

	var errs error
	errs = multierr.Append(errs, s.emailCustomer(ctx, report, ev.BookingID, ev.CustomerID, enums.NotificationScheduleChanged, s.subjectFor(ref), body))
	if ev.InterpreterID != nil {
		errs = multierr.Append(errs, s.emailInterpreter(ctx, report, ev.BookingID, *ev.InterpreterID, enums.NotificationScheduleChanged, s.subjectFor(ref), body))
	}
	return errs
}

func (s *Service) handleLanguageChanged(ctx context.Context, report *DispatchReport, ev *payloads.LanguageChangedEvent) error {
	oldLang, err := s.repo.FindLanguage(ctx, ev.OldLanguageID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load old language")
	}
	newLang, err := s.repo.FindLanguage(ctx, ev.NewLanguageID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load new language")
	}

	ref := ShortRef(ev.BookingID)
	body := s.catalog.MustRender(i18n.KeyEmailChangedLang, i18n.Params{
		"booking_id": ref,
		"old_lang":   oldLang.Name,
		"new_lang":   newLang.Name,
	})

	var errs error
	errs = multierr.Append(errs, s.emailCustomer(ctx, report, ev.BookingID, ev.CustomerID, enums.NotificationLanguageChanged, s.subjectFor(ref), body))
	if ev.InterpreterID != nil {
		errs = multierr.Append(errs, s.emailInterpreter(ctx, report, ev.BookingID, *ev.InterpreterID, enums.NotificationLanguageChanged, s.subjectFor(ref), body))
	}
	return errs
}

// handleNotCall alerts the booking office that the customer never called.
// The row is attributed to the interpreter whose payout the report affects.
func (s *Service) handleNotCall(ctx context.Context, report *DispatchReport, ev *payloads.CustomerNotCallEvent) error {
	ref := ShortRef(ev.BookingID)
	return s.deliver(ctx, report, Message{
		UserID:    ev.InterpreterID,
		BookingID: &ev.BookingID,
		Type:      enums.NotificationCustomerNotCall,
		Channel:   enums.ChannelEmail,
		Subject:   s.subjectFor(ref),
		Body:      s.catalog.MustRender(i18n.KeyEmailNotCarriedOut, i18n.Params{"booking_id": ref}),
		To:        s.notify.AdminEmail,
	})
}

func (s *Service) emailCustomer(ctx context.Context, report *DispatchReport, bookingID, customerID uuid.UUID, typ enums.NotificationType, subject, body string) error {
	customer, err := s.users.FindByID(ctx, customerID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	to := customer.Email
	booking, err := s.repo.FindBooking(ctx, bookingID)
	if err == nil && booking.CustomerEmail != nil && *booking.CustomerEmail != "" {
		// A contact email on the booking overrides the account email.
		to = *booking.CustomerEmail
	}
	return s.deliver(ctx, report, Message{
		UserID:    customerID,
		BookingID: &bookingID,
		Type:      typ,
		Channel:   enums.ChannelEmail,
		Subject:   subject,
		Body:      body,
		To:        to,
		ToName:    customer.Name,
	})
}

func (s *Service) emailInterpreter(ctx context.Context, report *DispatchReport, bookingID, interpreterID uuid.UUID, typ enums.NotificationType, subject, body string) error {
	profile, err := s.users.FindProfile(ctx, interpreterID)
	if err == nil && profile.NotGetEmail {
		report.Suppressed++
		s.metrics.IncSuppressed(string(enums.ChannelEmail))
		return nil
	}
	interpreter, err := s.users.FindByID(ctx, interpreterID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load interpreter")
	}
	return s.deliver(ctx, report, Message{
		UserID:    interpreterID,
		BookingID: &bookingID,
		Type:      typ,
		Channel:   enums.ChannelEmail,
		Subject:   subject,
		Body:      body,
		To:        interpreter.Email,
		ToName:    interpreter.Name,
	})
}

func (s *Service) smsUser(ctx context.Context, report *DispatchReport, bookingID, userID uuid.UUID, typ enums.NotificationType, text string, booking *models.Booking) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sms recipient")
	}
	to := ""
	if user.Phone != nil {
		to = *user.Phone
	}
	if userID == booking.CustomerID && booking.CustomerPhone != nil && *booking.CustomerPhone != "" {
		to = *booking.CustomerPhone
	}
	if to == "" {
		report.Suppressed++
		s.metrics.IncSuppressed(string(enums.ChannelSMS))
		return nil
	}
	return s.deliver(ctx, report, Message{
		UserID:    userID,
		BookingID: &bookingID,
		Type:      typ,
		Channel:   enums.ChannelSMS,
		Body:      text,
		To:        to,
		ToName:    user.Name,
	})
}

// deliver persists the notification row and pushes the message through its
// gateway. Deferred SMS and email stay in the table until the cron release;
// push defers at the gateway, which supports scheduled sends natively.
func (s *Service) deliver(ctx context.Context, report *DispatchReport, msg Message) error {
	row := &models.Notification{
		BookingID: msg.BookingID,
		UserID:    msg.UserID,
		Type:      msg.Type,
		Channel:   msg.Channel,
		Status:    enums.DeliveryStatusPending,
		Payload:   marshalPayload(msg),
		SendAfter: msg.SendAfter,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist notification")
	}

	if msg.SendAfter != nil && msg.Channel != enums.ChannelPush {
		if err := s.repo.MarkDeferred(ctx, row.ID, *msg.SendAfter); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "defer notification")
		}
		report.Deferred++
		s.metrics.IncDeferred(string(msg.Channel))
		return nil
	}

	var sendErr error
	switch msg.Channel {
	case enums.ChannelPush:
		sendErr = s.push.Send(ctx, push.Notification{
			UserIDs:        []string{msg.UserID.String()},
			Heading:        msg.Subject,
			Message:        msg.Body,
			Data:           msg.Data,
			EmergencySound: msg.Emergency,
			SendAfter:      msg.SendAfter,
		})
	case enums.ChannelSMS:
		sendErr = s.sms.Send(ctx, sms.Message{To: msg.To, Text: msg.Body})
	case enums.ChannelEmail:
		sendErr = s.mail.Send(ctx, mailer.Message{
			To:      msg.To,
			ToName:  msg.ToName,
			Subject: msg.Subject,
			Body:    msg.Body,
		})
	default:
		sendErr = pkgerrors.New(pkgerrors.CodeInternal, "unknown notification channel")
	}

	if sendErr != nil {
		if markErr := s.repo.MarkFailed(ctx, row.ID, sendErr.Error()); markErr != nil {
			s.logg.Error(ctx, "marking notification failed", markErr)
		}
		report.Failed++
		s.metrics.IncFailed(string(msg.Channel))
		return sendErr
	}

	if err := s.repo.MarkSent(ctx, row.ID, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification sent")
	}
	if msg.SendAfter != nil {
		// Push defers at the gateway; the message is queued, not delivered.
		report.Deferred++
		s.metrics.IncDeferred(string(msg.Channel))
		return nil
	}
	report.Sent++
	s.metrics.IncSent(string(msg.Channel))
	return nil
}

// recordInApp stores a feed-only notification without any gateway delivery.
func (s *Service) recordInApp(ctx context.Context, userID uuid.UUID, bookingID *uuid.UUID, typ enums.NotificationType, data map[string]string) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode notification payload")
	}
	row := &models.Notification{
		BookingID: bookingID,
		UserID:    userID,
		Type:      typ,
		Channel:   enums.ChannelPush,
		Status:    enums.DeliveryStatusSent,
		Payload:   payload,
	}
	now := s.now()
	row.SentAt = &now
	if err := s.repo.Create(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist in-app notification")
	}
	return nil
}

// subjectFor is the generic email subject for messages whose catalog entry
// is body-only.
func (s *Service) subjectFor(ref string) string {
	return "NordTolk - bokning # " + ref
}

func marshalPayload(msg Message) json.RawMessage {
	payload := map[string]interface{}{"body": msg.Body}
	if msg.Subject != "" {
		payload["subject"] = msg.Subject
	}
	if msg.To != "" {
		payload["to"] = msg.To
	}
	if msg.ToName != "" {
		payload["to_name"] = msg.ToName
	}
	if len(msg.Data) > 0 {
		payload["data"] = msg.Data
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return raw
}

// ReleaseDeferred sends SMS and email rows parked for the quiet-hours window
// once their send_after has passed. Returns the number of rows released;
// gateway failures mark the row failed and are aggregated, never blocking the
// rest of the batch.
func (s *Service) ReleaseDeferred(ctx context.Context, limit int) (int, error) {
	rows, err := s.repo.FindDeferredDue(ctx, s.now(), limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load deferred notifications")
	}

	released := 0
	var errs error
	for i := range rows {
		row := &rows[i]

		var payload struct {
			Subject string `json:"subject"`
			Body    string `json:"body"`
			To      string `json:"to"`
			ToName  string `json:"to_name"`
		}
		if err := json.Unmarshal(row.Payload, &payload); err != nil || payload.To == "" {
			if markErr := s.repo.MarkFailed(ctx, row.ID, "undeliverable deferred payload"); markErr != nil {
				s.logg.Error(ctx, "marking deferred notification failed", markErr)
			}
			s.metrics.IncFailed(string(row.Channel))
			continue
		}

		var sendErr error
		switch row.Channel {
		case enums.ChannelSMS:
			sendErr = s.sms.Send(ctx, sms.Message{To: payload.To, Text: payload.Body})
		case enums.ChannelEmail:
			sendErr = s.mail.Send(ctx, mailer.Message{
				To:      payload.To,
				ToName:  payload.ToName,
				Subject: payload.Subject,
				Body:    payload.Body,
			})
		default:
			// Push schedules at the gateway and never parks here.
			continue
		}

		if sendErr != nil {
			if markErr := s.repo.MarkFailed(ctx, row.ID, sendErr.Error()); markErr != nil {
				s.logg.Error(ctx, "marking deferred notification failed", markErr)
			}
			s.metrics.IncFailed(string(row.Channel))
			errs = multierr.Append(errs, sendErr)
			continue
		}
		if err := s.repo.MarkSent(ctx, row.ID, s.now()); err != nil {
			errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification sent"))
			continue
		}
		released++
		s.metrics.IncSent(string(row.Channel))
	}
	return released, errs
}
