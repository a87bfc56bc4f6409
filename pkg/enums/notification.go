package enums

import "fmt"

// NotificationChannel is the transport a message goes out on.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelPush  NotificationChannel = "push"
	ChannelSMS   NotificationChannel = "sms"
)

var validNotificationChannels = []NotificationChannel{
	ChannelEmail,
	ChannelPush,
	ChannelSMS,
}

// IsValid reports whether the value matches a known NotificationChannel.
func (n NotificationChannel) IsValid() bool {
	for _, candidate := range validNotificationChannels {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationChannel converts raw input into a NotificationChannel.
func ParseNotificationChannel(value string) (NotificationChannel, error) {
	for _, candidate := range validNotificationChannels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification channel %q", value)
}

// NotificationType names the business reason a message is sent.
type NotificationType string

const (
	NotificationJobPosted            NotificationType = "job_posted"
	NotificationJobAccepted          NotificationType = "job_accepted"
	NotificationBookingUpdated       NotificationType = "booking_updated"
	NotificationSessionStarted       NotificationType = "session_started"
	NotificationSessionStartReminder NotificationType = "session_start_reminder"
	NotificationSessionEndedInvoice  NotificationType = "session_ended_invoice"
	NotificationSessionEndedPayout   NotificationType = "session_ended_payout"
	NotificationBookingCanceled      NotificationType = "booking_canceled"
	NotificationBookingReopened      NotificationType = "booking_reopened"
	NotificationBookingExpired       NotificationType = "booking_expired"
	NotificationInterpreterChanged   NotificationType = "interpreter_changed"
	NotificationScheduleChanged      NotificationType = "schedule_changed"
	NotificationLanguageChanged      NotificationType = "language_changed"
	NotificationCustomerNotCall      NotificationType = "customer_not_call"
)

var validNotificationTypes = []NotificationType{
	NotificationJobPosted,
	NotificationJobAccepted,
	NotificationBookingUpdated,
	NotificationSessionStarted,
	NotificationSessionStartReminder,
	NotificationSessionEndedInvoice,
	NotificationSessionEndedPayout,
	NotificationBookingCanceled,
	NotificationBookingReopened,
	NotificationBookingExpired,
	NotificationInterpreterChanged,
	NotificationScheduleChanged,
	NotificationLanguageChanged,
	NotificationCustomerNotCall,
}

// IsValid reports whether the value matches a known NotificationType.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// DeliveryStatus tracks a message through the dispatcher.
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusSent       DeliveryStatus = "sent"
	DeliveryStatusDeferred   DeliveryStatus = "deferred"
	DeliveryStatusSuppressed DeliveryStatus = "suppressed"
	DeliveryStatusFailed     DeliveryStatus = "failed"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusPending,
	DeliveryStatusSent,
	DeliveryStatusDeferred,
	DeliveryStatusSuppressed,
	DeliveryStatusFailed,
}

// IsValid reports whether the value matches a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
