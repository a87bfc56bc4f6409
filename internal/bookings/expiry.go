package bookings

import (
	"time"

	"github.com/nordtolk/nordtolk-backend/pkg/config"
)

const (
	defaultExpiryGraceHours          = 90
	defaultExpiryLongLeadCutoffHours = 48
)

// WillExpireAt computes when an unaccepted booking times out. Bookings placed
// close to their due time stay open until the session itself; long-lead
// bookings close two days ahead so the customer has time to rebook.
func WillExpireAt(due, from time.Time, cfg config.BookingConfig) time.Time {
	grace := cfg.ExpiryGraceHours
	if grace <= 0 {
		grace = defaultExpiryGraceHours
	}
	cutoff := cfg.ExpiryLongLeadCutoffHours
	if cutoff <= 0 {
		cutoff = defaultExpiryLongLeadCutoffHours
	}

	if due.Sub(from) <= time.Duration(grace)*time.Hour {
		return due
	}
	return due.Add(-time.Duration(cutoff) * time.Hour)
}

// overlaps reports whether two sessions share any part of their time slots.
func overlaps(aDue time.Time, aMins int, bDue time.Time, bMins int) bool {
	aEnd := aDue.Add(time.Duration(aMins) * time.Minute)
	bEnd := bDue.Add(time.Duration(bMins) * time.Minute)
	return aDue.Before(bEnd) && bDue.Before(aEnd)
}
