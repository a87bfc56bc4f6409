package sessiontime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatHMS renders an elapsed duration as "hh:mm:ss". Negative durations
// clamp to zero.
func FormatHMS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// ParseMinutes converts an "hh:mm:ss" session time into whole minutes.
// Seconds are ignored; billing granularity is the minute.
func ParseMinutes(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid session time %q, want hh:mm:ss", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("invalid session hours %q", parts[0])
	}
	mins, err := strconv.Atoi(parts[1])
	if err != nil || mins < 0 || mins > 59 {
		return 0, fmt.Errorf("invalid session minutes %q", parts[1])
	}
	if _, err := strconv.Atoi(parts[2]); err != nil {
		return 0, fmt.Errorf("invalid session seconds %q", parts[2])
	}
	return hours*60 + mins, nil
}

// FormatHoursMins renders a minute count for invoice and payout messages.
func FormatHoursMins(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dmin", minutes)
	}
	if minutes == 60 {
		return "1h"
	}
	return fmt.Sprintf("%02dh %02dmin", minutes/60, minutes%60)
}

// Payout returns the interpreter compensation for the session, rounded to
// two decimals (öre).
func Payout(minutes int, ratePerHour decimal.Decimal) decimal.Decimal {
	if minutes <= 0 {
		return decimal.Zero
	}
	return ratePerHour.
		Mul(decimal.NewFromInt(int64(minutes))).
		Div(decimal.NewFromInt(60)).
		Round(2)
}
