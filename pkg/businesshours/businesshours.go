package businesshours

import "time"

// Window describes the local-time policy for deferring non-urgent messages.
// NightStart/NightEnd define the quiet hours (the window wraps midnight when
// NightStart > NightEnd). DayStart is the hour deferred messages are released.
type Window struct {
	NightStart int
	NightEnd   int
	DayStart   int
}

// IsNight reports whether t falls inside the quiet hours.
func (w Window) IsNight(t time.Time) bool {
	hour := t.Hour()
	if w.NightStart == w.NightEnd {
		return false
	}
	if w.NightStart > w.NightEnd {
		return hour >= w.NightStart || hour < w.NightEnd
	}
	return hour >= w.NightStart && hour < w.NightEnd
}

// NextSendTime returns t unchanged outside quiet hours, otherwise the next
// DayStart after the quiet window closes.
func (w Window) NextSendTime(t time.Time) time.Time {
	if !w.IsNight(t) {
		return t
	}
	release := time.Date(t.Year(), t.Month(), t.Day(), w.DayStart, 0, 0, 0, t.Location())
	if !release.After(t) {
		release = release.AddDate(0, 0, 1)
	}
	return release
}
