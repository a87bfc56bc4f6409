package businesshours

import (
	"testing"
	"time"
)

func TestIsNight_WrapsMidnight(t *testing.T) {
	w := Window{NightStart: 22, NightEnd: 7, DayStart: 9}

	cases := []struct {
		hour int
		want bool
	}{
		{21, false},
		{22, true},
		{23, true},
		{0, true},
		{6, true},
		{7, false},
		{12, false},
	}
	for _, tc := range cases {
		at := time.Date(2026, 3, 10, tc.hour, 30, 0, 0, time.UTC)
		if got := w.IsNight(at); got != tc.want {
			t.Errorf("IsNight(hour=%d) = %v, want %v", tc.hour, got, tc.want)
		}
	}
}

func TestIsNight_EmptyWindow(t *testing.T) {
	w := Window{NightStart: 7, NightEnd: 7, DayStart: 9}
	at := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
	if w.IsNight(at) {
		t.Fatal("zero-width window must never match")
	}
}

func TestNextSendTime(t *testing.T) {
	w := Window{NightStart: 22, NightEnd: 7, DayStart: 9}

	day := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	if got := w.NextSendTime(day); !got.Equal(day) {
		t.Fatalf("daytime send must not be deferred, got %v", got)
	}

	lateEvening := time.Date(2026, 3, 10, 23, 15, 0, 0, time.UTC)
	wantNextDay := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	if got := w.NextSendTime(lateEvening); !got.Equal(wantNextDay) {
		t.Fatalf("23:15 send: got %v, want %v", got, wantNextDay)
	}

	earlyMorning := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC)
	wantSameDay := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	if got := w.NextSendTime(earlyMorning); !got.Equal(wantSameDay) {
		t.Fatalf("03:00 send: got %v, want %v", got, wantSameDay)
	}
}
