package sessiontime

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFormatHMS(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{90 * time.Minute, "01:30:00"},
		{45*time.Minute + 30*time.Second, "00:45:30"},
		{0, "00:00:00"},
		{-time.Hour, "00:00:00"},
		{25 * time.Hour, "25:00:00"},
	}
	for _, tc := range cases {
		if got := FormatHMS(tc.d); got != tc.want {
			t.Errorf("FormatHMS(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestParseMinutes(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"01:30:00", 90, false},
		{"00:45:59", 45, false},
		{"02:00:00", 120, false},
		{"1:05:00", 65, false},
		{"90 minutes", 0, true},
		{"01:75:00", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseMinutes(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMinutes(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMinutes(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMinutes(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatHoursMins(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{30, "30min"},
		{59, "59min"},
		{60, "1h"},
		{61, "01h 01min"},
		{90, "01h 30min"},
		{150, "02h 30min"},
	}
	for _, tc := range cases {
		if got := FormatHoursMins(tc.minutes); got != tc.want {
			t.Errorf("FormatHoursMins(%d) = %q, want %q", tc.minutes, got, tc.want)
		}
	}
}

func TestPayout(t *testing.T) {
	rate := decimal.NewFromInt(340)

	if got := Payout(60, rate); !got.Equal(decimal.NewFromInt(340)) {
		t.Fatalf("one hour payout = %s, want 340", got)
	}
	if got := Payout(90, rate); !got.Equal(decimal.NewFromInt(510)) {
		t.Fatalf("90 min payout = %s, want 510", got)
	}
	// 25 min at 340/h is 141.666..., rounds to 141.67.
	if got := Payout(25, rate); !got.Equal(decimal.RequireFromString("141.67")) {
		t.Fatalf("25 min payout = %s, want 141.67", got)
	}
	if got := Payout(0, rate); !got.Equal(decimal.Zero) {
		t.Fatalf("zero minutes payout = %s, want 0", got)
	}
}
