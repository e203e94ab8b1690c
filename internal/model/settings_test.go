package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func clock(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.Local)
}

func TestQuietHoursContains(t *testing.T) {
	tests := []struct {
		name   string
		window *QuietHours
		at     time.Time
		want   bool
	}{
		{name: "nil window", window: nil, at: clock(12, 0), want: false},
		{
			name:   "inside simple window",
			window: &QuietHours{Start: "09:00", End: "17:00"},
			at:     clock(12, 0),
			want:   true,
		},
		{
			name:   "start is inclusive",
			window: &QuietHours{Start: "09:00", End: "17:00"},
			at:     clock(9, 0),
			want:   true,
		},
		{
			name:   "end is exclusive",
			window: &QuietHours{Start: "09:00", End: "17:00"},
			at:     clock(17, 0),
			want:   false,
		},
		{
			name:   "wraparound late evening",
			window: &QuietHours{Start: "22:00", End: "06:00"},
			at:     clock(23, 30),
			want:   true,
		},
		{
			name:   "wraparound early morning",
			window: &QuietHours{Start: "22:00", End: "06:00"},
			at:     clock(2, 0),
			want:   true,
		},
		{
			name:   "wraparound daytime excluded",
			window: &QuietHours{Start: "22:00", End: "06:00"},
			at:     clock(12, 0),
			want:   false,
		},
		{
			name:   "wraparound end boundary excluded",
			window: &QuietHours{Start: "22:00", End: "06:00"},
			at:     clock(6, 0),
			want:   false,
		},
		{
			name:   "malformed start disables window",
			window: &QuietHours{Start: "25:00", End: "06:00"},
			at:     clock(2, 0),
			want:   false,
		},
		{
			name:   "garbage disables window",
			window: &QuietHours{Start: "night", End: "morning"},
			at:     clock(2, 0),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.window.Contains(tt.at))
		})
	}
}

func TestSiteEnabled(t *testing.T) {
	tests := []struct {
		name     string
		sites    []string
		hostname string
		want     bool
	}{
		{name: "empty list allows all", sites: nil, hostname: "shop.example.com", want: true},
		{name: "substring match", sites: []string{"amazon"}, hostname: "www.amazon.co.uk", want: true},
		{name: "case insensitive", sites: []string{"Amazon"}, hostname: "WWW.AMAZON.COM", want: true},
		{name: "not listed", sites: []string{"amazon", "ebay"}, hostname: "etsy.com", want: false},
		{name: "blank entries ignored", sites: []string{""}, hostname: "etsy.com", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Settings{EnabledSites: tt.sites}
			assert.Equal(t, tt.want, s.SiteEnabled(tt.hostname))
		})
	}
}

func TestOutcomeValid(t *testing.T) {
	assert.True(t, OutcomePending.Valid())
	assert.True(t, OutcomeBought.Valid())
	assert.True(t, OutcomeSaved.Valid())
	assert.True(t, OutcomeCooledOff.Valid())
	assert.False(t, Outcome("returned").Valid())
	assert.False(t, Outcome("").Valid())
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "Widget", TruncateName("  Widget  "))

	long := make([]byte, MaxProductNameLength+50)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, TruncateName(string(long)), MaxProductNameLength)
}
