package model

import (
	"fmt"
	"strings"
	"time"
)

// Settings holds the user-tunable behavior of the interception pipeline.
type Settings struct {
	QuietHours    *QuietHours `json:"quietHours,omitempty"`
	EnabledSites  []string    `json:"enabledSites"`
	FrictionLevel int         `json:"frictionLevel"` // 1..5
	Notifications bool        `json:"notifications"`
}

// DefaultSettings returns the settings applied before the user configures
// anything. An empty site list means every site is eligible.
func DefaultSettings() Settings {
	return Settings{
		FrictionLevel: 3,
		EnabledSites:  nil,
		QuietHours:    nil,
		Notifications: true,
	}
}

// SiteEnabled reports whether detection should run for the given hostname.
// Matching is by substring so "amazon" covers regional storefronts. An empty
// list enables all sites.
func (s Settings) SiteEnabled(hostname string) bool {
	if len(s.EnabledSites) == 0 {
		return true
	}
	hostname = strings.ToLower(hostname)
	for _, site := range s.EnabledSites {
		if site == "" {
			continue
		}
		if strings.Contains(hostname, strings.ToLower(site)) {
			return true
		}
	}
	return false
}

// QuietHours is a daily window during which no interception happens.
// Windows may wrap around midnight (e.g. 22:00-06:00).
type QuietHours struct {
	Start string `json:"start"` // "HH:MM"
	End   string `json:"end"`   // "HH:MM"
}

// Contains reports whether t falls inside the window.
func (q *QuietHours) Contains(t time.Time) bool {
	if q == nil {
		return false
	}
	start, err := parseClock(q.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(q.End)
	if err != nil {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	if start <= end {
		return minute >= start && minute < end
	}
	// Wraparound window, e.g. 22:00-06:00.
	return minute >= start || minute < end
}

func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return h*60 + m, nil
}

// FinancialGoal is a savings target the user is working toward.
type FinancialGoal struct {
	CreatedAt    time.Time `json:"createdAt"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	TargetAmount float64   `json:"targetAmount"`
	SavedAmount  float64   `json:"savedAmount"`
}

// CoolingOffItem is a product the user deferred instead of buying.
type CoolingOffItem struct {
	AddedAt     time.Time   `json:"addedAt"`
	ReviewAfter time.Time   `json:"reviewAfter"`
	ID          string      `json:"id"`
	Product     ProductInfo `json:"product"`
	EventID     string      `json:"eventId"`
}

// Stats tracks running savings counters. SavedToday resets when Day changes.
type Stats struct {
	Day        string  `json:"day"` // "2006-01-02"
	SavedToday float64 `json:"savedToday"`
	SavedTotal float64 `json:"savedTotal"`
	Streak     int     `json:"streak"`
}
