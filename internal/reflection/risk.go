// Package reflection obtains reflective questions for a detected purchase:
// remotely through the proxy when it is reachable, locally from a fixed pool
// when it is not. Nothing in this package ever surfaces an error to the
// shopper.
package reflection

import (
	"time"

	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/service"
)

// DayPart buckets a local time for the risk model.
type DayPart string

// Day parts. Only the two night buckets score.
const (
	DayPartDay       DayPart = "day"
	DayPartNight     DayPart = "night"
	DayPartLateNight DayPart = "late_night"
)

// PartOfDay classifies a local timestamp. Late night is midnight to 05:00;
// night is 21:00 to midnight.
func PartOfDay(t time.Time) DayPart {
	switch hour := t.Hour(); {
	case hour < 5:
		return DayPartLateNight
	case hour >= 21:
		return DayPartNight
	default:
		return DayPartDay
	}
}

// ClassifyRisk scores a purchase deterministically. The proxy runs the
// identical logic server-side; keeping the two in lockstep means the
// fallback path never changes the user-visible risk level.
//
// Additive factors: late night +2 / night +1; more than 3 recent
// same-category purchases +2, more than 1 +1; friction preference >=4 +1;
// price over 200 +2, over 50 +1. Score >=4 is high, >=2 medium, else low.
func ClassifyRisk(product model.ProductInfo, rc service.ReflectionContext) model.RiskLevel {
	score := 0

	switch PartOfDay(rc.LocalTime) {
	case DayPartLateNight:
		score += 2
	case DayPartNight:
		score++
	}

	switch {
	case rc.RecentPurchaseCount > 3:
		score += 2
	case rc.RecentPurchaseCount > 1:
		score++
	}

	if rc.FrictionLevel >= 4 {
		score++
	}

	switch {
	case product.Price > 200:
		score += 2
	case product.Price > 50:
		score++
	}

	switch {
	case score >= 4:
		return model.RiskHigh
	case score >= 2:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}
