package spacedrep

import (
	"math"
	"time"
)

// PointsPerDay is how much mastery buys one extra day before the next review.
const PointsPerDay = 20.0

// MaxIntervalDays is the longest interval the schedule produces (mastery 100).
const MaxIntervalDays = 5

// IntervalDays returns ceil(mastery/20), clamped to [0, MaxIntervalDays].
// Zero means the card is due again immediately.
func IntervalDays(mastery float64) int {
	if mastery <= 0 || math.IsNaN(mastery) {
		return 0
	}
	days := int(math.Ceil(mastery / PointsPerDay))
	if days > MaxIntervalDays {
		return MaxIntervalDays
	}
	return days
}

// NextReview returns the review time for a card studied at now.
// The result is never before now.
func NextReview(now time.Time, mastery float64) time.Time {
	return now.AddDate(0, 0, IntervalDays(mastery))
}
