package spacedrep

import "time"

// ReviewStatus describes where a card stands relative to its review date.
type ReviewStatus string

const (
	ReviewNew       ReviewStatus = "new"
	ReviewScheduled ReviewStatus = "scheduled"
	ReviewDue       ReviewStatus = "due"
	ReviewOverdue   ReviewStatus = "overdue"
)

// OverdueGrace is how long a due card stays "due" before it counts as overdue.
const OverdueGrace = 24 * time.Hour

// Review is the scheduling view of a card. A nil NextReview means the card
// has never been studied.
type Review struct {
	CardID     string
	NextReview *time.Time
}

// IsDue returns true if the card has never been studied or its review date
// has arrived.
func (r Review) IsDue(now time.Time) bool {
	return r.NextReview == nil || !now.Before(*r.NextReview)
}

// OverdueDays returns how many days past due the card is. Returns 0 if not
// yet due or never studied.
func (r Review) OverdueDays(now time.Time) float64 {
	if r.NextReview == nil || now.Before(*r.NextReview) {
		return 0
	}
	return now.Sub(*r.NextReview).Hours() / 24.0
}

// DaysUntilReview returns whole days until the next review, 0 if due.
func (r Review) DaysUntilReview(now time.Time) int {
	if r.IsDue(now) {
		return 0
	}
	return int(r.NextReview.Sub(now).Hours()/24.0) + 1
}

// Status returns the review status for display.
func (r Review) Status(now time.Time) ReviewStatus {
	switch {
	case r.NextReview == nil:
		return ReviewNew
	case !r.IsDue(now):
		return ReviewScheduled
	case now.Sub(*r.NextReview) > OverdueGrace:
		return ReviewOverdue
	default:
		return ReviewDue
	}
}
