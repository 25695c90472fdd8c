package spacedrep

import (
	"sort"
	"time"
)

// DueQueue returns the due reviews, most overdue first. Never-studied cards
// come after every studied card that is due; ties keep input order.
func DueQueue(reviews []Review, now time.Time, limit int) []Review {
	var due []Review
	for _, r := range reviews {
		if r.IsDue(now) {
			due = append(due, r)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		ni, nj := due[i].NextReview == nil, due[j].NextReview == nil
		if ni != nj {
			return nj
		}
		return due[i].OverdueDays(now) > due[j].OverdueDays(now)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}
