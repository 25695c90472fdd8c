package mastery

import (
	"time"

	"github.com/abhisek/studyloop/internal/spacedrep"
)

const (
	// LearnRate is the share of the remaining gap to 100 closed by a correct answer.
	LearnRate = 0.3

	// DecayFactor scales mastery after an incorrect answer.
	DecayFactor = 0.7

	// MasteredThreshold and LearningThreshold bound the progress buckets.
	MasteredThreshold = 80.0
	LearningThreshold = 40.0

	// SessionPassAccuracy is the accuracy at which a session earns praise.
	SessionPassAccuracy = 0.8
)

const (
	recommendPass   = "Great job!"
	recommendReview = "Review the incorrect cards again"
)

// Apply returns p after one study event at now. Mastery approaches 100
// exponentially on success and decays multiplicatively on failure; the
// result is clamped to [0, 100].
func Apply(p StudyProgress, correct bool, now time.Time) StudyProgress {
	p.TimesStudied++
	if correct {
		p.TimesCorrect++
		p.MasteryLevel = min(100, p.MasteryLevel+(100-p.MasteryLevel)*LearnRate)
	} else {
		p.TimesIncorrect++
		p.MasteryLevel = max(0, p.MasteryLevel*DecayFactor)
	}

	studied := now
	next := spacedrep.NextReview(now, p.MasteryLevel)
	p.LastStudied = &studied
	p.NextReview = &next
	return p
}

// Aggregate recomputes deck stats from the full card set.
func Aggregate(cards []Flashcard) DeckStats {
	var s DeckStats
	if len(cards) == 0 {
		return s
	}
	var sum float64
	for _, c := range cards {
		s.TotalStudied += c.Progress.TimesStudied
		s.TotalCorrect += c.Progress.TimesCorrect
		s.TotalIncorrect += c.Progress.TimesIncorrect
		sum += c.Progress.MasteryLevel
	}
	s.AverageMastery = sum / float64(len(cards))
	return s
}

// Bucket names where a mastery level falls.
func Bucket(level float64) string {
	switch {
	case level >= MasteredThreshold:
		return "mastered"
	case level >= LearningThreshold:
		return "learning"
	default:
		return "new"
	}
}

func summarize(courseID string, cards []Flashcard) Progress {
	p := Progress{CourseID: courseID, TotalCards: len(cards)}
	stats := Aggregate(cards)
	p.TotalStudied = stats.TotalStudied
	p.TotalCorrect = stats.TotalCorrect
	p.AverageMastery = stats.AverageMastery
	if p.TotalStudied > 0 {
		p.Accuracy = float64(p.TotalCorrect) / float64(p.TotalStudied)
	}
	for _, c := range cards {
		switch Bucket(c.Progress.MasteryLevel) {
		case "mastered":
			p.Mastered++
		case "learning":
			p.Learning++
		default:
			p.New++
		}
	}
	return p
}
