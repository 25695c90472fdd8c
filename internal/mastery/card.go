package mastery

import "time"

// Flashcard difficulty labels.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// StudyProgress is the per-card study state. Only the Tracker mutates it.
type StudyProgress struct {
	TimesStudied   int        `json:"times_studied"`
	TimesCorrect   int        `json:"times_correct"`
	TimesIncorrect int        `json:"times_incorrect"`
	MasteryLevel   float64    `json:"mastery_level"`
	LastStudied    *time.Time `json:"last_studied,omitempty"`
	NextReview     *time.Time `json:"next_review,omitempty"`
}

// Flashcard is one card of a deck.
type Flashcard struct {
	ID         string        `json:"id"`
	DeckID     string        `json:"deck_id"`
	CourseID   string        `json:"course_id"`
	Front      string        `json:"front"`
	Back       string        `json:"back"`
	Topic      string        `json:"topic"`
	Difficulty string        `json:"difficulty"`
	Progress   StudyProgress `json:"progress"`
	CreatedAt  time.Time     `json:"created_at"`
}

// DeckStats is derived from the deck's cards and recomputed after every
// study event.
type DeckStats struct {
	TotalStudied   int     `json:"total_studied"`
	TotalCorrect   int     `json:"total_correct"`
	TotalIncorrect int     `json:"total_incorrect"`
	AverageMastery float64 `json:"average_mastery"`
}

// Deck is a collection of cards created together.
type Deck struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	Title      string    `json:"title"`
	Topics     []string  `json:"topics"`
	Difficulty string    `json:"difficulty"`
	CardCount  int       `json:"card_count"`
	Stats      DeckStats `json:"stats"`
	CreatedAt  time.Time `json:"created_at"`
}

// CardInput is a card as supplied by an import file or the generator.
type CardInput struct {
	Front      string `json:"front" yaml:"front" validate:"required,max=1000"`
	Back       string `json:"back" yaml:"back" validate:"required,max=1000"`
	Topic      string `json:"topic" yaml:"topic"`
	Difficulty string `json:"difficulty" yaml:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// DeckInput describes a deck to create along with its cards.
type DeckInput struct {
	CourseID   string      `json:"course_id" yaml:"course_id" validate:"required"`
	Title      string      `json:"title" yaml:"title"`
	Topics     []string    `json:"topics" yaml:"topics"`
	Difficulty string      `json:"difficulty" yaml:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Cards      []CardInput `json:"cards" yaml:"cards" validate:"required,min=1"`
}

// Progress is the course-wide study summary.
type Progress struct {
	CourseID       string  `json:"course_id"`
	TotalCards     int     `json:"total_cards"`
	TotalStudied   int     `json:"total_studied"`
	TotalCorrect   int     `json:"total_correct"`
	Accuracy       float64 `json:"accuracy"`
	AverageMastery float64 `json:"average_mastery"`
	Mastered       int     `json:"mastered"`
	Learning       int     `json:"learning"`
	New            int     `json:"new"`
}

// StudyResult is returned by RecordStudyEvent.
type StudyResult struct {
	CardID       string    `json:"card_id"`
	MasteryLevel float64   `json:"mastery_level"`
	NextReview   time.Time `json:"next_review"`
}

// SessionResult summarizes a recorded study session.
type SessionResult struct {
	DeckID         string    `json:"deck_id"`
	CardsStudied   int       `json:"cards_studied"`
	Correct        int       `json:"correct"`
	Incorrect      int       `json:"incorrect"`
	Accuracy       float64   `json:"accuracy"`
	Recommendation string    `json:"recommendation"`
	Stats          DeckStats `json:"stats"`
}
