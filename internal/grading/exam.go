package grading

import "time"

// Question types.
const (
	TypeMultipleChoice = "multiple_choice"
	TypeTrueFalse      = "true_false"
	TypeShortAnswer    = "short_answer"
	TypeEssay          = "essay"
)

// Question is one exam question including its answer key.
type Question struct {
	ID            string      `json:"id"`
	Type          string      `json:"type"`
	Text          string      `json:"text"`
	Options       []string    `json:"options,omitempty"`
	Points        int         `json:"points"`
	Topic         string      `json:"topic"`
	Difficulty    string      `json:"difficulty,omitempty"`
	CorrectAnswer AnswerValue `json:"correct_answer"`
	Explanation   string      `json:"explanation,omitempty"`
}

// PublicQuestion is what a learner sees. It has no answer key fields.
type PublicQuestion struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Text       string   `json:"text"`
	Options    []string `json:"options,omitempty"`
	Points     int      `json:"points"`
	Topic      string   `json:"topic"`
	Difficulty string   `json:"difficulty,omitempty"`
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:         q.ID,
		Type:       q.Type,
		Text:       q.Text,
		Options:    q.Options,
		Points:     q.Points,
		Topic:      q.Topic,
		Difficulty: q.Difficulty,
	}
}

// Settings are per-exam rules.
type Settings struct {
	TimeLimitMinutes int     `json:"time_limit_minutes" yaml:"time_limit_minutes"`
	PassingScore     float64 `json:"passing_score" yaml:"passing_score"`
	AllowRetake      bool    `json:"allow_retake" yaml:"allow_retake"`
}

func DefaultSettings() Settings {
	return Settings{TimeLimitMinutes: 60, PassingScore: 70, AllowRetake: true}
}

// ExamStats are running totals over completed attempts.
type ExamStats struct {
	TotalAttempts int        `json:"total_attempts"`
	AverageScore  float64    `json:"average_score"`
	BestScore     float64    `json:"best_score"`
	WorstScore    float64    `json:"worst_score"`
	LastAttempt   *time.Time `json:"last_attempt,omitempty"`
}

// NewExamStats seeds WorstScore at 100 so the first attempt sets it.
func NewExamStats() ExamStats {
	return ExamStats{WorstScore: 100}
}

// Record folds one completed attempt into the stats.
func (s *ExamStats) Record(percentage float64, at time.Time) {
	s.TotalAttempts++
	n := float64(s.TotalAttempts)
	s.AverageScore = (s.AverageScore*(n-1) + percentage) / n
	s.BestScore = max(s.BestScore, percentage)
	s.WorstScore = min(s.WorstScore, percentage)
	s.LastAttempt = &at
}

// Exam is a set of questions with an answer key.
type Exam struct {
	ID        string     `json:"id"`
	CourseID  string     `json:"course_id"`
	Title     string     `json:"title"`
	Topics    []string   `json:"topics"`
	Questions []Question `json:"questions"`
	Settings  Settings   `json:"settings"`
	Stats     ExamStats  `json:"stats"`
	CreatedAt time.Time  `json:"created_at"`
}

// MaxScore is the sum of question points.
func (e *Exam) MaxScore() int {
	total := 0
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// Answer is one submitted answer.
type Answer struct {
	QuestionID       string      `json:"question_id" yaml:"question_id"`
	Answer           AnswerValue `json:"answer" yaml:"answer"`
	TimeSpentSeconds int         `json:"time_spent_seconds,omitempty" yaml:"time_spent_seconds"`
}

// GradedAnswer is the outcome for one exam question.
type GradedAnswer struct {
	QuestionID       string      `json:"question_id"`
	RawAnswer        AnswerValue `json:"raw_answer"`
	IsCorrect        bool        `json:"is_correct"`
	PointsEarned     int         `json:"points_earned"`
	TimeSpentSeconds int         `json:"time_spent_seconds"`
}

// TopicScore aggregates results for questions sharing a topic.
type TopicScore struct {
	Topic     string `json:"topic"`
	Correct   int    `json:"correct"`
	Total     int    `json:"total"`
	Points    int    `json:"points"`
	MaxPoints int    `json:"max_points"`
}

// Attempt is one run through an exam. It is finalized exactly once.
type Attempt struct {
	ID              string         `json:"id"`
	ExamID          string         `json:"exam_id"`
	CourseID        string         `json:"course_id"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	Answers         []GradedAnswer `json:"answers,omitempty"`
	Score           int            `json:"score"`
	MaxScore        int            `json:"max_score"`
	Percentage      float64        `json:"percentage"`
	Grade           string         `json:"grade,omitempty"`
	Passed          bool           `json:"passed"`
	Topics          []TopicScore   `json:"topics,omitempty"`
	Strengths       []string       `json:"strengths"`
	Weaknesses      []string       `json:"weaknesses"`
	Recommendations []string       `json:"recommendations,omitempty"`
	TimeSpent       int            `json:"time_spent"`
}

// Completed reports whether the attempt has been graded.
func (a *Attempt) Completed() bool { return a.CompletedAt != nil }

// AttemptStart is returned when an attempt begins.
type AttemptStart struct {
	AttemptID        string           `json:"attempt_id"`
	ExamID           string           `json:"exam_id"`
	Title            string           `json:"title"`
	StartedAt        time.Time        `json:"started_at"`
	MaxScore         int              `json:"max_score"`
	TimeLimitMinutes int              `json:"time_limit_minutes"`
	Questions        []PublicQuestion `json:"questions"`
}

// QuestionInput is a question supplied by an import file or the generator.
// An empty ID is assigned on creation.
type QuestionInput struct {
	ID            string      `json:"id" yaml:"id"`
	Type          string      `json:"type" yaml:"type" validate:"required,oneof=multiple_choice true_false short_answer essay"`
	Text          string      `json:"text" yaml:"text" validate:"required,max=1000"`
	Options       []string    `json:"options" yaml:"options"`
	Points        int         `json:"points" yaml:"points" validate:"gt=0"`
	Topic         string      `json:"topic" yaml:"topic"`
	Difficulty    string      `json:"difficulty" yaml:"difficulty"`
	CorrectAnswer AnswerValue `json:"correct_answer" yaml:"correct_answer"`
	Explanation   string      `json:"explanation" yaml:"explanation"`
}

// ExamInput describes an exam to create. A nil Settings uses DefaultSettings.
type ExamInput struct {
	CourseID  string          `json:"course_id" yaml:"course_id" validate:"required"`
	Title     string          `json:"title" yaml:"title"`
	Questions []QuestionInput `json:"questions" yaml:"questions" validate:"required,min=1"`
	Settings  *Settings       `json:"settings" yaml:"settings"`
}
