package grading

import (
	"fmt"
	"strings"
	"time"
)

var gradeTable = []struct {
	min   float64
	grade string
}{
	{97, "A+"},
	{93, "A"},
	{90, "A-"},
	{87, "B+"},
	{83, "B"},
	{80, "B-"},
	{77, "C+"},
	{73, "C"},
	{70, "C-"},
	{67, "D"},
}

// Grade maps a percentage to a letter grade, top-down.
func Grade(percentage float64) string {
	for _, row := range gradeTable {
		if percentage >= row.min {
			return row.grade
		}
	}
	return "F"
}

// CheckAnswer reports whether answer is correct for q. Grading is binary.
//
//   - true_false compares the raw literal, no folding
//   - multiple_choice, or any question with options, compares trimmed text
//     ignoring case
//   - short_answer and essay accept containment in either direction after
//     trimming and lower-casing; a blank on either side is wrong
func CheckAnswer(q Question, answer AnswerValue) bool {
	if answer.IsZero() || q.CorrectAnswer.IsZero() {
		return false
	}
	switch {
	case q.Type == TypeTrueFalse:
		return answer.Equal(q.CorrectAnswer)
	case q.Type == TypeMultipleChoice || len(q.Options) > 0:
		return strings.EqualFold(strings.TrimSpace(answer.String()), strings.TrimSpace(q.CorrectAnswer.String()))
	case q.Type == TypeShortAnswer || q.Type == TypeEssay:
		given, want := answer.normalized(), q.CorrectAnswer.normalized()
		if given == "" || want == "" {
			return false
		}
		return strings.Contains(given, want) || strings.Contains(want, given)
	default:
		return strings.EqualFold(strings.TrimSpace(answer.String()), strings.TrimSpace(q.CorrectAnswer.String()))
	}
}

// checkAnswers rejects answers for unknown questions and repeated answers
// to the same question.
func checkAnswers(exam *Exam, answers []Answer) []string {
	known := make(map[string]bool, len(exam.Questions))
	for _, q := range exam.Questions {
		known[q.ID] = true
	}
	var problems []string
	seen := make(map[string]bool, len(answers))
	for i, a := range answers {
		switch {
		case !known[a.QuestionID]:
			problems = append(problems, fmt.Sprintf("answers[%d]: unknown question %q", i, a.QuestionID))
		case seen[a.QuestionID]:
			problems = append(problems, fmt.Sprintf("answers[%d]: question %q answered twice", i, a.QuestionID))
		}
		seen[a.QuestionID] = true
	}
	return problems
}

// score grades every exam question against the submitted answers and fills
// in the attempt's results. Unanswered questions earn nothing.
func score(exam *Exam, att *Attempt, answers []Answer, now time.Time) {
	byID := make(map[string]Answer, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a
	}

	att.Answers = make([]GradedAnswer, 0, len(exam.Questions))
	att.Score = 0
	topicIdx := make(map[string]int)
	att.Topics = nil
	var strengths, weaknesses topicSet

	for _, q := range exam.Questions {
		a := byID[q.ID]
		ok := CheckAnswer(q, a.Answer)
		earned := 0
		if ok {
			earned = q.Points
		}
		att.Score += earned
		att.Answers = append(att.Answers, GradedAnswer{
			QuestionID:       q.ID,
			RawAnswer:        a.Answer,
			IsCorrect:        ok,
			PointsEarned:     earned,
			TimeSpentSeconds: a.TimeSpentSeconds,
		})

		i, seen := topicIdx[q.Topic]
		if !seen {
			i = len(att.Topics)
			topicIdx[q.Topic] = i
			att.Topics = append(att.Topics, TopicScore{Topic: q.Topic})
		}
		ts := &att.Topics[i]
		ts.Total++
		ts.MaxPoints += q.Points
		if ok {
			ts.Correct++
			ts.Points += earned
			strengths.add(q.Topic)
		} else {
			weaknesses.add(q.Topic)
		}
	}

	att.Percentage = 0
	if att.MaxScore > 0 {
		att.Percentage = 100 * float64(att.Score) / float64(att.MaxScore)
	}
	att.Grade = Grade(att.Percentage)
	att.Passed = att.Percentage >= exam.Settings.PassingScore
	att.Strengths = strengths.list()
	att.Weaknesses = weaknesses.list()
	att.Recommendations = recommendations(att.Percentage, att.Weaknesses)

	completed := now
	att.CompletedAt = &completed
	att.TimeSpent = max(0, int(now.Sub(att.StartedAt)/time.Second))
}

// MaxWeakTopicsNamed caps how many weak topics a recommendation lists.
const MaxWeakTopicsNamed = 3

func recommendations(percentage float64, weaknesses []string) []string {
	var recs []string
	if percentage < 70 {
		recs = append(recs, "Review the course material on the topics you missed before your next attempt.")
	}
	if len(weaknesses) > 0 {
		named := weaknesses[:min(len(weaknesses), MaxWeakTopicsNamed)]
		recs = append(recs, "Focus your study on: "+strings.Join(named, ", ")+".")
	}
	switch {
	case percentage >= 85:
		recs = append(recs, "Excellent work. Try more challenging material next.")
	case percentage >= 70:
		recs = append(recs, "Good progress. Go over the questions you missed to close the gaps.")
	}
	return recs
}

// topicSet keeps first-seen order.
type topicSet struct {
	seen  map[string]bool
	order []string
}

func (s *topicSet) add(t string) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if !s.seen[t] {
		s.seen[t] = true
		s.order = append(s.order, t)
	}
}

// list never returns nil so empty lists serialize as [].
func (s *topicSet) list() []string {
	if s.order == nil {
		return []string{}
	}
	return s.order
}
