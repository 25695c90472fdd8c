package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/studyloop/internal/errs"
	"github.com/abhisek/studyloop/internal/llm"
	"github.com/abhisek/studyloop/internal/problemgen"
)

type fakeRepo struct {
	mu       sync.Mutex
	exams    []*Exam
	attempts map[string]*Attempt
	failing  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{attempts: make(map[string]*Attempt)}
}

func (r *fakeRepo) CreateExam(_ context.Context, e *Exam) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.exams = append(r.exams, &cp)
	return nil
}

func (r *fakeRepo) GetExam(_ context.Context, id string) (*Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing != nil {
		return nil, r.failing
	}
	for _, e := range r.exams {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) ListExams(_ context.Context, courseID string, limit int) ([]Exam, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Exam
	for i := len(r.exams) - 1; i >= 0; i-- {
		if r.exams[i].CourseID == courseID {
			out = append(out, *r.exams[i])
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) CreateAttempt(_ context.Context, a *Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.attempts[a.ID] = &cp
	return nil
}

func (r *fakeRepo) GetAttempt(_ context.Context, id string) (*Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) CompleteAttempt(_ context.Context, a *Attempt, update func(*ExamStats)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attempts[a.ID].Completed() {
		return errs.AlreadyCompleted("completeAttempt", a.ID)
	}
	cp := *a
	r.attempts[a.ID] = &cp
	for _, e := range r.exams {
		if e.ID == a.ExamID {
			update(&e.Stats)
		}
	}
	return nil
}

var t0 = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

// steppingClock advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur := now
		now = now.Add(step)
		return cur
	}
}

func capitalExam() ExamInput {
	return ExamInput{
		CourseID: "geo",
		Title:    "Capitals",
		Questions: []QuestionInput{
			{ID: "q1", Type: TypeMultipleChoice, Text: "Capital of France?", Options: []string{"Paris", "Lyon"}, Points: 5, Topic: "topic1", CorrectAnswer: Text("Paris"), Explanation: "It is Paris."},
			{ID: "q2", Type: TypeTrueFalse, Text: "Rome is in Italy.", Points: 5, Topic: "topic2", CorrectAnswer: Bool(true)},
		},
	}
}

func TestSubmitAttempt_PerfectScore(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo, WithClock(steppingClock(t0, 90*time.Second)))

	exam, err := svc.CreateExam(ctx, capitalExam())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	start, err := svc.StartAttempt(ctx, exam.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if start.MaxScore != 10 || len(start.Questions) != 2 {
		t.Fatalf("unexpected start %+v", start)
	}

	att, err := svc.SubmitAttempt(ctx, start.AttemptID, []Answer{
		{QuestionID: "q1", Answer: Text("paris")},
		{QuestionID: "q2", Answer: Bool(true)},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if att.Score != 10 || att.MaxScore != 10 || att.Percentage != 100 || att.Grade != "A+" || !att.Passed {
		t.Errorf("unexpected result %+v", att)
	}
	if !reflect.DeepEqual(att.Strengths, []string{"topic1", "topic2"}) || len(att.Weaknesses) != 0 {
		t.Errorf("strengths %v weaknesses %v", att.Strengths, att.Weaknesses)
	}
	if att.TimeSpent != 90 {
		t.Errorf("time spent = %d, want 90", att.TimeSpent)
	}

	stored, _ := repo.GetExam(ctx, exam.ID)
	if stored.Stats.TotalAttempts != 1 || stored.Stats.WorstScore != 100 || stored.Stats.BestScore != 100 {
		t.Errorf("stats not updated: %+v", stored.Stats)
	}
}

func TestStartAttempt_HidesAnswerKey(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())
	exam, _ := svc.CreateExam(ctx, capitalExam())
	start, err := svc.StartAttempt(ctx, exam.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	raw, _ := json.Marshal(start)
	if strings.Contains(string(raw), "correct_answer") || strings.Contains(string(raw), "It is Paris.") {
		t.Errorf("answer key leaked: %s", raw)
	}

	if _, err := svc.StartAttempt(ctx, "missing"); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitAttempt_Twice(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)
	exam, _ := svc.CreateExam(ctx, capitalExam())
	start, _ := svc.StartAttempt(ctx, exam.ID)
	answers := []Answer{{QuestionID: "q1", Answer: Text("Lyon")}}

	first, err := svc.SubmitAttempt(ctx, start.AttemptID, answers)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.Score != 0 || first.Grade != "F" || first.Passed {
		t.Errorf("unexpected first result %+v", first)
	}

	_, err = svc.SubmitAttempt(ctx, start.AttemptID, []Answer{{QuestionID: "q1", Answer: Text("Paris")}})
	if !errors.Is(err, errs.ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	stored, _ := repo.GetExam(ctx, exam.ID)
	if stored.Stats.TotalAttempts != 1 || stored.Stats.WorstScore != 0 {
		t.Errorf("stats changed by resubmission: %+v", stored.Stats)
	}
}

func TestSubmitAttempt_ConcurrentSubmitsGradeOnce(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)
	exam, _ := svc.CreateExam(ctx, capitalExam())
	start, _ := svc.StartAttempt(ctx, exam.ID)

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.SubmitAttempt(ctx, start.AttemptID, []Answer{{QuestionID: "q1", Answer: Text("Paris")}})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, errs.ErrAlreadyCompleted):
			t.Errorf("unexpected error %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one successful submit, got %d", ok)
	}
	stored, _ := repo.GetExam(ctx, exam.ID)
	if stored.Stats.TotalAttempts != 1 {
		t.Errorf("stats counted %d attempts", stored.Stats.TotalAttempts)
	}
}

func TestSubmitAttempt_Errors(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)
	exam, _ := svc.CreateExam(ctx, capitalExam())
	start, _ := svc.StartAttempt(ctx, exam.ID)

	tests := []struct {
		name      string
		attemptID string
		answers   []Answer
		kind      error
	}{
		{"missing attempt", "nope", []Answer{{QuestionID: "q1"}}, errs.ErrNotFound},
		{"empty answers", start.AttemptID, nil, errs.ErrValidation},
		{"unknown question", start.AttemptID, []Answer{{QuestionID: "q9", Answer: Text("x")}}, errs.ErrValidation},
		{"duplicate answer", start.AttemptID, []Answer{{QuestionID: "q1", Answer: Text("x")}, {QuestionID: "q1", Answer: Text("y")}}, errs.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitAttempt(ctx, tt.attemptID, tt.answers)
			if !errors.Is(err, tt.kind) {
				t.Errorf("expected %v, got %v", tt.kind, err)
			}
		})
	}

	repo.failing = errors.New("database is locked")
	_, err := svc.SubmitAttempt(ctx, start.AttemptID, []Answer{{QuestionID: "q1", Answer: Text("Paris")}})
	if !errors.Is(err, errs.ErrUpstreamUnavailable) || !strings.Contains(err.Error(), "database is locked") {
		t.Errorf("expected upstream error with cause, got %v", err)
	}
}

func TestSubmitAttempt_ZeroPointExam(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)
	exam := &Exam{ID: "e0", CourseID: "c", Stats: NewExamStats(), Settings: DefaultSettings()}
	repo.CreateExam(ctx, exam)
	repo.CreateAttempt(ctx, &Attempt{ID: "a0", ExamID: "e0", StartedAt: t0})

	att, err := svc.SubmitAttempt(ctx, "a0", []Answer{})
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("empty answers should still be rejected, got %v %+v", err, att)
	}

	repo.exams[0].Questions = []Question{{ID: "q", Type: TypeEssay, Topic: "t", CorrectAnswer: Text("x")}}
	att, err = svc.SubmitAttempt(ctx, "a0", []Answer{{QuestionID: "q", Answer: Text("x")}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if att.Percentage != 0 || att.Grade != "F" {
		t.Errorf("zero max score should give 0%%, got %+v", att)
	}
}

func TestStartAttempt_NoRetake(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())
	in := capitalExam()
	in.Settings = &Settings{TimeLimitMinutes: 10, PassingScore: 50}
	exam, _ := svc.CreateExam(ctx, in)

	start, err := svc.StartAttempt(ctx, exam.ID)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := svc.SubmitAttempt(ctx, start.AttemptID, []Answer{{QuestionID: "q1", Answer: Text("Paris")}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.StartAttempt(ctx, exam.ID); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("retake should be rejected, got %v", err)
	}
}

func TestCreateExam_Validation(t *testing.T) {
	in := ExamInput{
		CourseID: "c1",
		Questions: []QuestionInput{
			{ID: "a", Type: TypeMultipleChoice, Text: "Q", Points: 5, CorrectAnswer: Text("x")},
			{ID: "a", Type: "matching", Text: "Q2", Points: 0},
		},
	}
	_, err := NewService(newFakeRepo()).CreateExam(context.Background(), in)
	if !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	for _, want := range []string{"duplicate question ID", "type must be one of", "points must be > 0", "questions[1]: correct_answer is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing problem %q in %v", want, err)
		}
	}
}

func questionsJSON(texts ...string) json.RawMessage {
	var items []map[string]any
	for _, q := range texts {
		items = append(items, map[string]any{
			"text": q, "type": "true_false", "options": []string{}, "correct_answer": "true",
			"explanation": "", "topic": "History", "difficulty": "medium", "points": 5,
		})
	}
	b, _ := json.Marshal(map[string]any{"items": items})
	return b
}

func newGenService(repo Repo, mock *llm.MockProvider) *Service {
	gen := problemgen.New(mock, problemgen.DefaultConfig())
	return NewService(repo, WithProtocol(problemgen.NewProtocol(gen, problemgen.DefaultProtocolConfig(), nil)))
}

func TestRequestNewQuestions_AllAvoided(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	var texts []string
	var prior []QuestionInput
	for i := 0; i < 5; i++ {
		text := fmt.Sprintf("Event %d happened before 1900.", i)
		texts = append(texts, strings.ToUpper(text))
		prior = append(prior, QuestionInput{Type: TypeTrueFalse, Text: text, Points: 5, Topic: "History", CorrectAnswer: Bool(true)})
	}
	mock := llm.NewMockProvider(llm.MockResponse{Content: questionsJSON(texts...)})
	svc := newGenService(repo, mock)
	if _, err := svc.CreateExam(ctx, ExamInput{CourseID: "c1", Questions: prior}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := svc.RequestNewQuestions(ctx, "c1", []string{"history"}, 5)
	if !errors.Is(err, errs.ErrInsufficientUniqueContent) {
		t.Fatalf("expected ErrInsufficientUniqueContent, got %v", err)
	}
	if !strings.Contains(mock.Calls[0].Messages[0].Content, "Generate 10 questions.") {
		t.Errorf("expected desired+5 to be requested")
	}
}

func TestRequestNewQuestions_LookbackAndConversion(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	mock := llm.NewMockProvider(llm.MockResponse{Content: questionsJSON("Old A", "Old D", "Fresh one", "Fresh two")})
	svc := newGenService(repo, mock)

	// Four History exams, newest last; only the three newest are avoided.
	for _, text := range []string{"Old A", "Old B", "Old C", "Old D"} {
		_, err := svc.CreateExam(ctx, ExamInput{CourseID: "c1", Questions: []QuestionInput{
			{Type: TypeShortAnswer, Text: text, Points: 5, Topic: "History", CorrectAnswer: Text("x")},
		}})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	batch, err := svc.RequestNewQuestions(ctx, "c1", []string{"History"}, 3)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var got []string
	for _, c := range batch.Candidates {
		got = append(got, c.Text)
	}
	if !reflect.DeepEqual(got, []string{"Old A", "Fresh one", "Fresh two"}) {
		t.Errorf("candidates = %v", got)
	}

	in := ExamInputFromBatch("c1", "Generated", batch)
	exam, err := svc.CreateExam(ctx, in)
	if err != nil {
		t.Fatalf("create from batch: %v", err)
	}
	if !exam.Questions[0].CorrectAnswer.Equal(Bool(true)) {
		t.Errorf("true_false key should be a bool, got %#v", exam.Questions[0].CorrectAnswer)
	}
}

func TestRequestNewQuestions_GeneratorFailure(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	svc := newGenService(newFakeRepo(), mock)
	_, err := svc.RequestNewQuestions(context.Background(), "c1", nil, 2)
	if !errors.Is(err, errs.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	var unavail *llm.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Errorf("cause not attached: %v", err)
	}
}
