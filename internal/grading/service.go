package grading

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/abhisek/studyloop/internal/errs"
	"github.com/abhisek/studyloop/internal/problemgen"
	"github.com/abhisek/studyloop/internal/tracing"
	"github.com/abhisek/studyloop/internal/validate"
)

var tracer = otel.Tracer("github.com/abhisek/studyloop/internal/grading")

// Repo persists exams and attempts. Getters return nil, nil for missing rows.
type Repo interface {
	CreateExam(ctx context.Context, exam *Exam) error
	GetExam(ctx context.Context, examID string) (*Exam, error)

	// ListExams returns the course's exams newest first. limit <= 0 means all.
	ListExams(ctx context.Context, courseID string, limit int) ([]Exam, error)

	CreateAttempt(ctx context.Context, a *Attempt) error
	GetAttempt(ctx context.Context, attemptID string) (*Attempt, error)

	// CompleteAttempt stores the graded attempt only if it is still open and
	// applies update to the exam stats, in one transaction. It returns an
	// AlreadyCompleted error when the attempt was finalized first.
	CompleteAttempt(ctx context.Context, a *Attempt, update func(*ExamStats)) error
}

// Service grades exam attempts and generates new questions.
type Service struct {
	repo     Repo
	protocol *problemgen.Protocol
	log      *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithProtocol enables RequestNewQuestions.
func WithProtocol(p *problemgen.Protocol) Option {
	return func(s *Service) { s.protocol = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repo, opts ...Option) *Service {
	s := &Service{repo: repo, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateExam validates in, assigns missing ids and stores the exam with
// seeded stats.
func (s *Service) CreateExam(ctx context.Context, in ExamInput) (_ *Exam, err error) {
	ctx, span := tracer.Start(ctx, "grading.CreateExam", trace.WithAttributes(
		attribute.String("course.id", in.CourseID),
		attribute.Int("exam.questions", len(in.Questions)),
	))
	defer tracing.End(span, &err)

	const op = "createExam"
	problems := validate.Struct("", in)
	ids := make(map[string]bool, len(in.Questions))
	for i, q := range in.Questions {
		prefix := fmt.Sprintf("questions[%d]", i)
		problems = append(problems, validate.Struct(prefix, q)...)
		if q.CorrectAnswer.IsZero() {
			problems = append(problems, prefix+": correct_answer is required")
		}
		if q.ID != "" {
			if ids[q.ID] {
				problems = append(problems, fmt.Sprintf("%s: duplicate question ID %q", prefix, q.ID))
			}
			ids[q.ID] = true
		}
	}
	if err := errs.Validation(op, problems...); err != nil {
		return nil, err
	}

	exam := &Exam{
		ID:        uuid.NewString(),
		CourseID:  in.CourseID,
		Title:     strings.TrimSpace(in.Title),
		Settings:  DefaultSettings(),
		Stats:     NewExamStats(),
		CreatedAt: s.now().UTC(),
	}
	if in.Settings != nil {
		exam.Settings = *in.Settings
	}

	var topics topicSet
	for _, qi := range in.Questions {
		q := Question{
			ID:            qi.ID,
			Type:          qi.Type,
			Text:          strings.TrimSpace(qi.Text),
			Options:       qi.Options,
			Points:        qi.Points,
			Topic:         strings.TrimSpace(qi.Topic),
			Difficulty:    qi.Difficulty,
			CorrectAnswer: qi.CorrectAnswer,
			Explanation:   qi.Explanation,
		}
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		if q.Topic == "" {
			q.Topic = problemgen.DefaultTopic
		}
		topics.add(q.Topic)
		exam.Questions = append(exam.Questions, q)
	}
	exam.Topics = topics.list()
	if exam.Title == "" {
		exam.Title = "Practice exam: " + strings.Join(exam.Topics, ", ")
	}

	if err := s.repo.CreateExam(ctx, exam); err != nil {
		return nil, storeErr(op, err)
	}
	s.log.Info("exam created",
		zap.String("exam_id", exam.ID),
		zap.Int("questions", len(exam.Questions)),
		zap.Int("max_score", exam.MaxScore()))
	return exam, nil
}

// ListExams returns the course's exams newest first.
func (s *Service) ListExams(ctx context.Context, courseID string, limit int) ([]Exam, error) {
	exams, err := s.repo.ListExams(ctx, courseID, limit)
	if err != nil {
		return nil, storeErr("listExams", err)
	}
	return exams, nil
}

// StartAttempt opens a new attempt and returns the questions without their
// answer keys.
func (s *Service) StartAttempt(ctx context.Context, examID string) (_ *AttemptStart, err error) {
	ctx, span := tracer.Start(ctx, "grading.StartAttempt", trace.WithAttributes(attribute.String("exam.id", examID)))
	defer tracing.End(span, &err)

	const op = "startAttempt"
	exam, err := s.repo.GetExam(ctx, examID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if exam == nil {
		return nil, errs.NotFound(op, "exam %q", examID)
	}
	if !exam.Settings.AllowRetake && exam.Stats.TotalAttempts > 0 {
		return nil, errs.Validation(op, fmt.Sprintf("exam %q does not allow retakes", examID))
	}

	att := &Attempt{
		ID:        uuid.NewString(),
		ExamID:    exam.ID,
		CourseID:  exam.CourseID,
		StartedAt: s.now().UTC(),
		MaxScore:  exam.MaxScore(),
	}
	if err := s.repo.CreateAttempt(ctx, att); err != nil {
		return nil, storeErr(op, err)
	}

	start := &AttemptStart{
		AttemptID:        att.ID,
		ExamID:           exam.ID,
		Title:            exam.Title,
		StartedAt:        att.StartedAt,
		MaxScore:         att.MaxScore,
		TimeLimitMinutes: exam.Settings.TimeLimitMinutes,
		Questions:        make([]PublicQuestion, len(exam.Questions)),
	}
	for i, q := range exam.Questions {
		start.Questions[i] = q.Public()
	}
	return start, nil
}

// SubmitAttempt grades answers against the exam key, finalizes the attempt
// and folds the result into the exam stats. A finalized attempt is never
// graded again.
func (s *Service) SubmitAttempt(ctx context.Context, attemptID string, answers []Answer) (_ *Attempt, err error) {
	ctx, span := tracer.Start(ctx, "grading.SubmitAttempt", trace.WithAttributes(
		attribute.String("attempt.id", attemptID),
		attribute.Int("attempt.answers", len(answers)),
	))
	defer tracing.End(span, &err)

	const op = "submitAttempt"
	att, err := s.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if att == nil {
		return nil, errs.NotFound(op, "attempt %q", attemptID)
	}
	if att.Completed() {
		return nil, errs.AlreadyCompleted(op, attemptID)
	}
	if len(answers) == 0 {
		return nil, errs.Validation(op, "answers must not be empty")
	}

	exam, err := s.repo.GetExam(ctx, att.ExamID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if exam == nil {
		return nil, errs.NotFound(op, "exam %q", att.ExamID)
	}
	if err := errs.Validation(op, checkAnswers(exam, answers)...); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	score(exam, att, answers, now)

	err = s.repo.CompleteAttempt(ctx, att, func(st *ExamStats) {
		st.Record(att.Percentage, now)
	})
	if err != nil {
		return nil, storeErr(op, err)
	}

	s.log.Info("attempt graded",
		zap.String("attempt_id", att.ID),
		zap.String("exam_id", att.ExamID),
		zap.Int("score", att.Score),
		zap.Int("max_score", att.MaxScore),
		zap.String("grade", att.Grade))
	span.SetAttributes(attribute.Float64("attempt.percentage", att.Percentage))
	return att, nil
}

// RequestNewQuestions asks the generator for desired new questions,
// avoiding the texts of the most recent topic-matching exams.
func (s *Service) RequestNewQuestions(ctx context.Context, courseID string, topics []string, desired int) (_ *problemgen.Batch, err error) {
	ctx, span := tracer.Start(ctx, "grading.RequestNewQuestions", trace.WithAttributes(
		attribute.String("course.id", courseID),
		attribute.StringSlice("topics", topics),
		attribute.Int("desired", desired),
	))
	defer tracing.End(span, &err)

	const op = "requestNewQuestions"
	if s.protocol == nil {
		return nil, errs.Upstream(op, errors.New("no generator configured"))
	}
	cfg := s.protocol.Config()

	exams, err := s.repo.ListExams(ctx, courseID, cfg.ScanLimit)
	if err != nil {
		return nil, storeErr(op, err)
	}
	examTopics := make([][]string, len(exams))
	for i, e := range exams {
		examTopics[i] = e.Topics
	}

	var prior []string
	for _, i := range problemgen.RecentMatches(topics, examTopics, cfg.Lookback) {
		for _, q := range exams[i].Questions {
			prior = append(prior, q.Text)
		}
	}

	return s.protocol.Run(ctx, problemgen.Request{
		CourseID: courseID,
		Topics:   topics,
		Kind:     problemgen.KindQuestion,
	}, desired, prior)
}

// ExamInputFromBatch turns generated candidates into an exam to create.
// true_false keys become bool literals.
func ExamInputFromBatch(courseID, title string, b *problemgen.Batch) ExamInput {
	in := ExamInput{CourseID: courseID, Title: title}
	for _, c := range b.Candidates {
		key := Text(c.CorrectAnswer)
		if c.Type == TypeTrueFalse {
			key = Bool(c.CorrectAnswer == "true")
		}
		in.Questions = append(in.Questions, QuestionInput{
			Type:          c.Type,
			Text:          c.Text,
			Options:       c.Options,
			Points:        c.Points,
			Topic:         c.Topic,
			Difficulty:    c.Difficulty,
			CorrectAnswer: key,
			Explanation:   c.Explanation,
		})
	}
	return in
}

func storeErr(op string, err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.Upstream(op, err)
}
