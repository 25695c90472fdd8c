package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/studyloop/internal/conceptgraph"
	"github.com/abhisek/studyloop/internal/errs"
	"github.com/abhisek/studyloop/internal/grading"
	"github.com/abhisek/studyloop/internal/llm"
	"github.com/abhisek/studyloop/internal/mastery"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	db := openTestStore(t).DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
		{"journal_mode", "wal"},
		{"busy_timeout", "5000"},
	}
	for _, tt := range tests {
		var got string
		require.NoError(t, db.QueryRow("PRAGMA "+tt.pragma).Scan(&got), tt.pragma)
		assert.Equal(t, tt.want, got, "PRAGMA %s", tt.pragma)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.GraphRepo().ReplaceGraph(context.Background(), &conceptgraph.Graph{CourseID: "c1", Nodes: []conceptgraph.Node{{ID: "a", Name: "A", Difficulty: 1}}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	g, err := s.GraphRepo().GetGraph(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Len(t, g.Nodes, 1)
}

func TestGraphRepo_ReplaceAndGet(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).GraphRepo()

	g, err := repo.GetGraph(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, g, "missing graph should be nil")

	first, err := repo.ReplaceGraph(ctx, &conceptgraph.Graph{
		CourseID: "c1",
		Nodes: []conceptgraph.Node{
			{ID: "b", Name: "B", Difficulty: 2},
			{ID: "a", Name: "A", Description: "first", Difficulty: 1},
		},
		Edges: []conceptgraph.Edge{{From: "a", To: "b", Relationship: conceptgraph.RelPrerequisite}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)

	got, err := repo.GetGraph(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, first.Nodes, got.Nodes, "node order is preserved")
	assert.Equal(t, first.Edges, got.Edges)
	assert.Equal(t, int64(1), got.Version)

	second, err := repo.ReplaceGraph(ctx, &conceptgraph.Graph{
		CourseID: "c1",
		Nodes:    []conceptgraph.Node{{ID: "x", Name: "X", Difficulty: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)

	got, err = repo.GetGraph(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []conceptgraph.Node{{ID: "x", Name: "X", Difficulty: 3}}, got.Nodes)
	assert.Empty(t, got.Edges)

	other, err := repo.GetGraph(ctx, "c2")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestGraphRepo_ThroughService(t *testing.T) {
	ctx := context.Background()
	svc := conceptgraph.NewService(openTestStore(t).GraphRepo())

	_, err := svc.ReplaceGraph(ctx, "c1",
		[]conceptgraph.Node{{ID: "a", Name: "A", Difficulty: 1}, {ID: "b", Name: "B", Difficulty: 1}},
		[]conceptgraph.Edge{{From: "a", To: "b"}, {From: "b", To: "a"}})
	require.True(t, errors.Is(err, errs.ErrValidation), "cycle must be rejected, got %v", err)

	g, err := svc.GetGraph(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, g.Nodes, "rejected graph must not be stored")

	_, err = svc.ReplaceGraph(ctx, "c1",
		[]conceptgraph.Node{{ID: "a", Name: "A", Difficulty: 1}, {ID: "b", Name: "B", Difficulty: 1}},
		[]conceptgraph.Edge{{From: "a", To: "b"}})
	require.NoError(t, err)
	paths, err := svc.DerivePaths(ctx, "c1", 0)
	require.NoError(t, err)
	assert.Equal(t, []conceptgraph.LearningPath{{"a", "b"}}, paths)
}

func seedDeck(t *testing.T, repo *DeckRepo, id, courseID string, created time.Time, cardIDs ...string) {
	t.Helper()
	deck := &mastery.Deck{ID: id, CourseID: courseID, Title: "deck " + id, CardCount: len(cardIDs), CreatedAt: created}
	var cards []mastery.Flashcard
	for _, cid := range cardIDs {
		cards = append(cards, mastery.Flashcard{
			ID: cid, DeckID: id, CourseID: courseID, Front: "front " + cid, Back: "back " + cid,
			Topic: "General", Difficulty: mastery.DifficultyMedium, CreatedAt: created,
		})
	}
	require.NoError(t, repo.CreateDeck(context.Background(), deck, cards))
}

func TestDeckRepo_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).DeckRepo()
	t0 := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	seedDeck(t, repo, "d1", "c1", t0, "z1", "a1")
	seedDeck(t, repo, "d2", "c1", t0.Add(time.Hour), "m2")
	seedDeck(t, repo, "d3", "c2", t0.Add(2*time.Hour), "q3")

	deck, err := repo.GetDeck(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, deck)
	assert.Equal(t, 2, deck.CardCount)
	assert.True(t, deck.CreatedAt.Equal(t0))

	missing, err := repo.GetDeck(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	cards, err := repo.DeckCards(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "z1", cards[0].ID, "cards keep insertion order")

	decks, err := repo.ListDecks(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, decks, 2)
	assert.Equal(t, "d2", decks[0].ID, "newest first")

	decks, err = repo.ListDecks(ctx, "c1", 1)
	require.NoError(t, err)
	assert.Len(t, decks, 1)

	course, err := repo.CourseCards(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, course, 3)

	card, err := repo.GetCard(ctx, "q3")
	require.NoError(t, err)
	assert.Equal(t, "d3", card.DeckID)
}

func TestDeckRepo_RecordProgress(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).DeckRepo()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	seedDeck(t, repo, "d1", "c1", now, "c1", "c2")

	p := mastery.Apply(mastery.StudyProgress{}, true, now)
	stats, err := repo.RecordProgress(ctx, "d1", map[string]mastery.StudyProgress{"c1": p}, mastery.Aggregate)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalStudied)
	assert.Equal(t, 1, stats.TotalCorrect)
	assert.InDelta(t, 15.0, stats.AverageMastery, 1e-9)

	card, err := repo.GetCard(ctx, "c1")
	require.NoError(t, err)
	assert.InDelta(t, 30.0, card.Progress.MasteryLevel, 1e-9)
	require.NotNil(t, card.Progress.NextReview)

	deck, err := repo.GetDeck(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, stats, deck.Stats)
}

func TestDeckRepo_RecordProgressRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	repo := s.DeckRepo()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	seedDeck(t, repo, "d1", "c1", now, "c1")
	seedDeck(t, repo, "d2", "c1", now, "x1")

	p := mastery.Apply(mastery.StudyProgress{}, true, now)
	_, err := repo.RecordProgress(ctx, "d1", map[string]mastery.StudyProgress{"c1": p, "x1": p}, mastery.Aggregate)
	require.True(t, errors.Is(err, errs.ErrValidation), "got %v", err)

	card, err := repo.GetCard(ctx, "c1")
	require.NoError(t, err)
	assert.Zero(t, card.Progress.TimesStudied, "failed transaction must not leave partial writes")

	_, err = repo.RecordProgress(ctx, "nope", nil, mastery.Aggregate)
	assert.True(t, errors.Is(err, errs.ErrNotFound), "got %v", err)
}

func TestDeckRepo_ThroughTracker(t *testing.T) {
	ctx := context.Background()
	tracker := mastery.NewTracker(openTestStore(t).DeckRepo())

	deck, err := tracker.CreateDeck(ctx, mastery.DeckInput{
		CourseID: "c1",
		Cards: []mastery.CardInput{
			{Front: "2+2", Back: "4"},
			{Front: "3+3", Back: "6"},
		},
	})
	require.NoError(t, err)

	cards, err := tracker.DueCards(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	for i := 0; i < 5; i++ {
		_, err := tracker.RecordStudyEvent(ctx, cards[0].ID, true)
		require.NoError(t, err)
	}
	progress, err := tracker.GetProgress(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, progress.TotalCards)
	assert.Equal(t, 1, progress.Mastered)
	assert.Equal(t, 1, progress.New)

	decks, err := tracker.ListDecks(ctx, "c1", 0)
	require.NoError(t, err)
	require.Len(t, decks, 1)
	assert.Equal(t, deck.ID, decks[0].ID)
	assert.Equal(t, 5, decks[0].Stats.TotalStudied)
}

func testExam() grading.ExamInput {
	return grading.ExamInput{
		CourseID: "geo",
		Questions: []grading.QuestionInput{
			{ID: "q1", Type: grading.TypeMultipleChoice, Text: "Capital of France?", Options: []string{"Paris", "Lyon"}, Points: 5, Topic: "topic1", CorrectAnswer: grading.Text("Paris")},
			{ID: "q2", Type: grading.TypeTrueFalse, Text: "Rome is in Italy.", Points: 5, Topic: "topic2", CorrectAnswer: grading.Bool(true)},
		},
	}
}

func TestExamRepo_SubmitOnce(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).ExamRepo()
	svc := grading.NewService(repo)

	exam, err := svc.CreateExam(ctx, testExam())
	require.NoError(t, err)

	stored, err := repo.GetExam(ctx, exam.ID)
	require.NoError(t, err)
	assert.True(t, stored.Questions[1].CorrectAnswer.Equal(grading.Bool(true)), "answer kind survives storage")

	start, err := svc.StartAttempt(ctx, exam.ID)
	require.NoError(t, err)

	answers := []grading.Answer{
		{QuestionID: "q1", Answer: grading.Text("paris")},
		{QuestionID: "q2", Answer: grading.Bool(true)},
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		errc []error
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitAttempt(ctx, start.AttemptID, answers)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				oks++
				return
			}
			errc = append(errc, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, oks, "exactly one submission wins")
	for _, err := range errc {
		assert.True(t, errors.Is(err, errs.ErrAlreadyCompleted), "got %v", err)
	}

	att, err := repo.GetAttempt(ctx, start.AttemptID)
	require.NoError(t, err)
	assert.True(t, att.Completed())
	assert.Equal(t, 10, att.Score)
	assert.Equal(t, "A+", att.Grade)

	stored, err = repo.GetExam(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Stats.TotalAttempts)
	assert.Equal(t, 100.0, stored.Stats.BestScore)
}

func TestExamRepo_CompleteAttemptDirect(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).ExamRepo()
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateExam(ctx, &grading.Exam{ID: "e1", CourseID: "c1", Stats: grading.NewExamStats(), CreatedAt: created}))
	require.NoError(t, repo.CreateAttempt(ctx, &grading.Attempt{ID: "a1", ExamID: "e1", CourseID: "c1", StartedAt: created}))

	done := created.Add(time.Minute)
	att := &grading.Attempt{ID: "a1", ExamID: "e1", CourseID: "c1", StartedAt: created, CompletedAt: &done, Percentage: 40}
	calls := 0
	update := func(st *grading.ExamStats) {
		calls++
		st.Record(att.Percentage, done)
	}

	require.NoError(t, repo.CompleteAttempt(ctx, att, update))
	err := repo.CompleteAttempt(ctx, att, update)
	assert.True(t, errors.Is(err, errs.ErrAlreadyCompleted), "got %v", err)
	assert.Equal(t, 1, calls)

	exam, err := repo.GetExam(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, 40.0, exam.Stats.WorstScore)
}

func TestExamRepo_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).ExamRepo()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, repo.CreateExam(ctx, &grading.Exam{ID: id, CourseID: "c1", CreatedAt: base.Add(time.Duration(i) * time.Minute)}))
	}

	exams, err := repo.ListExams(ctx, "c1", 2)
	require.NoError(t, err)
	require.Len(t, exams, 2)
	assert.Equal(t, "e3", exams[0].ID)
	assert.Equal(t, "e2", exams[1].ID)
}

func TestEventRepo_AppendAndQuery(t *testing.T) {
	ctx := context.Background()
	repo := openTestStore(t).EventRepo()

	events := []llm.RequestEvent{
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "question-gen", InputTokens: 100, OutputTokens: 50, LatencyMs: 200, Success: true, RequestBody: "[user]\nhi"},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "flashcard-gen", InputTokens: 10, OutputTokens: 5, LatencyMs: 100, Success: true},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "question-gen", LatencyMs: 400, ErrorMessage: "rate limited"},
	}
	for _, ev := range events {
		require.NoError(t, repo.AppendLLMRequest(ctx, ev))
	}

	all, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "rate limited", all[0].ErrorMessage, "newest first")
	assert.False(t, all[0].Success)

	gen, err := repo.QueryLLMEvents(ctx, QueryOpts{Purpose: "question-gen", Limit: 1})
	require.NoError(t, err)
	require.Len(t, gen, 1)
	assert.Equal(t, all[0].ID, gen[0].ID)

	one, err := repo.GetLLMEvent(ctx, all[2].ID)
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.Equal(t, "[user]\nhi", one.RequestBody)

	none, err := repo.GetLLMEvent(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, none)

	usage, err := repo.LLMUsageByPurpose(ctx)
	require.NoError(t, err)
	assert.Equal(t, []UsageRow{
		{Key: "flashcard-gen", Calls: 1, InputTokens: 10, OutputTokens: 5, AvgLatencyMs: 100},
		{Key: "question-gen", Calls: 2, InputTokens: 100, OutputTokens: 50, AvgLatencyMs: 300},
	}, usage)

	byModel, err := repo.LLMUsageByModel(ctx)
	require.NoError(t, err)
	require.Len(t, byModel, 1)
	assert.Equal(t, 3, byModel[0].Calls)
}

func TestDSN(t *testing.T) {
	dsn := DSN("/tmp/x.db")
	assert.Contains(t, dsn, "file:/tmp/x.db?")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "_pragma=foreign_keys%281%29")
}
