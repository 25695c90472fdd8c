package mastery

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
	"github.com/abhisek/studyloop/internal/spacedrep"
	"github.com/abhisek/studyloop/internal/tracing"
	"github.com/abhisek/studyloop/internal/validate"
)

var tracer = otel.Tracer("github.com/abhisek/studyloop/internal/mastery")

// Repo persists decks and cards. Getters return nil, nil for missing rows.
type Repo interface {
	CreateDeck(ctx context.Context, deck *Deck, cards []Flashcard) error
	GetDeck(ctx context.Context, deckID string) (*Deck, error)
	GetCard(ctx context.Context, cardID string) (*Flashcard, error)
	DeckCards(ctx context.Context, deckID string) ([]Flashcard, error)
	CourseCards(ctx context.Context, courseID string) ([]Flashcard, error)

	// ListDecks returns the course's decks newest first. limit <= 0 means all.
	ListDecks(ctx context.Context, courseID string, limit int) ([]Deck, error)

	// RecordProgress stores the updated card progress and then recomputes the
	// deck stats with aggregate over all of the deck's cards, in one
	// transaction.
	RecordProgress(ctx context.Context, deckID string, updates map[string]StudyProgress, aggregate func([]Flashcard) DeckStats) (DeckStats, error)
}

// Tracker owns card study state: mastery transitions, review scheduling and
// deck and course statistics.
type Tracker struct {
	repo     Repo
	protocol *problemgen.Protocol
	log      *zap.Logger
	now      func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithProtocol enables RequestNewCards.
func WithProtocol(p *problemgen.Protocol) Option {
	return func(t *Tracker) { t.protocol = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func NewTracker(repo Repo, opts ...Option) *Tracker {
	t := &Tracker{repo: repo, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(t)
	}
	return t
}

// RecordStudyEvent applies one study outcome to a card and re-aggregates its
// deck.
func (t *Tracker) RecordStudyEvent(ctx context.Context, cardID string, correct bool) (_ *StudyResult, err error) {
	ctx, span := tracer.Start(ctx, "mastery.RecordStudyEvent", trace.WithAttributes(
		attribute.String("card.id", cardID),
		attribute.Bool("study.correct", correct),
	))
	defer tracing.End(span, &err)

	const op = "recordStudyEvent"
	card, err := t.repo.GetCard(ctx, cardID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if card == nil {
		return nil, errs.NotFound(op, "card %q", cardID)
	}

	p := Apply(card.Progress, correct, t.now().UTC())
	if _, err := t.repo.RecordProgress(ctx, card.DeckID, map[string]StudyProgress{card.ID: p}, Aggregate); err != nil {
		return nil, storeErr(op, err)
	}

	t.log.Debug("study event recorded",
		zap.String("card_id", cardID),
		zap.Bool("correct", correct),
		zap.Float64("mastery", p.MasteryLevel))

	return &StudyResult{CardID: card.ID, MasteryLevel: p.MasteryLevel, NextReview: *p.NextReview}, nil
}

// RecordSession records one event per listed card, correct ones first, and
// returns the session summary. Unknown cards reject the whole session before
// anything is written.
func (t *Tracker) RecordSession(ctx context.Context, deckID string, correctIDs, incorrectIDs []string) (_ *SessionResult, err error) {
	ctx, span := tracer.Start(ctx, "mastery.RecordSession", trace.WithAttributes(
		attribute.String("deck.id", deckID),
		attribute.Int("session.correct", len(correctIDs)),
		attribute.Int("session.incorrect", len(incorrectIDs)),
	))
	defer tracing.End(span, &err)

	const op = "recordSession"
	if len(correctIDs)+len(incorrectIDs) == 0 {
		return nil, errs.Validation(op, "session lists no cards")
	}

	deck, err := t.repo.GetDeck(ctx, deckID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if deck == nil {
		return nil, errs.NotFound(op, "deck %q", deckID)
	}

	cards, err := t.repo.DeckCards(ctx, deckID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	progress := make(map[string]StudyProgress, len(cards))
	for _, c := range cards {
		progress[c.ID] = c.Progress
	}

	// Each card counts once per session, in exactly one list.
	var problems []string
	seen := make(map[string]bool, len(correctIDs)+len(incorrectIDs))
	check := func(ids []string, correct bool) {
		for _, id := range ids {
			if _, ok := progress[id]; !ok {
				problems = append(problems, fmt.Sprintf("card %q is not in deck %q", id, deckID))
			}
			prev, dup := seen[id]
			switch {
			case dup && prev == correct:
				problems = append(problems, fmt.Sprintf("card %q is listed more than once", id))
			case dup:
				problems = append(problems, fmt.Sprintf("card %q is marked both correct and incorrect", id))
			default:
				seen[id] = correct
			}
		}
	}
	check(correctIDs, true)
	check(incorrectIDs, false)
	if err := errs.Validation(op, problems...); err != nil {
		return nil, err
	}

	now := t.now().UTC()
	updates := make(map[string]StudyProgress)
	apply := func(ids []string, correct bool) {
		for _, id := range ids {
			p := Apply(progress[id], correct, now)
			progress[id] = p
			updates[id] = p
		}
	}
	apply(correctIDs, true)
	apply(incorrectIDs, false)

	stats, err := t.repo.RecordProgress(ctx, deckID, updates, Aggregate)
	if err != nil {
		return nil, storeErr(op, err)
	}

	res := &SessionResult{
		DeckID:       deckID,
		CardsStudied: len(correctIDs) + len(incorrectIDs),
		Correct:      len(correctIDs),
		Incorrect:    len(incorrectIDs),
		Stats:        stats,
	}
	res.Accuracy = float64(res.Correct) / float64(res.CardsStudied)
	res.Recommendation = recommendReview
	if res.Accuracy >= SessionPassAccuracy {
		res.Recommendation = recommendPass
	}
	return res, nil
}

// GetProgress summarizes every card of the course.
func (t *Tracker) GetProgress(ctx context.Context, courseID string) (_ *Progress, err error) {
	ctx, span := tracer.Start(ctx, "mastery.GetProgress", trace.WithAttributes(attribute.String("course.id", courseID)))
	defer tracing.End(span, &err)

	cards, err := t.repo.CourseCards(ctx, courseID)
	if err != nil {
		return nil, storeErr("getProgress", err)
	}
	p := summarize(courseID, cards)
	return &p, nil
}

// DueCards lists cards that were never studied or whose review date has
// passed, most overdue first. limit <= 0 means all.
func (t *Tracker) DueCards(ctx context.Context, courseID string, limit int) (_ []Flashcard, err error) {
	ctx, span := tracer.Start(ctx, "mastery.DueCards", trace.WithAttributes(attribute.String("course.id", courseID)))
	defer tracing.End(span, &err)

	cards, err := t.repo.CourseCards(ctx, courseID)
	if err != nil {
		return nil, storeErr("dueCards", err)
	}

	byID := make(map[string]Flashcard, len(cards))
	reviews := make([]spacedrep.Review, len(cards))
	for i, c := range cards {
		byID[c.ID] = c
		reviews[i] = spacedrep.Review{CardID: c.ID, NextReview: c.Progress.NextReview}
	}

	queue := spacedrep.DueQueue(reviews, t.now(), limit)
	out := make([]Flashcard, len(queue))
	for i, r := range queue {
		out[i] = byID[r.CardID]
	}
	return out, nil
}

// CreateDeck validates in and stores the deck with all of its cards.
func (t *Tracker) CreateDeck(ctx context.Context, in DeckInput) (_ *Deck, err error) {
	ctx, span := tracer.Start(ctx, "mastery.CreateDeck", trace.WithAttributes(
		attribute.String("course.id", in.CourseID),
		attribute.Int("deck.cards", len(in.Cards)),
	))
	defer tracing.End(span, &err)

	const op = "createDeck"
	problems := validate.Struct("", in)
	for i, c := range in.Cards {
		problems = append(problems, validate.Struct(fmt.Sprintf("cards[%d]", i), c)...)
	}
	if err := errs.Validation(op, problems...); err != nil {
		return nil, err
	}

	now := t.now().UTC()
	deck := &Deck{
		ID:         uuid.NewString(),
		CourseID:   in.CourseID,
		Title:      strings.TrimSpace(in.Title),
		Topics:     in.Topics,
		Difficulty: in.Difficulty,
		CardCount:  len(in.Cards),
		CreatedAt:  now,
	}
	if deck.Difficulty == "" {
		deck.Difficulty = DifficultyMedium
	}
	if deck.Title == "" {
		deck.Title = "Flashcards"
		if len(in.Topics) > 0 {
			deck.Title = strings.Join(in.Topics, ", ")
		}
	}

	cards := make([]Flashcard, len(in.Cards))
	for i, c := range in.Cards {
		cards[i] = Flashcard{
			ID:         uuid.NewString(),
			DeckID:     deck.ID,
			CourseID:   in.CourseID,
			Front:      strings.TrimSpace(c.Front),
			Back:       strings.TrimSpace(c.Back),
			Topic:      c.Topic,
			Difficulty: c.Difficulty,
			CreatedAt:  now,
		}
		if cards[i].Topic == "" {
			cards[i].Topic = defaultTopic(in.Topics)
		}
		if cards[i].Difficulty == "" {
			cards[i].Difficulty = deck.Difficulty
		}
	}

	if err := t.repo.CreateDeck(ctx, deck, cards); err != nil {
		return nil, storeErr(op, err)
	}
	t.log.Info("deck created", zap.String("deck_id", deck.ID), zap.Int("cards", deck.CardCount))
	return deck, nil
}

// ListDecks returns the course's decks newest first.
func (t *Tracker) ListDecks(ctx context.Context, courseID string, limit int) ([]Deck, error) {
	decks, err := t.repo.ListDecks(ctx, courseID, limit)
	if err != nil {
		return nil, storeErr("listDecks", err)
	}
	return decks, nil
}

// RequestNewCards asks the generator for desired new flashcards, avoiding
// the fronts of the most recent topic-matching decks.
func (t *Tracker) RequestNewCards(ctx context.Context, courseID string, topics []string, desired int) (_ *problemgen.Batch, err error) {
	ctx, span := tracer.Start(ctx, "mastery.RequestNewCards", trace.WithAttributes(
		attribute.String("course.id", courseID),
		attribute.StringSlice("topics", topics),
		attribute.Int("desired", desired),
	))
	defer tracing.End(span, &err)

	const op = "requestNewCards"
	if t.protocol == nil {
		return nil, errs.Upstream(op, errors.New("no generator configured"))
	}
	cfg := t.protocol.Config()

	decks, err := t.repo.ListDecks(ctx, courseID, cfg.ScanLimit)
	if err != nil {
		return nil, storeErr(op, err)
	}
	deckTopics := make([][]string, len(decks))
	for i, d := range decks {
		deckTopics[i] = d.Topics
	}

	var prior []string
	for _, i := range problemgen.RecentMatches(topics, deckTopics, cfg.Lookback) {
		cards, err := t.repo.DeckCards(ctx, decks[i].ID)
		if err != nil {
			return nil, storeErr(op, err)
		}
		for _, c := range cards {
			prior = append(prior, c.Front)
		}
	}

	return t.protocol.Run(ctx, problemgen.Request{
		CourseID: courseID,
		Topics:   topics,
		Kind:     problemgen.KindFlashcard,
	}, desired, prior)
}

// DeckInputFromBatch turns generated candidates into a deck to create.
func DeckInputFromBatch(courseID, title string, topics []string, b *problemgen.Batch) DeckInput {
	in := DeckInput{CourseID: courseID, Title: title, Topics: topics}
	for _, c := range b.Candidates {
		in.Cards = append(in.Cards, CardInput{
			Front:      c.Text,
			Back:       c.CorrectAnswer,
			Topic:      c.Topic,
			Difficulty: c.Difficulty,
		})
	}
	return in
}

func defaultTopic(topics []string) string {
	if len(topics) > 0 {
		return topics[0]
	}
	return problemgen.DefaultTopic
}

func storeErr(op string, err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.Upstream(op, err)
}
