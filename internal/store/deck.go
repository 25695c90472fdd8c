package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/studyloop/internal/errs"
	"github.com/abhisek/studyloop/internal/mastery"
)

// DeckRepo implements mastery.Repo. Decks and cards are stored as JSON
// documents keyed by id, with course_id and created_at broken out for range
// queries.
type DeckRepo struct {
	s *Store
}

var _ mastery.Repo = (*DeckRepo)(nil)

func (r *DeckRepo) CreateDeck(ctx context.Context, deck *mastery.Deck, cards []mastery.Flashcard) error {
	return r.s.withTx(ctx, func(tx *sql.Tx) error {
		data, err := json.Marshal(deck)
		if err != nil {
			return fmt.Errorf("marshal deck: %w", err)
		}
		_, err = exec(ctx, tx, builder().Insert(tableDecks).
			Columns(colID, colCourseID, colCreatedAt, colData).
			Values(deck.ID, deck.CourseID, deck.CreatedAt.UnixNano(), string(data)))
		if err != nil {
			return fmt.Errorf("insert deck: %w", err)
		}

		if len(cards) == 0 {
			return nil
		}
		ins := builder().Insert(tableCards).
			Columns(colID, "deck_id", colCourseID, colCreatedAt, colData)
		for _, c := range cards {
			data, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("marshal card %s: %w", c.ID, err)
			}
			ins.Values(c.ID, c.DeckID, c.CourseID, c.CreatedAt.UnixNano(), string(data))
		}
		if _, err := exec(ctx, tx, ins); err != nil {
			return fmt.Errorf("insert cards: %w", err)
		}
		return nil
	})
}

func (r *DeckRepo) GetDeck(ctx context.Context, deckID string) (*mastery.Deck, error) {
	return getDoc[mastery.Deck](ctx, r.s.db, tableDecks, deckID)
}

func (r *DeckRepo) GetCard(ctx context.Context, cardID string) (*mastery.Flashcard, error) {
	return getDoc[mastery.Flashcard](ctx, r.s.db, tableCards, cardID)
}

func (r *DeckRepo) DeckCards(ctx context.Context, deckID string) ([]mastery.Flashcard, error) {
	return deckCards(ctx, r.s.db, deckID)
}

func (r *DeckRepo) CourseCards(ctx context.Context, courseID string) ([]mastery.Flashcard, error) {
	return listDocs[mastery.Flashcard](ctx, r.s.db, builder().
		Select(colData).
		From(entsql.Table(tableCards)).
		Where(entsql.EQ(colCourseID, courseID)).
		OrderBy(colCreatedAt, colRowID))
}

func (r *DeckRepo) ListDecks(ctx context.Context, courseID string, limit int) ([]mastery.Deck, error) {
	return listDocs[mastery.Deck](ctx, r.s.db, newestFirst(tableDecks, courseID, limit))
}

// RecordProgress writes the new progress of each updated card, then
// re-aggregates the deck stats over every card of the deck.
func (r *DeckRepo) RecordProgress(ctx context.Context, deckID string, updates map[string]mastery.StudyProgress, aggregate func([]mastery.Flashcard) mastery.DeckStats) (mastery.DeckStats, error) {
	var stats mastery.DeckStats
	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		deck, err := getDoc[mastery.Deck](ctx, tx, tableDecks, deckID)
		if err != nil {
			return err
		}
		if deck == nil {
			return errs.NotFound("recordProgress", "deck %q", deckID)
		}

		cards, err := deckCards(ctx, tx, deckID)
		if err != nil {
			return err
		}
		applied := 0
		for i := range cards {
			p, ok := updates[cards[i].ID]
			if !ok {
				continue
			}
			cards[i].Progress = p
			if err := putDoc(ctx, tx, tableCards, cards[i].ID, &cards[i]); err != nil {
				return err
			}
			applied++
		}
		if applied != len(updates) {
			return errs.Validation("recordProgress", fmt.Sprintf("%d updated cards do not belong to deck %q", len(updates)-applied, deckID))
		}

		stats = aggregate(cards)
		deck.Stats = stats
		deck.CardCount = len(cards)
		return putDoc(ctx, tx, tableDecks, deck.ID, deck)
	})
	return stats, err
}

func deckCards(ctx context.Context, q querier, deckID string) ([]mastery.Flashcard, error) {
	return listDocs[mastery.Flashcard](ctx, q, builder().
		Select(colData).
		From(entsql.Table(tableCards)).
		Where(entsql.EQ("deck_id", deckID)).
		OrderBy(colCreatedAt, colRowID))
}

// newestFirst selects the data column of a course's rows by descending
// created_at. limit <= 0 means all.
func newestFirst(table, courseID string, limit int) *entsql.Selector {
	sel := builder().
		Select(colData).
		From(entsql.Table(table)).
		Where(entsql.EQ(colCourseID, courseID)).
		OrderBy(entsql.Desc(colCreatedAt), entsql.Desc(colRowID))
	if limit > 0 {
		sel.Limit(limit)
	}
	return sel
}

// getDoc loads the JSON document with the given id, or nil if absent.
func getDoc[T any](ctx context.Context, q querier, table, id string) (*T, error) {
	var data string
	err := queryRow(ctx, q, builder().
		Select(colData).
		From(entsql.Table(table)).
		Where(entsql.EQ(colID, id)),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", table, id, err)
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", table, id, err)
	}
	return &v, nil
}

func listDocs[T any](ctx context.Context, q querier, sel *entsql.Selector) ([]T, error) {
	rows, err := query(ctx, q, sel)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

// putDoc overwrites the data column of an existing row.
func putDoc(ctx context.Context, q querier, table, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", table, id, err)
	}
	_, err = exec(ctx, q, builder().Update(table).
		Set(colData, string(data)).
		Where(entsql.EQ(colID, id)))
	if err != nil {
		return fmt.Errorf("update %s %s: %w", table, id, err)
	}
	return nil
}
