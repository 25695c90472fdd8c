package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/studyloop/internal/llm"
)

// EventRepo records generator calls. It implements llm.EventSink.
type EventRepo struct {
	s *Store
}

var _ llm.EventSink = (*EventRepo)(nil)

// LLMEventRecord is one stored generator call.
type LLMEventRecord struct {
	ID        int
	Timestamp time.Time
	llm.RequestEvent
}

// QueryOpts filters event queries.
type QueryOpts struct {
	Limit   int // max results (0 = unlimited)
	Purpose string
}

// UsageRow aggregates calls sharing a purpose or a model.
type UsageRow struct {
	Key          string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

var llmEventColumns = []string{
	"id", "created_at", "provider", "model", "purpose", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body",
}

func (r *EventRepo) AppendLLMRequest(ctx context.Context, ev llm.RequestEvent) error {
	_, err := exec(ctx, r.s.db, builder().Insert(tableLLM).
		Columns(llmEventColumns[1:]...).
		Values(r.s.now().UnixNano(), ev.Provider, ev.Model, ev.Purpose, ev.InputTokens, ev.OutputTokens,
			ev.LatencyMs, ev.Success, ev.ErrorMessage, ev.RequestBody, ev.ResponseBody))
	if err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

// QueryLLMEvents returns events newest first.
func (r *EventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error) {
	sel := builder().Select(llmEventColumns...).
		From(entsql.Table(tableLLM)).
		OrderBy(entsql.Desc("id"))
	if opts.Purpose != "" {
		sel.Where(entsql.EQ("purpose", opts.Purpose))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	rows, err := query(ctx, r.s.db, sel)
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	defer rows.Close()

	var out []LLMEventRecord
	for rows.Next() {
		rec, err := scanLLMEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// GetLLMEvent returns the event with id, or nil if absent.
func (r *EventRepo) GetLLMEvent(ctx context.Context, id int) (*LLMEventRecord, error) {
	rec, err := scanLLMEvent(queryRow(ctx, r.s.db, builder().Select(llmEventColumns...).
		From(entsql.Table(tableLLM)).
		Where(entsql.EQ("id", id))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// LLMUsageByPurpose sums tokens per purpose.
func (r *EventRepo) LLMUsageByPurpose(ctx context.Context) ([]UsageRow, error) {
	return r.usageBy(ctx, "purpose")
}

// LLMUsageByModel sums tokens per model, for cost estimates.
func (r *EventRepo) LLMUsageByModel(ctx context.Context) ([]UsageRow, error) {
	return r.usageBy(ctx, "model")
}

func (r *EventRepo) usageBy(ctx context.Context, column string) ([]UsageRow, error) {
	rows, err := query(ctx, r.s.db, builder().
		Select(
			column,
			entsql.Count("*"),
			"COALESCE(SUM(input_tokens), 0)",
			"COALESCE(SUM(output_tokens), 0)",
			"CAST(COALESCE(AVG(latency_ms), 0) AS INTEGER)",
		).
		From(entsql.Table(tableLLM)).
		GroupBy(column).
		OrderBy(column))
	if err != nil {
		return nil, fmt.Errorf("query usage by %s: %w", column, err)
	}
	defer rows.Close()

	var out []UsageRow
	for rows.Next() {
		var u UsageRow
		if err := rows.Scan(&u.Key, &u.Calls, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLLMEvent(row scanner) (*LLMEventRecord, error) {
	var (
		rec     LLMEventRecord
		created int64
	)
	err := row.Scan(&rec.ID, &created, &rec.Provider, &rec.Model, &rec.Purpose, &rec.InputTokens,
		&rec.OutputTokens, &rec.LatencyMs, &rec.Success, &rec.ErrorMessage, &rec.RequestBody, &rec.ResponseBody)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan LLM event: %w", err)
	}
	rec.Timestamp = time.Unix(0, created).UTC()
	return &rec, nil
}
