package problemgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/abhisek/studyloop/internal/llm"
)

// LLMGenerator implements Generator using an LLM provider with structured
// output.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
}

// New creates a new LLMGenerator with the given provider and config.
func New(provider llm.Provider, cfg Config) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg}
}

// batchOutput is the raw LLM response. Items stay raw so one bad entry does
// not sink the rest.
type batchOutput struct {
	Items []json.RawMessage `json:"items"`
}

// wireCandidate accepts any scalar as the answer; models often send a bare
// true/false or a number.
type wireCandidate struct {
	Text          string          `json:"text"`
	Type          string          `json:"type"`
	Options       []string        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correct_answer"`
	Explanation   string          `json:"explanation"`
	Topic         string          `json:"topic"`
	Difficulty    string          `json:"difficulty"`
	Points        int             `json:"points"`
}

// Generate asks the model for req.Count items. It does not filter; the
// protocol does.
func (g *LLMGenerator) Generate(ctx context.Context, req Request) ([]Candidate, error) {
	purpose := "question-gen"
	if req.Kind == KindFlashcard {
		purpose = "flashcard-gen"
	}
	ctx = llm.WithPurpose(ctx, purpose)

	resp, err := g.provider.Generate(ctx, llm.Request{
		System: systemPromptFor(req.Kind),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(req, g.config)},
		},
		Schema:      BatchSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw batchOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}

	out := make([]Candidate, len(raw.Items))
	for i, item := range raw.Items {
		c, err := decodeCandidate(item)
		if err != nil {
			c = Candidate{Malformed: fmt.Sprintf("item %d: %v", i, err)}
		}
		out[i] = c
	}
	return out, nil
}

func decodeCandidate(item json.RawMessage) (Candidate, error) {
	var w wireCandidate
	if err := json.Unmarshal(item, &w); err != nil {
		return Candidate{}, err
	}
	answer, err := scalarText(w.CorrectAnswer)
	if err != nil {
		return Candidate{}, fmt.Errorf("correct_answer: %w", err)
	}
	return Candidate{
		Text:          w.Text,
		Type:          w.Type,
		Options:       w.Options,
		CorrectAnswer: answer,
		Explanation:   w.Explanation,
		Topic:         w.Topic,
		Difficulty:    w.Difficulty,
		Points:        w.Points,
	}, nil
}

// scalarText renders a JSON string, bool or number as text. A missing value
// is empty; arrays and objects are errors.
func scalarText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("expected a scalar, got %T", v)
	}
}
