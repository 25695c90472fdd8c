package problemgen

import "github.com/abhisek/studyloop/internal/llm"

// itemSchema describes one generated item. Every property is required so the
// schema works with strict structured-output modes; optional values come back
// as empty strings, empty arrays or 0.
var itemSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"text": map[string]any{
			"type":        "string",
			"description": "Question prompt, or flashcard front",
		},
		"type": map[string]any{
			"type":        "string",
			"enum":        []any{TypeMultipleChoice, TypeTrueFalse, TypeShortAnswer, TypeEssay},
			"description": "Question type. Use short_answer for flashcards.",
		},
		"options": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "string"},
			"description": "Answer options for multiple_choice. Empty array otherwise.",
		},
		"correct_answer": map[string]any{
			"type":        "string",
			"description": "Exact text of the correct option, \"true\"/\"false\", or the expected answer. Flashcard back.",
		},
		"explanation": map[string]any{
			"type":        "string",
			"description": "Why the answer is correct",
		},
		"topic": map[string]any{
			"type":        "string",
			"description": "One of the requested topics",
		},
		"difficulty": map[string]any{
			"type":        "string",
			"enum":        []any{"easy", "medium", "hard"},
			"description": "Self-assessed difficulty",
		},
		"points": map[string]any{
			"type":        "integer",
			"minimum":     0,
			"description": "Points for exam questions (5-20), 0 for flashcards",
		},
	},
	"required":             []any{"text", "type", "options", "correct_answer", "explanation", "topic", "difficulty", "points"},
	"additionalProperties": false,
}

// BatchSchema is the structured-output schema for a batch of items.
var BatchSchema = &llm.Schema{
	Name:        "study-item-batch",
	Description: "A batch of exam questions or flashcards generated from course material",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type":  "array",
				"items": itemSchema,
			},
		},
		"required":             []any{"items"},
		"additionalProperties": false,
	},
	// Items are decoded and filtered one by one, so only the envelope is
	// enforced on the response.
	Check: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"items": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object"},
			},
		},
		"required": []any{"items"},
	},
}
