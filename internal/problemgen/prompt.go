package problemgen

import (
	"fmt"
	"strings"
)

const questionSystemPrompt = `You write practice exam questions for university-level course material.

Rules:
- Produce exactly the requested number of questions, spread across the requested topics.
- Mix types: multiple_choice (4 options, correct_answer is the exact option text), true_false (correct_answer "true" or "false"), short_answer (a short canonical answer) and essay (a key phrase the answer must contain).
- Every question must be self-contained and unambiguous.
- Assign 5-20 points per question, more for harder questions.
- Never repeat or lightly reword a question from the "avoid" list.`

const flashcardSystemPrompt = `You write study flashcards for university-level course material.

Rules:
- Produce exactly the requested number of flashcards, spread across the requested topics.
- text is the front: a term, a question or a prompt. correct_answer is the back: a concise answer.
- Use type "short_answer", an empty options array and 0 points.
- Never repeat or lightly reword a card from the "avoid" list.`

func systemPromptFor(kind Kind) string {
	if kind == KindFlashcard {
		return flashcardSystemPrompt
	}
	return questionSystemPrompt
}

// buildUserMessage constructs the user message from a Request and Config limits.
func buildUserMessage(req Request, cfg Config) string {
	var b strings.Builder

	noun := "questions"
	if req.Kind == KindFlashcard {
		noun = "flashcards"
	}

	fmt.Fprintf(&b, "Course: %s\n", req.CourseID)
	fmt.Fprintf(&b, "Generate %d %s.\n", req.Count, noun)
	if len(req.Topics) > 0 {
		fmt.Fprintf(&b, "Topics: %s\n", strings.Join(req.Topics, ", "))
	} else {
		b.WriteString("Topics: any topic from the course\n")
	}
	if req.Difficulty != "" {
		fmt.Fprintf(&b, "Difficulty: %s\n", req.Difficulty)
	}

	b.WriteString("\nAvoid (already used):\n")
	b.WriteString(buildDedup(req.Avoid, cfg.MaxAvoidInPrompt))

	return b.String()
}
