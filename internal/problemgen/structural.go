package problemgen

import "strings"

// MaxTextLen bounds question and card text.
const MaxTextLen = 1000

// StructuralValidator checks that required fields are present, within
// length limits, and have valid enum values.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(c *Candidate, req Request) *ValidationError {
	fail := func(msg string) *ValidationError {
		return &ValidationError{Validator: v.Name(), Message: msg}
	}
	if strings.TrimSpace(c.Text) == "" {
		return fail("text is empty")
	}
	if len(c.Text) > MaxTextLen {
		return fail("text exceeds 1000 characters")
	}
	if strings.TrimSpace(c.CorrectAnswer) == "" {
		return fail("correct_answer is empty")
	}
	if req.Kind == KindFlashcard {
		return nil
	}
	switch c.Type {
	case TypeMultipleChoice, TypeTrueFalse, TypeShortAnswer, TypeEssay:
	default:
		return fail("type must be multiple_choice, true_false, short_answer or essay")
	}
	if c.Points <= 0 {
		return fail("points must be > 0")
	}
	return nil
}

// ChoiceValidator checks option sets on choice-style questions.
type ChoiceValidator struct{}

func (v *ChoiceValidator) Name() string { return "choice" }

func (v *ChoiceValidator) Validate(c *Candidate, req Request) *ValidationError {
	if req.Kind == KindFlashcard {
		return nil
	}
	switch c.Type {
	case TypeMultipleChoice:
		if len(c.Options) < 2 {
			return &ValidationError{Validator: v.Name(), Message: "multiple_choice needs at least 2 options"}
		}
		for _, o := range c.Options {
			if strings.EqualFold(strings.TrimSpace(o), strings.TrimSpace(c.CorrectAnswer)) {
				return nil
			}
		}
		return &ValidationError{Validator: v.Name(), Message: "correct_answer is not one of the options"}
	case TypeTrueFalse:
		if c.CorrectAnswer != "true" && c.CorrectAnswer != "false" {
			return &ValidationError{Validator: v.Name(), Message: "true_false answer must be \"true\" or \"false\""}
		}
	}
	return nil
}

// clean fills defaults and canonicalizes enum spellings before validation.
func clean(c Candidate, req Request) Candidate {
	c.Text = strings.TrimSpace(c.Text)
	c.CorrectAnswer = strings.TrimSpace(c.CorrectAnswer)
	c.Type = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c.Type)), "-", "_")
	if c.Type == TypeTrueFalse {
		c.CorrectAnswer = strings.ToLower(c.CorrectAnswer)
	}
	if strings.TrimSpace(c.Topic) == "" {
		c.Topic = DefaultTopic
		if len(req.Topics) > 0 {
			c.Topic = req.Topics[0]
		}
	}
	switch d := strings.ToLower(strings.TrimSpace(c.Difficulty)); d {
	case "easy", "medium", "hard":
		c.Difficulty = d
	default:
		c.Difficulty = req.Difficulty
	}
	if req.Kind != KindFlashcard && c.Points <= 0 {
		c.Points = DefaultPoints
	}
	return c
}
