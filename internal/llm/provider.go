package llm

import (
	"context"
	"encoding/json"
)

// Provider generates structured output from a language model.
type Provider interface {
	// Generate sends the prompt and returns the model output. When
	// req.Schema is set the provider requests JSON matching it and
	// validates the result before returning.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// Messages is the conversation. Generation calls send one user message.
	Messages []Message

	// Schema, when set, selects the provider's native structured output.
	// When nil, Content is the raw text as json.RawMessage.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema the response must satisfy.
type Schema struct {
	// Name is kebab-case, e.g. "study-item-batch". Also the cache key for
	// the compiled schema.
	Name string

	Description string

	// Definition is the JSON Schema document sent to the model.
	Definition map[string]any

	// Check, when set, replaces Definition for validating the response
	// locally. Callers that filter items themselves use it to enforce only
	// the envelope, so one bad item does not fail the whole response.
	Check map[string]any
}

// Response holds the model output.
type Response struct {
	// Content is the validated JSON object when a Schema was requested.
	Content json.RawMessage

	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
