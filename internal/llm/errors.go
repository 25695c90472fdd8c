package llm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/abhisek/studyloop/internal/errs"
)

// Every provider error matches errs.ErrUpstreamUnavailable through
// errors.Is, so a generator failure that escapes unwrapped still carries
// the right kind. Temporary drives the retry decision.

// ErrRateLimit is returned on HTTP 429.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }
func (e *ErrRateLimit) Is(t error) bool { return t == errs.ErrUpstreamUnavailable }
func (e *ErrRateLimit) Temporary() bool { return true }

// ErrInvalidResponse means the output did not match the requested schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error   { return e.Err }
func (e *ErrInvalidResponse) Is(t error) bool { return t == errs.ErrUpstreamUnavailable }

// Temporary is true because a second sample often parses; the retry layer
// still caps invalid responses at one retry.
func (e *ErrInvalidResponse) Temporary() bool { return true }

// ErrProviderUnavailable means the provider is down, unreachable, or not
// configured.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error   { return e.Err }
func (e *ErrProviderUnavailable) Is(t error) bool { return t == errs.ErrUpstreamUnavailable }
func (e *ErrProviderUnavailable) Temporary() bool { return true }

// ErrMaxTokensExceeded means the output was cut off at MaxTokens. Asking
// again with the same budget gets the same cut, so it is not temporary.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

func (e *ErrMaxTokensExceeded) Is(t error) bool { return t == errs.ErrUpstreamUnavailable }
func (e *ErrMaxTokensExceeded) Temporary() bool { return false }

type temporary interface {
	Temporary() bool
}
