// Package errs defines the error kinds shared by the studyloop core.
//
// Every error returned by a service wraps exactly one kind, so callers can
// branch with errors.Is(err, errs.ErrNotFound) and still reach the cause.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means a referenced entity is absent.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the input is malformed or violates an invariant.
	ErrValidation = errors.New("validation failed")

	// ErrAlreadyCompleted means an attempt was submitted after it was finalized.
	ErrAlreadyCompleted = errors.New("already completed")

	// ErrInsufficientUniqueContent means dedup filtering left nothing to return.
	ErrInsufficientUniqueContent = errors.New("insufficient unique content")

	// ErrUpstreamUnavailable means the generator or the store call failed.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Error carries a kind, the operation that failed, and optional details.
type Error struct {
	Kind     error
	Op       string
	Problems []string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	switch len(e.Problems) {
	case 0:
	case 1:
		b.WriteString(": ")
		b.WriteString(e.Problems[0])
	default:
		b.WriteString(":\n  ")
		b.WriteString(strings.Join(e.Problems, "\n  "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NotFound reports a missing entity.
func NotFound(op, format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Op: op, Problems: []string{fmt.Sprintf(format, args...)}}
}

// Validation reports one or more input problems. It returns nil when
// problems is empty so callers can collect first and return unconditionally.
func Validation(op string, problems ...string) error {
	if len(problems) == 0 {
		return nil
	}
	return &Error{Kind: ErrValidation, Op: op, Problems: problems}
}

// AlreadyCompleted reports a resubmission of a finalized attempt.
func AlreadyCompleted(op, attemptID string) error {
	return &Error{Kind: ErrAlreadyCompleted, Op: op, Problems: []string{fmt.Sprintf("attempt %q", attemptID)}}
}

// InsufficientUniqueContent reports an empty batch after dedup filtering.
func InsufficientUniqueContent(op string, requested, received int) error {
	return &Error{
		Kind:     ErrInsufficientUniqueContent,
		Op:       op,
		Problems: []string{fmt.Sprintf("requested %d, generator returned %d, none unique", requested, received)},
	}
}

// Upstream wraps a generator or store failure, keeping the original cause.
func Upstream(op string, err error) error {
	return &Error{Kind: ErrUpstreamUnavailable, Op: op, Err: err}
}

// Is reports whether err carries the given kind. Shorthand for errors.Is.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
