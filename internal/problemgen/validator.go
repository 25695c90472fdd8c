package problemgen

import "fmt"

// Validator checks a generated candidate before it is accepted.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier, e.g. "structural".
	Name() string

	// Validate returns nil if the candidate passes.
	Validate(c *Candidate, req Request) *ValidationError
}

// ValidationError describes why a candidate was dropped.
type ValidationError struct {
	Validator string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}
