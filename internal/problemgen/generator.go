package problemgen

import "context"

// Generator produces candidate questions or flashcards. Implementations may
// return fewer items than requested, duplicates, or malformed entries; the
// protocol tolerates all of these.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]Candidate, error)
}
