package problemgen

import (
	"fmt"
	"strings"
)

// Normalize is the comparison form of an item's text: lower-cased and trimmed.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// AvoidSet is an insertion-ordered set of normalized texts with a size cap.
type AvoidSet struct {
	max   int
	order []string
	set   map[string]struct{}
}

// NewAvoidSet creates an empty set holding at most max entries (0 = no cap).
func NewAvoidSet(max int) *AvoidSet {
	return &AvoidSet{max: max, set: make(map[string]struct{})}
}

// Add inserts the normalized text. Returns false if it was empty, already
// present, or the set is full.
func (a *AvoidSet) Add(text string) bool {
	n := Normalize(text)
	if n == "" {
		return false
	}
	if _, ok := a.set[n]; ok {
		return false
	}
	if a.max > 0 && len(a.order) >= a.max {
		return false
	}
	a.set[n] = struct{}{}
	a.order = append(a.order, n)
	return true
}

// Contains reports whether text, once normalized, is in the set.
func (a *AvoidSet) Contains(text string) bool {
	_, ok := a.set[Normalize(text)]
	return ok
}

// Full reports whether the cap has been reached.
func (a *AvoidSet) Full() bool {
	return a.max > 0 && len(a.order) >= a.max
}

// Len returns the number of entries.
func (a *AvoidSet) Len() int { return len(a.order) }

// List returns the entries in insertion order.
func (a *AvoidSet) List() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// TopicsOverlap reports whether any topic appears in both lists, ignoring
// case. An empty want list matches everything.
func TopicsOverlap(want, have []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]bool, len(want))
	for _, t := range want {
		set[Normalize(t)] = true
	}
	for _, t := range have {
		if set[Normalize(t)] {
			return true
		}
	}
	return false
}

// buildDedup formats avoid entries for the prompt, keeping the first max
// (most recent) entries. Returns "None" if there are none.
func buildDedup(avoid []string, max int) string {
	if len(avoid) == 0 {
		return "None"
	}
	if max > 0 && len(avoid) > max {
		avoid = avoid[:max]
	}

	var b strings.Builder
	for i, q := range avoid {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RecentMatches returns the indexes of the first lookback topic lists in
// have (ordered newest first) that overlap want.
func RecentMatches(want []string, have [][]string, lookback int) []int {
	var idx []int
	for i, topics := range have {
		if len(idx) == lookback {
			break
		}
		if TopicsOverlap(want, topics) {
			idx = append(idx, i)
		}
	}
	return idx
}
