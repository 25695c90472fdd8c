package conceptgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/studyloop/internal/errs"
	"github.com/abhisek/studyloop/internal/validate"
)

// DFS colors for cycle detection.
const (
	white = iota
	gray
	black
)

// validateGraph performs all structural checks on a node and edge set.
// Returns a single ValidationError describing every problem found, or nil.
func validateGraph(nodes []Node, edges []Edge) error {
	var problems []string

	ids := make(map[string]bool, len(nodes))
	for i, n := range nodes {
		problems = append(problems, validate.Struct(fmt.Sprintf("node[%d]", i), n)...)
		if n.ID == "" {
			continue
		}
		if ids[n.ID] {
			problems = append(problems, fmt.Sprintf("duplicate node ID: %q", n.ID))
		}
		ids[n.ID] = true
	}

	type pair struct{ from, to string }
	seen := make(map[pair]bool, len(edges))
	for _, e := range edges {
		if e.From == e.To {
			problems = append(problems, fmt.Sprintf("self-loop on %q", e.From))
		}
		if !ids[e.From] {
			problems = append(problems, fmt.Sprintf("edge %q->%q references nonexistent node %q", e.From, e.To, e.From))
		}
		if !ids[e.To] {
			problems = append(problems, fmt.Sprintf("edge %q->%q references nonexistent node %q", e.From, e.To, e.To))
		}
		p := pair{e.From, e.To}
		if seen[p] {
			problems = append(problems, fmt.Sprintf("duplicate edge %q->%q", e.From, e.To))
		}
		seen[p] = true
	}

	// Cycle detection only makes sense once every endpoint resolves.
	if len(problems) == 0 {
		if cycle := findCycle(nodes, edges); cycle != nil {
			problems = append(problems, fmt.Sprintf("cycle detected: %s", strings.Join(cycle, " -> ")))
		}
	}

	return errs.Validation("replaceGraph", problems...)
}

// findCycle runs a colored DFS over prerequisite edges and returns the first
// cycle found as a closed walk (first == last), or nil if the graph is acyclic.
func findCycle(nodes []Node, edges []Edge) []string {
	adj := make(map[string][]string, len(nodes))
	for _, e := range edges {
		if e.IsPrerequisite() {
			adj[e.From] = append(adj[e.From], e.To)
		}
	}
	for id := range adj {
		sort.Strings(adj[id])
	}

	color := make(map[string]int, len(nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range adj[id] {
			switch color[next] {
			case gray:
				// Back-edge: the cycle is the stack suffix starting at next.
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i] == next {
						cycle = append(append([]string{}, stack[i:]...), next)
						break
					}
				}
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, n := range nodes {
		if color[n.ID] == white && visit(n.ID) {
			return cycle
		}
	}
	return nil
}
