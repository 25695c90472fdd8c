package conceptgraph

import (
	"slices"
	"sort"
	"strings"
)

// index holds a validated graph with precomputed lookups.
type index struct {
	nodes      []Node
	byID       map[string]*Node
	prereqs    map[string][]string // node -> direct prerequisites
	dependents map[string][]string // node -> direct dependents
	related    map[string][]string // node -> neighbours over any relationship
	topoOrder  []string
	hasPrereq  bool
}

// buildIndex constructs lookups and a deterministic topological order
// (Kahn's algorithm over prerequisite edges, lexical queue order).
func buildIndex(g *Graph) *index {
	idx := &index{
		nodes:      g.Nodes,
		byID:       make(map[string]*Node, len(g.Nodes)),
		prereqs:    make(map[string][]string),
		dependents: make(map[string][]string),
		related:    make(map[string][]string),
	}

	for i := range idx.nodes {
		idx.byID[idx.nodes[i].ID] = &idx.nodes[i]
	}

	inDegree := make(map[string]int, len(g.Nodes))
	for _, e := range g.Edges {
		idx.related[e.From] = append(idx.related[e.From], e.To)
		idx.related[e.To] = append(idx.related[e.To], e.From)
		if !e.IsPrerequisite() {
			continue
		}
		idx.hasPrereq = true
		idx.prereqs[e.To] = append(idx.prereqs[e.To], e.From)
		idx.dependents[e.From] = append(idx.dependents[e.From], e.To)
		inDegree[e.To]++
	}
	for _, m := range []map[string][]string{idx.prereqs, idx.dependents, idx.related} {
		for id := range m {
			sort.Strings(m[id])
		}
	}
	for id := range idx.related {
		idx.related[id] = slices.Compact(idx.related[id])
	}

	var queue []string
	for _, n := range g.Nodes {
		if inDegree[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	sort.Strings(queue)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		idx.topoOrder = append(idx.topoOrder, id)

		var ready []string
		for _, dep := range idx.dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
		queue = append(queue, ready...)
		sort.Strings(queue)
	}

	return idx
}

// roots returns nodes with no prerequisites, sorted by ID.
func (idx *index) roots() []string {
	var out []string
	for _, n := range idx.nodes {
		if len(idx.prereqs[n.ID]) == 0 {
			out = append(out, n.ID)
		}
	}
	sort.Strings(out)
	return out
}

// descendantCounts returns, for each node, how many distinct nodes depend on
// it directly or transitively. Walks the topological order backwards.
// Memory is quadratic in the longest chain; graphs are course-sized.
func (idx *index) descendantCounts() map[string]int {
	below := make(map[string]map[string]struct{}, len(idx.topoOrder))
	counts := make(map[string]int, len(idx.topoOrder))
	for i := len(idx.topoOrder) - 1; i >= 0; i-- {
		id := idx.topoOrder[i]
		set := make(map[string]struct{})
		for _, dep := range idx.dependents[id] {
			set[dep] = struct{}{}
			for d := range below[dep] {
				set[d] = struct{}{}
			}
		}
		below[id] = set
		counts[id] = len(set)
	}
	return counts
}

func (idx *index) lookup(ids []string) []Node {
	out := make([]Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := idx.byID[id]; ok {
			out = append(out, *n)
		}
	}
	return out
}

// unlocked reports whether every prerequisite of id is mastered.
func (idx *index) unlocked(id string, mastered map[string]bool) bool {
	for _, p := range idx.prereqs[id] {
		if !mastered[p] {
			return false
		}
	}
	return true
}

// matchTopic finds a node whose ID or name equals topic, ignoring case.
func (idx *index) matchTopic(topic string) (*Node, bool) {
	t := strings.TrimSpace(topic)
	for i := range idx.nodes {
		n := &idx.nodes[i]
		if strings.EqualFold(n.ID, t) || strings.EqualFold(n.Name, t) {
			return n, true
		}
	}
	return nil, false
}
