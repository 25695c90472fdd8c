package conceptgraph

import "strings"

// WireGraph is the loosely typed graph payload accepted from files and
// generators. Edges may use from/to or source/target, and nodes may list
// their prerequisites inline. ToGraph folds all of it into canonical edges.
type WireGraph struct {
	Nodes []WireNode `json:"nodes" yaml:"nodes"`
	Edges []WireEdge `json:"edges" yaml:"edges"`
}

// WireNode is a node as it arrives over the boundary.
type WireNode struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Description   string   `json:"description" yaml:"description"`
	Difficulty    int      `json:"difficulty" yaml:"difficulty"`
	Prerequisites []string `json:"prerequisites" yaml:"prerequisites"`
}

// WireEdge accepts both naming conventions for its endpoints.
type WireEdge struct {
	From         string `json:"from" yaml:"from"`
	To           string `json:"to" yaml:"to"`
	Source       string `json:"source" yaml:"source"`
	Target       string `json:"target" yaml:"target"`
	Relationship string `json:"relationship" yaml:"relationship"`
	Type         string `json:"type" yaml:"type"`
}

// ToGraph converts the payload into canonical nodes and edges. Inline
// prerequisites become prerequisite edges; an explicit edge for the same
// pair wins. Missing difficulty defaults to DefaultDifficulty. No structural
// validation happens here; ReplaceGraph does that.
func (w WireGraph) ToGraph() ([]Node, []Edge) {
	nodes := make([]Node, 0, len(w.Nodes))
	for _, wn := range w.Nodes {
		d := wn.Difficulty
		if d == 0 {
			d = DefaultDifficulty
		}
		nodes = append(nodes, Node{
			ID:          strings.TrimSpace(wn.ID),
			Name:        strings.TrimSpace(wn.Name),
			Description: strings.TrimSpace(wn.Description),
			Difficulty:  d,
		})
	}

	type pair struct{ from, to string }
	explicit := make(map[pair]bool)
	var edges []Edge
	for _, we := range w.Edges {
		e := we.canonical()
		explicit[pair{e.From, e.To}] = true
		edges = append(edges, e)
	}

	for _, wn := range w.Nodes {
		to := strings.TrimSpace(wn.ID)
		for _, p := range wn.Prerequisites {
			from := strings.TrimSpace(p)
			if explicit[pair{from, to}] {
				continue
			}
			explicit[pair{from, to}] = true
			edges = append(edges, Edge{From: from, To: to, Relationship: RelPrerequisite})
		}
	}

	return nodes, edges
}

func (we WireEdge) canonical() Edge {
	from := firstNonEmpty(we.From, we.Source)
	to := firstNonEmpty(we.To, we.Target)
	rel := Relationship(strings.ToLower(firstNonEmpty(we.Relationship, we.Type)))
	if rel == "" {
		rel = RelPrerequisite
	}
	return Edge{From: from, To: to, Relationship: rel}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
