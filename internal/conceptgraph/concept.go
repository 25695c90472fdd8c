package conceptgraph

import "time"

// Relationship labels an edge between two concepts.
type Relationship string

const (
	// RelPrerequisite means From must be learned before To.
	RelPrerequisite Relationship = "prerequisite"

	// RelRelated links concepts without implying an order.
	RelRelated Relationship = "related"
)

// DefaultDifficulty is applied at the import boundary when a payload omits it.
const DefaultDifficulty = 3

// DefaultMaxPaths is used by DerivePaths when maxPaths <= 0.
const DefaultMaxPaths = 3

// Node is a single concept in a course's graph.
type Node struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Difficulty  int    `json:"difficulty" validate:"min=1,max=5"`
}

// Edge is a directed link between two concepts. An empty Relationship is
// treated as a prerequisite.
type Edge struct {
	From         string       `json:"from"`
	To           string       `json:"to"`
	Relationship Relationship `json:"relationship"`
}

// IsPrerequisite reports whether e constrains learning order.
func (e Edge) IsPrerequisite() bool {
	return e.Relationship == "" || e.Relationship == RelPrerequisite
}

// Graph is the full node and edge set of one course.
type Graph struct {
	CourseID  string    `json:"course_id"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Empty reports whether the graph has no nodes.
func (g *Graph) Empty() bool {
	return len(g.Nodes) == 0
}

// LearningPath is an ordered sequence of concept IDs in which every
// prerequisite appears before the concepts that depend on it.
type LearningPath []string

// Details describes one concept and its neighborhood.
type Details struct {
	Node          Node   `json:"node"`
	Prerequisites []Node `json:"prerequisites"`
	Dependents    []Node `json:"dependents"`
	Related       []Node `json:"related"`
}
