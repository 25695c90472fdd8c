package conceptgraph

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/studyloop/internal/errs"
	"github.com/abhisek/studyloop/internal/pathcache"
	"github.com/abhisek/studyloop/internal/tracing"
)

var tracer = otel.Tracer("github.com/abhisek/studyloop/internal/conceptgraph")

// DefaultNextLimit caps NextConcepts when the caller passes limit <= 0.
const DefaultNextLimit = 5

// Repo persists one graph per course.
type Repo interface {
	// GetGraph returns the stored graph, or nil if the course has none.
	GetGraph(ctx context.Context, courseID string) (*Graph, error)

	// ReplaceGraph swaps the full node and edge set in one transaction and
	// returns the stored graph with its new version.
	ReplaceGraph(ctx context.Context, g *Graph) (*Graph, error)
}

// Cache stores serialized learning paths per course. Invalidate drops every
// entry of a course.
type Cache interface {
	Get(ctx context.Context, courseID, key string) ([]byte, bool, error)
	Put(ctx context.Context, courseID, key string, value []byte) error
	Invalidate(ctx context.Context, courseID string) error
}

// Mirror receives a copy of every committed graph. Failures are logged, not
// returned.
type Mirror interface {
	Sync(ctx context.Context, g *Graph) error
}

// Service is the graph store: validated replacement, reads and path
// derivation for course concept graphs.
type Service struct {
	repo   Repo
	cache  Cache
	mirror Mirror
	log    *zap.Logger
	group  singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithCache replaces the default in-process path cache.
func WithCache(c Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithMirror sets a best-effort mirror notified after each replace.
func WithMirror(m Mirror) Option {
	return func(s *Service) { s.mirror = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a graph Service on top of repo.
func NewService(repo Repo, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		cache: pathcache.NewMemory(),
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ReplaceGraph validates nodes and edges and, only if every check passes,
// replaces the course graph atomically. Cached paths are invalidated.
func (s *Service) ReplaceGraph(ctx context.Context, courseID string, nodes []Node, edges []Edge) (_ *Graph, err error) {
	ctx, span := tracer.Start(ctx, "conceptgraph.ReplaceGraph", trace.WithAttributes(
		attribute.String("course.id", courseID),
		attribute.Int("graph.nodes", len(nodes)),
		attribute.Int("graph.edges", len(edges)),
	))
	defer tracing.End(span, &err)

	if strings.TrimSpace(courseID) == "" {
		return nil, errs.Validation("replaceGraph", "course ID is required")
	}

	g := &Graph{
		CourseID: courseID,
		Nodes:    slices.Clone(nodes),
		Edges:    make([]Edge, len(edges)),
	}
	for i, e := range edges {
		if e.Relationship == "" {
			e.Relationship = RelPrerequisite
		}
		g.Edges[i] = e
	}

	if err := validateGraph(g.Nodes, g.Edges); err != nil {
		return nil, err
	}

	stored, err := s.repo.ReplaceGraph(ctx, g)
	if err != nil {
		return nil, storeErr("replaceGraph", err)
	}

	if err := s.cache.Invalidate(ctx, courseID); err != nil {
		s.log.Warn("invalidate path cache", zap.String("course_id", courseID), zap.Error(err))
	}
	if s.mirror != nil {
		if err := s.mirror.Sync(ctx, stored); err != nil {
			s.log.Warn("mirror concept graph", zap.String("course_id", courseID), zap.Error(err))
		}
	}

	s.log.Info("concept graph replaced",
		zap.String("course_id", courseID),
		zap.Int64("version", stored.Version),
		zap.Int("nodes", len(stored.Nodes)),
		zap.Int("edges", len(stored.Edges)),
	)
	return stored, nil
}

// GetGraph returns the course graph, or an empty graph if none was stored.
func (s *Service) GetGraph(ctx context.Context, courseID string) (*Graph, error) {
	g, err := s.repo.GetGraph(ctx, courseID)
	if err != nil {
		return nil, storeErr("getGraph", err)
	}
	if g == nil {
		return &Graph{CourseID: courseID, Nodes: []Node{}, Edges: []Edge{}}, nil
	}
	return g, nil
}

// DerivePaths returns up to maxPaths learning paths for the course. Results
// are cached per graph version; concurrent callers share one computation.
func (s *Service) DerivePaths(ctx context.Context, courseID string, maxPaths int) (_ []LearningPath, err error) {
	ctx, span := tracer.Start(ctx, "conceptgraph.DerivePaths", trace.WithAttributes(
		attribute.String("course.id", courseID),
		attribute.Int("paths.max", maxPaths),
	))
	defer tracing.End(span, &err)

	if maxPaths <= 0 {
		maxPaths = DefaultMaxPaths
	}

	g, err := s.GetGraph(ctx, courseID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("v%d:max%d", g.Version, maxPaths)
	if raw, ok, err := s.cache.Get(ctx, courseID, key); err != nil {
		s.log.Warn("read path cache", zap.String("course_id", courseID), zap.Error(err))
	} else if ok {
		var paths []LearningPath
		if err := json.Unmarshal(raw, &paths); err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return paths, nil
		}
	}

	v, err, _ := s.group.Do(courseID+"/"+key, func() (any, error) {
		paths := derivePaths(buildIndex(g), maxPaths)
		if raw, err := json.Marshal(paths); err == nil {
			if err := s.cache.Put(ctx, courseID, key, raw); err != nil {
				s.log.Warn("write path cache", zap.String("course_id", courseID), zap.Error(err))
			}
		}
		return paths, nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(v.([]LearningPath)), nil
}

// LearningOrder returns every concept of the course in a deterministic
// topological order.
func (s *Service) LearningOrder(ctx context.Context, courseID string) (LearningPath, error) {
	g, err := s.GetGraph(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return learningOrder(buildIndex(g)), nil
}

// ConceptDetails returns a concept with its direct prerequisites, direct
// dependents and every concept linked to it by any relationship.
func (s *Service) ConceptDetails(ctx context.Context, courseID, conceptID string) (*Details, error) {
	g, err := s.GetGraph(ctx, courseID)
	if err != nil {
		return nil, err
	}
	idx := buildIndex(g)
	n, ok := idx.byID[conceptID]
	if !ok {
		return nil, errs.NotFound("conceptDetails", "concept %q in course %q", conceptID, courseID)
	}
	return &Details{
		Node:          *n,
		Prerequisites: idx.lookup(idx.prereqs[conceptID]),
		Dependents:    idx.lookup(idx.dependents[conceptID]),
		Related:       idx.lookup(idx.related[conceptID]),
	}, nil
}

// NextConcepts returns unmastered concepts whose prerequisites are all in
// mastered, easiest first, capped at limit.
func (s *Service) NextConcepts(ctx context.Context, courseID string, mastered []string, limit int) ([]Node, error) {
	if limit <= 0 {
		limit = DefaultNextLimit
	}
	g, err := s.GetGraph(ctx, courseID)
	if err != nil {
		return nil, err
	}
	idx := buildIndex(g)

	done := make(map[string]bool, len(mastered))
	for _, id := range mastered {
		done[id] = true
	}

	var out []Node
	for _, n := range g.Nodes {
		if !done[n.ID] && idx.unlocked(n.ID, done) {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b Node) int {
		return cmp.Or(cmp.Compare(a.Difficulty, b.Difficulty), cmp.Compare(a.ID, b.ID))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TopicPrerequisites links a topic name to the concept it matched and the
// concept's direct prerequisites.
type TopicPrerequisites struct {
	Topic         string `json:"topic"`
	Concept       Node   `json:"concept"`
	Prerequisites []Node `json:"prerequisites"`
}

// PrerequisitesForTopics matches topics to concepts by ID or name and returns
// what to revisit for each. Topics that match nothing are skipped.
func (s *Service) PrerequisitesForTopics(ctx context.Context, courseID string, topics []string) ([]TopicPrerequisites, error) {
	g, err := s.GetGraph(ctx, courseID)
	if err != nil {
		return nil, err
	}
	idx := buildIndex(g)

	var out []TopicPrerequisites
	for _, t := range topics {
		n, ok := idx.matchTopic(t)
		if !ok {
			continue
		}
		out = append(out, TopicPrerequisites{
			Topic:         t,
			Concept:       *n,
			Prerequisites: idx.lookup(idx.prereqs[n.ID]),
		})
	}
	return out, nil
}

// storeErr passes through errors that already carry a kind and marks the
// rest as upstream failures.
func storeErr(op string, err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}
	return errs.Upstream(op, err)
}
