// Package graphmirror copies committed concept graphs into Neo4j for ad-hoc
// traversal queries. SQLite stays the source of truth.
package graphmirror

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/abhisek/studyloop/internal/conceptgraph"
)

// Config locates the Neo4j server. An empty URI disables the mirror.
type Config struct {
	URI         string        `mapstructure:"uri"`
	User        string        `mapstructure:"user"`
	Password    string        `mapstructure:"password"`
	Database    string        `mapstructure:"database"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxPoolSize int           `mapstructure:"max_pool_size"`
}

// Neo4j implements conceptgraph.Mirror.
type Neo4j struct {
	driver   neo4j.DriverWithContext
	database string
	log      *zap.Logger
}

var _ conceptgraph.Mirror = (*Neo4j)(nil)

// New connects and verifies connectivity. It returns nil and no error when
// cfg.URI is empty.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Neo4j, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	user := cfg.User
	if user == "" {
		user = "neo4j"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxPool := cfg.MaxPoolSize
	if maxPool <= 0 {
		maxPool = 50
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, cfg.Password, ""), func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = maxPool
		c.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	log.Info("graph mirror connected to neo4j", zap.String("uri", uri))
	return &Neo4j{driver: driver, database: cfg.Database, log: log}, nil
}

// Sync replaces the course's mirrored concepts with g.
func (m *Neo4j) Sync(ctx context.Context, g *conceptgraph.Graph) error {
	nodes, prereqs, related := records(g)

	session := m.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: m.database,
	})
	defer session.Close(ctx)

	// Best effort; restricted users may not create constraints.
	if res, err := session.Run(ctx, `CREATE CONSTRAINT concept_course_id_unique IF NOT EXISTS FOR (c:Concept) REQUIRE (c.course_id, c.id) IS UNIQUE`, nil); err != nil {
		m.log.Warn("neo4j schema init failed (continuing)", zap.Error(err))
	} else {
		_, _ = res.Consume(ctx)
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		steps := []struct {
			cypher string
			params map[string]any
		}{
			{`
MATCH (c:Concept {course_id: $course_id})
DETACH DELETE c
`, map[string]any{"course_id": g.CourseID}},
			{`
UNWIND $nodes AS n
MERGE (c:Concept {course_id: n.course_id, id: n.id})
SET c += n
`, map[string]any{"nodes": nodes}},
			{`
UNWIND $rels AS r
MATCH (a:Concept {course_id: r.course_id, id: r.from_id})
MATCH (b:Concept {course_id: r.course_id, id: r.to_id})
MERGE (a)-[:PREREQUISITE_OF]->(b)
`, map[string]any{"rels": prereqs}},
			{`
UNWIND $rels AS r
MATCH (a:Concept {course_id: r.course_id, id: r.from_id})
MATCH (b:Concept {course_id: r.course_id, id: r.to_id})
MERGE (a)-[:RELATED_TO]->(b)
`, map[string]any{"rels": related}},
		}
		for _, s := range steps {
			res, err := tx.Run(ctx, s.cypher, s.params)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j sync %s: %w", g.CourseID, err)
	}

	m.log.Debug("concept graph mirrored",
		zap.String("course_id", g.CourseID),
		zap.Int64("version", g.Version),
		zap.Int("nodes", len(nodes)))
	return nil
}

// Close releases the driver.
func (m *Neo4j) Close(ctx context.Context) error {
	return m.driver.Close(ctx)
}

// records flattens g into Cypher parameters, splitting edges by relationship.
func records(g *conceptgraph.Graph) (nodes, prereqs, related []map[string]any) {
	synced := g.UpdatedAt.UTC().Format(time.RFC3339Nano)
	nodes = make([]map[string]any, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, map[string]any{
			"course_id":   g.CourseID,
			"id":          n.ID,
			"name":        n.Name,
			"description": n.Description,
			"difficulty":  int64(n.Difficulty),
			"version":     g.Version,
			"synced_at":   synced,
		})
	}
	prereqs = []map[string]any{}
	related = []map[string]any{}
	for _, e := range g.Edges {
		rec := map[string]any{"course_id": g.CourseID, "from_id": e.From, "to_id": e.To}
		if e.IsPrerequisite() {
			prereqs = append(prereqs, rec)
		} else {
			related = append(related, rec)
		}
	}
	return nodes, prereqs, related
}
