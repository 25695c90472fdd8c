package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/studyloop/internal/conceptgraph"
)

// GraphRepo implements conceptgraph.Repo.
type GraphRepo struct {
	s *Store
}

var _ conceptgraph.Repo = (*GraphRepo)(nil)

func (r *GraphRepo) GetGraph(ctx context.Context, courseID string) (*conceptgraph.Graph, error) {
	g := &conceptgraph.Graph{CourseID: courseID, Nodes: []conceptgraph.Node{}, Edges: []conceptgraph.Edge{}}

	var updated int64
	err := queryRow(ctx, r.s.db, builder().
		Select("version", "updated_at").
		From(entsql.Table(tableGraphs)).
		Where(entsql.EQ(colCourseID, courseID)),
	).Scan(&g.Version, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get graph %s: %w", courseID, err)
	}
	g.UpdatedAt = time.Unix(0, updated).UTC()

	rows, err := query(ctx, r.s.db, builder().
		Select("id", "name", "description", "difficulty").
		From(entsql.Table(tableNodes)).
		Where(entsql.EQ(colCourseID, courseID)).
		OrderBy("position"))
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var n conceptgraph.Node
		if err := rows.Scan(&n.ID, &n.Name, &n.Description, &n.Difficulty); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		g.Nodes = append(g.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}

	erows, err := query(ctx, r.s.db, builder().
		Select("from_id", "to_id", "relationship").
		From(entsql.Table(tableEdges)).
		Where(entsql.EQ(colCourseID, courseID)).
		OrderBy("position"))
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer erows.Close()
	for erows.Next() {
		var e conceptgraph.Edge
		if err := erows.Scan(&e.From, &e.To, &e.Relationship); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		g.Edges = append(g.Edges, e)
	}
	if err := erows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return g, nil
}

// ReplaceGraph deletes the course's nodes and edges and writes the new set
// with a bumped version, all in one transaction.
func (r *GraphRepo) ReplaceGraph(ctx context.Context, g *conceptgraph.Graph) (*conceptgraph.Graph, error) {
	stored := &conceptgraph.Graph{
		CourseID:  g.CourseID,
		Nodes:     append([]conceptgraph.Node{}, g.Nodes...),
		Edges:     append([]conceptgraph.Edge{}, g.Edges...),
		UpdatedAt: r.s.now().UTC(),
	}

	err := r.s.withTx(ctx, func(tx *sql.Tx) error {
		var version int64
		err := queryRow(ctx, tx, builder().
			Select("version").
			From(entsql.Table(tableGraphs)).
			Where(entsql.EQ(colCourseID, g.CourseID)),
		).Scan(&version)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read version: %w", err)
		}
		stored.Version = version + 1

		_, err = exec(ctx, tx, builder().
			Insert(tableGraphs).
			Columns(colCourseID, "version", "updated_at").
			Values(g.CourseID, stored.Version, stored.UpdatedAt.UnixNano()).
			OnConflict(
				entsql.ConflictColumns(colCourseID),
				entsql.ResolveWithNewValues(),
			))
		if err != nil {
			return fmt.Errorf("upsert graph: %w", err)
		}

		for _, table := range []string{tableNodes, tableEdges} {
			if _, err := exec(ctx, tx, builder().Delete(table).Where(entsql.EQ(colCourseID, g.CourseID))); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		if len(stored.Nodes) > 0 {
			ins := builder().Insert(tableNodes).
				Columns(colCourseID, "id", "name", "description", "difficulty", "position")
			for i, n := range stored.Nodes {
				ins.Values(g.CourseID, n.ID, n.Name, n.Description, n.Difficulty, i)
			}
			if _, err := exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("insert nodes: %w", err)
			}
		}
		if len(stored.Edges) > 0 {
			ins := builder().Insert(tableEdges).
				Columns(colCourseID, "from_id", "to_id", "relationship", "position")
			for i, e := range stored.Edges {
				ins.Values(g.CourseID, e.From, e.To, string(e.Relationship), i)
			}
			if _, err := exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("insert edges: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}
