package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/studyloop/internal/app"
	"github.com/abhisek/studyloop/internal/conceptgraph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Manage a course's concept graph",
}

var graphImportCmd = &cobra.Command{
	Use:   "import <course> <file>",
	Short: "Replace the course graph with the nodes and edges in a JSON or YAML file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var w conceptgraph.WireGraph
		if err := readInput(args[1], &w); err != nil {
			return err
		}
		nodes, edges := w.ToGraph()

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			g, err := a.Graph.ReplaceGraph(ctx, args[0], nodes, edges)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d concepts and %d edges into %s (version %d).\n",
				len(g.Nodes), len(g.Edges), g.CourseID, g.Version)
			return nil
		})
	},
}

var graphShowCmd = &cobra.Command{
	Use:   "show <course>",
	Short: "Print the concepts and edges of a course",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			g, err := a.Graph.GetGraph(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(out, g)
			}
			if g.Empty() {
				fmt.Fprintf(out, "No graph stored for %s.\n", args[0])
				return nil
			}

			fmt.Fprintf(out, "%s  (version %d, %d concepts)\n\n", g.CourseID, g.Version, len(g.Nodes))
			fmt.Fprintf(out, "%-20s  %-32s  %s\n", "ID", "Name", "Difficulty")
			fmt.Fprintln(out, strings.Repeat("─", 66))
			for _, n := range g.Nodes {
				fmt.Fprintf(out, "%-20s  %-32s  %d\n", truncate(n.ID, 20), truncate(n.Name, 32), n.Difficulty)
			}
			if len(g.Edges) > 0 {
				fmt.Fprintln(out)
				for _, e := range g.Edges {
					fmt.Fprintf(out, "%s -> %s  (%s)\n", e.From, e.To, relationship(e))
				}
			}
			return nil
		})
	},
}

var graphPathsCmd = &cobra.Command{
	Use:   "paths <course>",
	Short: "Derive suggested learning paths",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxPaths, _ := cmd.Flags().GetInt("max")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			paths, err := a.Graph.DerivePaths(ctx, args[0], maxPaths)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(paths) == 0 {
				fmt.Fprintln(out, "No learning paths: the graph has no prerequisite chains.")
				return nil
			}
			for i, p := range paths {
				fmt.Fprintf(out, "%d. %s\n", i+1, strings.Join(p, " → "))
			}
			return nil
		})
	},
}

var graphOrderCmd = &cobra.Command{
	Use:   "order <course>",
	Short: "Print every concept in a valid study order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			order, err := a.Graph.LearningOrder(ctx, args[0])
			if err != nil {
				return err
			}
			for i, id := range order {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s\n", i+1, id)
			}
			return nil
		})
	},
}

var graphNextCmd = &cobra.Command{
	Use:   "next <course>",
	Short: "List concepts whose prerequisites are all mastered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mastered, _ := cmd.Flags().GetString("mastered")
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			next, err := a.Graph.NextConcepts(ctx, args[0], splitList(mastered), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(next) == 0 {
				fmt.Fprintln(out, "Nothing left to unlock.")
				return nil
			}
			for _, n := range next {
				fmt.Fprintf(out, "%-20s  %-32s  difficulty %d\n", truncate(n.ID, 20), truncate(n.Name, 32), n.Difficulty)
			}
			return nil
		})
	},
}

var graphConceptCmd = &cobra.Command{
	Use:   "concept <course> <id>",
	Short: "Show one concept with its prerequisites, dependents and related concepts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			d, err := a.Graph.ConceptDetails(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(out, d)
			}
			fmt.Fprintf(out, "%s (%s)\n", d.Node.Name, d.Node.ID)
			if d.Node.Description != "" {
				fmt.Fprintln(out, d.Node.Description)
			}
			fmt.Fprintf(out, "Difficulty:     %d\n", d.Node.Difficulty)
			fmt.Fprintf(out, "Prerequisites:  %s\n", nodeNames(d.Prerequisites))
			fmt.Fprintf(out, "Unlocks:        %s\n", nodeNames(d.Dependents))
			fmt.Fprintf(out, "Related:        %s\n", nodeNames(d.Related))
			return nil
		})
	},
}

func relationship(e conceptgraph.Edge) conceptgraph.Relationship {
	if e.Relationship == "" {
		return conceptgraph.RelPrerequisite
	}
	return e.Relationship
}

func nodeNames(ns []conceptgraph.Node) string {
	if len(ns) == 0 {
		return "-"
	}
	names := make([]string, len(ns))
	for i, n := range ns {
		names[i] = n.Name
	}
	return strings.Join(names, ", ")
}

func init() {
	graphShowCmd.Flags().Bool("json", false, "Print the graph as JSON")
	graphConceptCmd.Flags().Bool("json", false, "Print the details as JSON")
	graphPathsCmd.Flags().Int("max", conceptgraph.DefaultMaxPaths, "Maximum number of paths")
	graphNextCmd.Flags().String("mastered", "", "Comma separated IDs of mastered concepts")
	graphNextCmd.Flags().IntP("limit", "n", conceptgraph.DefaultNextLimit, "Maximum number of concepts")

	graphCmd.AddCommand(graphImportCmd)
	graphCmd.AddCommand(graphShowCmd)
	graphCmd.AddCommand(graphPathsCmd)
	graphCmd.AddCommand(graphOrderCmd)
	graphCmd.AddCommand(graphNextCmd)
	graphCmd.AddCommand(graphConceptCmd)
}
