package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/kpath/internal/graphsync"
	"github.com/abhisek/kpath/internal/kgraph"
	"github.com/abhisek/kpath/internal/relation"
	"github.com/abhisek/kpath/internal/render"
	"github.com/abhisek/kpath/internal/unitfile"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build knowledge graphs from unit files",
}

var graphBuildCmd = &cobra.Command{
	Use:   "build <unit-file>",
	Short: "Build a graph and show removed edges and the study order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		extract, _ := cmd.Flags().GetBool("extract")
		doSync, _ := cmd.Flags().GetBool("sync")
		asJSON, _ := cmd.Flags().GetBool("json")

		f, err := loadUnit(args[0], extract)
		if err != nil {
			return err
		}
		u := f.Unit()
		g := kgraph.Build(u.Points, u.Relations, builderOptions()...)

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(g.Summarize()); err != nil {
				return err
			}
		} else {
			printOut(cmd.OutOrStdout(), render.Graph(theme(cmd), u.Name, g))
		}

		if doSync {
			return syncGraphs(cmd, []kgraph.UnitGraph{{Name: u.Name, Graph: g}})
		}
		return nil
	},
}

var graphBatchCmd = &cobra.Command{
	Use:   "batch <unit-file>...",
	Short: "Build several units in parallel",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		extract, _ := cmd.Flags().GetBool("extract")
		doSync, _ := cmd.Flags().GetBool("sync")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency <= 0 {
			concurrency = cfg.Graph.Concurrency
		}

		units := make([]kgraph.Unit, 0, len(args))
		for _, path := range args {
			f, err := loadUnit(path, extract)
			if err != nil {
				return err
			}
			units = append(units, f.Unit())
		}

		start := time.Now()
		graphs, err := kgraph.BuildAll(cmd.Context(), units, concurrency, builderOptions()...)
		if err != nil {
			return err
		}
		t := theme(cmd)
		for _, ug := range graphs {
			printOut(cmd.OutOrStdout(), render.Graph(t, ug.Name, ug.Graph), "")
		}
		printOut(cmd.OutOrStdout(), t.Hint.Render(fmt.Sprintf("%d units built in %s", len(graphs), time.Since(start).Round(time.Millisecond))))

		if doSync {
			return syncGraphs(cmd, graphs)
		}
		return nil
	},
}

func loadUnit(path string, extract bool) (*unitfile.File, error) {
	f, err := unitfile.ParseFile(path)
	if err != nil {
		return nil, err
	}
	if extract {
		n := f.ExtractRelations(relation.DefaultKeywordSource())
		log.Debug("extracted relations", "unit", f.Name, "relations", n)
	}
	return f, nil
}

func syncGraphs(cmd *cobra.Command, graphs []kgraph.UnitGraph) error {
	if cfg.Neo4j.URI == "" {
		return fmt.Errorf("--sync needs neo4j.uri (or KPATH_NEO4J_URI) to be set")
	}
	ctx := cmd.Context()
	client, err := graphsync.Dial(ctx, graphsync.Params{
		URI:      cfg.Neo4j.URI,
		User:     cfg.Neo4j.User,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	}, log)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	for _, ug := range graphs {
		stats, err := client.Export(ctx, ug.Name, ug.Graph)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "synced %s: %d nodes, %d relations, %d removed\n",
			ug.Name, stats.Nodes, stats.Relations, stats.Removed)
	}
	return nil
}

func init() {
	graphBuildCmd.Flags().Bool("extract", false, "Derive relations from keywords when the file lists none")
	graphBuildCmd.Flags().Bool("sync", false, "Export the graph to Neo4j")
	graphBuildCmd.Flags().Bool("json", false, "Print the graph summary as JSON")

	graphBatchCmd.Flags().Bool("extract", false, "Derive relations from keywords when a file lists none")
	graphBatchCmd.Flags().Bool("sync", false, "Export the graphs to Neo4j")
	graphBatchCmd.Flags().Int("concurrency", 0, "Parallel builds (default from config)")

	graphCmd.AddCommand(graphBuildCmd)
	graphCmd.AddCommand(graphBatchCmd)
}
