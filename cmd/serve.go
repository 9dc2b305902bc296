package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/kpath/internal/graphsync"
	"github.com/abhisek/kpath/internal/httpapi"
	"github.com/abhisek/kpath/internal/kgraph"
	"github.com/abhisek/kpath/internal/relation"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.HTTP.Addr
		}
		extract, _ := cmd.Flags().GetBool("extract")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, cleanup, err := openService(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		exporter, err := graphsync.Dial(ctx, graphsync.Params{
			URI:      cfg.Neo4j.URI,
			User:     cfg.Neo4j.User,
			Password: cfg.Neo4j.Password,
			Database: cfg.Neo4j.Database,
		}, log)
		if err != nil {
			log.Warn("neo4j unavailable, graph export disabled", "error", err)
			exporter = nil
		}
		defer exporter.Close(context.Background())

		rc := httpapi.RouterConfig{
			Service: svc,
			Builder: kgraph.NewBuilder(builderOptions()...),
			Sync:    exporter,
			Log:     log,
		}
		if extract {
			rc.Extractor = relation.DefaultKeywordSource()
		}
		return httpapi.NewServer(rc).Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().Bool("extract", false, "Derive relations for unit bodies that list none")
}
