package cmd

import (
	"context"
	"fmt"
	"io"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/kpath/internal/config"
	"github.com/abhisek/kpath/internal/kgraph"
	"github.com/abhisek/kpath/internal/learner"
	"github.com/abhisek/kpath/internal/lock"
	"github.com/abhisek/kpath/internal/logger"
	"github.com/abhisek/kpath/internal/render"
	"github.com/abhisek/kpath/internal/store"
)

var (
	cfg config.Config
	log = logger.Nop()
)

var rootCmd = &cobra.Command{
	Use:          "kpath",
	Short:        "Knowledge graphs and adaptive study paths",
	Long:         "kpath builds acyclic prerequisite graphs from content units, plans study paths per learner, and adjusts them as learning events arrive.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides KPATH_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to a JSON or JSONC config file")
	rootCmd.PersistentFlags().String("log", "", "Log mode: dev or prod (overrides KPATH_LOG env var)")
	rootCmd.PersistentFlags().Bool("plain", false, "Disable colors and borders")

	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(masteryCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup resolves configuration (defaults, file, env, then flags) and builds
// the logger.
func setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		c.DBPath = p
	}
	if m, _ := cmd.Flags().GetString("log"); m != "" {
		c.LogMode = m
	}
	if err := c.Validate(); err != nil {
		return err
	}
	l, err := logger.New(c.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cfg, log = c, l
	return nil
}

// resolveDBPath returns the database path using --db flag or config
// (highest priority), then KPATH_DB env var, then the default XDG path.
func resolveDBPath() (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

func theme(cmd *cobra.Command) render.Theme {
	if plain, _ := cmd.Flags().GetBool("plain"); plain {
		return render.PlainTheme()
	}
	return render.DefaultTheme()
}

func printOut(w io.Writer, blocks ...string) {
	for _, b := range blocks {
		lipgloss.Fprintln(w, b)
	}
}

func builderOptions() []kgraph.Option {
	return []kgraph.Option{
		kgraph.WithLogger(log),
		kgraph.WithMaxCycleLength(cfg.Graph.MaxCycleLength),
		kgraph.WithMaxCyclesPerRound(cfg.Graph.MaxCyclesPerRound),
	}
}

// openService opens the store and wires a learner service. The returned
// func releases everything it opened.
func openService(ctx context.Context) (*learner.Service, func(), error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	cleanup := func() { st.Close() }

	var locker lock.Locker
	if cfg.Redis.Addr != "" {
		rdb, err := lock.DialRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		rl := lock.NewRedisLocker(rdb, cfg.Redis.LockTTL.Duration, log)
		locker = rl
		cleanup = func() {
			rl.Close()
			st.Close()
		}
	}

	svc, err := learner.NewService(learner.Config{
		Paths:        st.PathRepo(),
		Events:       st.EventRepo(),
		Mastery:      st.MasteryRepo(),
		Locker:       locker,
		Log:          log,
		Keep:         cfg.Paths.Keep,
		TrackMastery: cfg.Paths.TrackMastery,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}
