package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/handsomefox/nextep/internal/config"
	"github.com/handsomefox/nextep/internal/discover"
	"github.com/handsomefox/nextep/internal/logger"
	"github.com/handsomefox/nextep/internal/tmdb"
)

// app holds what every subcommand needs once config is loaded.
type app struct {
	cfg      *config.Config
	builder  *discover.Builder
	catalog  *tmdb.Client
	logger   *slog.Logger
	debounce time.Duration
	json     bool
}

type appKey struct{}

func appFrom(cmd *cobra.Command) (*app, error) {
	a, ok := cmd.Context().Value(appKey{}).(*app)
	if !ok {
		return nil, errors.New("command not initialized")
	}
	return a, nil
}

func newRootCmd() *cobra.Command {
	var (
		jsonOutput bool
		logLevel   string
	)

	root := &cobra.Command{
		Use:   "nextep",
		Short: "Search and discover movies and series from the terminal",
		Long: `nextep - search, discover and trending lists from TMDB

Reads the same configuration as the server: TMDB_API_KEY or
TMDB_API_READ_TOKEN, optionally a TOML file named by NEXTEP_CONFIG.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.Requirements{})
			if err != nil {
				return err
			}
			builder, err := discover.NewBuilder(cfg.BuilderOptions())
			if err != nil {
				return err
			}
			catalog, err := tmdb.New(cfg.TMDBClient())
			if err != nil {
				return err
			}
			level := cfg.Server.LogLevel
			if cmd.Flags().Changed("log-level") {
				level = logLevel
			}
			a := &app{
				cfg:      cfg,
				builder:  builder,
				catalog:  catalog,
				logger:   logger.NewWithWriter(cmd.ErrOrStderr(), logger.ParseLevel(level)),
				debounce: cfg.Discover.Debounce.Duration,
				json:     jsonOutput,
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.Version = version
	root.SetVersionTemplate("nextep {{.Version}}\n")

	root.AddCommand(newSearchCmd(), newDiscoverCmd(), newTrendingCmd())
	return root
}
