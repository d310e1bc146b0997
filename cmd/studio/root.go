package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"storystudio/internal/adapter/repo"
	"storystudio/internal/infra"
)

var (
	outputJSON bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Submit stories for illustrated book generation and follow their progress",
	Long: `studio talks to the same job store as the API. It can submit a story to the
generation webhook and follow it until the book is ready, report the state of
a story, and list the story library.

Configuration is read from the environment (and an optional .env file), the
same keys the API uses: DATABASE_URL, TRIGGER_URL, TRIGGER_TOKEN,
POLL_INTERVAL, POLL_MAX_ATTEMPTS.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print machine-readable JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log SQL and trigger activity")

	rootCmd.AddCommand(generateCmd, statusCmd, storiesCmd, tokenCmd)
}

// env bundles what every subcommand needs.
type env struct {
	cfg     *infra.Config
	logger  zerolog.Logger
	pool    *pgxpool.Pool
	runner  *infra.SQLRunner
	stories *repo.StoryRepositoryPG
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := infra.NewLogger(cfg.AppEnv, "studio")
	if !verbose {
		logger = logger.Level(zerolog.WarnLevel)
	}
	pool, err := infra.NewDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	runner := infra.NewSQLRunner(pool, logger)
	return &env{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		runner:  runner,
		stories: repo.NewStoryRepository(runner),
	}, nil
}

func (e *env) Close() {
	e.pool.Close()
}
