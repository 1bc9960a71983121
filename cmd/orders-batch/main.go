package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/orders-intake/internal/common"
	"github.com/joseph-ayodele/orders-intake/internal/core"
	"github.com/joseph-ayodele/orders-intake/internal/repository"
)

var (
	envFile string
	verbose bool
	logger  *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := &cobra.Command{
		Use:           "orders-batch",
		Short:         "Extract purchase orders from email text and review them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("load %s: %w", envFile, err)
				}
			}
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(migrateCmd(), seedCmd(), runCmd(), ingestCmd(), approveCmd(), rejectCmd(), exportCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
}

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

// connect opens the configured database.
func connect(ctx context.Context, cfg *common.Config) (*repository.DB, error) {
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, err
	}
	db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return nil, fmt.Errorf("opening DB: %w", err)
	}
	return db, nil
}

// openDB opens and migrates the configured database.
func openDB(ctx context.Context, cfg *common.Config) (*repository.DB, error) {
	db, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// withDeps runs fn against a fully wired processor stack. Commands that never
// call the model only need a valid database section.
func withDeps(ctx context.Context, needsLLM bool, fn func(*core.Deps) error) error {
	cfg := common.LoadConfig()
	validate := cfg.ValidateDatabase
	if needsLLM {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return err
	}
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	deps, err := core.Wire(cfg, db, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("closing event publisher", "err", err)
		}
	}()
	return fn(deps)
}
