package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobharvest/jobharvester/internal/clock/system"
	"github.com/jobharvest/jobharvester/internal/hash/sha256"
	uuidgen "github.com/jobharvest/jobharvester/internal/id/uuid"
	"github.com/jobharvest/jobharvester/internal/runner"
	"github.com/jobharvest/jobharvester/internal/snapshot"
	"github.com/jobharvest/jobharvester/internal/storage/postgres"
)

// newReplayCmd creates the 'replay' subcommand, which loads previously
// captured snapshots and persists them without re-scraping.
func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <snapshot.json> [more...]",
		Short: "Persists one or more snapshot files without re-scraping",
		Long: `Reads query snapshots captured by a previous harvest run, re-applies the
description filter, and writes the surviving records into Postgres. Duplicate
postings are skipped by the store's natural-key constraint, so replaying is
always safe.`,

		Args: cobra.MinimumNArgs(1),
		RunE: runReplayCommand,
	}
}

func runReplayCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewPostingStore(ctx, postgres.PostingStoreConfig{
		DSN:             cfg.DB.DSN,
		Table:           cfg.DB.Table,
		MaxConns:        int32(cfg.DB.MaxConns),
		MinConns:        int32(cfg.DB.MinConns),
		MaxConnLifetime: cfg.ConnLifetime(),
	}, sha256.New(), logger.Named("store"))
	if err != nil {
		return fmt.Errorf("init posting store: %w", err)
	}
	defer store.Close()

	batch, err := runner.NewBatchRunner(
		nil,
		store,
		nil,
		nil,
		nil,
		system.New(),
		uuidgen.New(),
		logger.Named("runner"),
		runner.Config{},
	)
	if err != nil {
		return fmt.Errorf("init runner: %w", err)
	}

	total := 0
	for _, path := range args {
		result, err := snapshot.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read snapshot %s: %w", path, err)
		}
		inserted, err := batch.Replay(ctx, result)
		total += inserted
		if err != nil {
			return fmt.Errorf("replay %s: %w", path, err)
		}
	}

	logger.Info("replay finished", zap.Int("files", len(args)), zap.Int("inserted", total))
	return nil
}
