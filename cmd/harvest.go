package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jobharvest/jobharvester/internal/api"
	"github.com/jobharvest/jobharvester/internal/clock/system"
	"github.com/jobharvest/jobharvester/internal/config"
	collyfetcher "github.com/jobharvest/jobharvester/internal/fetcher/colly"
	"github.com/jobharvest/jobharvester/internal/hash/sha256"
	uuidgen "github.com/jobharvest/jobharvester/internal/id/uuid"
	"github.com/jobharvest/jobharvester/internal/metrics"
	"github.com/jobharvest/jobharvester/internal/progress"
	"github.com/jobharvest/jobharvester/internal/progress/sinks"
	gcppublisher "github.com/jobharvest/jobharvester/internal/publisher/pubsub"
	"github.com/jobharvest/jobharvester/internal/runner"
	"github.com/jobharvest/jobharvester/internal/scrape"
	"github.com/jobharvest/jobharvester/internal/snapshot/gcs"
	"github.com/jobharvest/jobharvester/internal/snapshot/local"
	snapmemory "github.com/jobharvest/jobharvester/internal/snapshot/memory"
	"github.com/jobharvest/jobharvester/internal/storage/postgres"
)

var (
	flagTerm  string
	flagCity  string
	flagState string
)

// newHarvestCmd creates the 'harvest' subcommand, which runs a full scrape
// batch: listing pages, detail pages, filtering, and persistence.
func newHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Runs the scrape batch for the configured search queries",
		Long: `Fetches the search results page for each (term, city, state) triple,
follows every posting to its detail page, extracts the visible description,
and writes the surviving records into Postgres. Progress is reported through
structured logs and Prometheus metrics on the ops port.`,

		RunE: runHarvestCommand,
	}
	cmd.Flags().StringVar(&flagTerm, "term", "", "run a single search term instead of the configured queries")
	cmd.Flags().StringVar(&flagCity, "city", "", "city for --term")
	cmd.Flags().StringVar(&flagState, "state", "", "state for --term")
	return cmd
}

func runHarvestCommand(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

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

	queries, err := resolveQueries(ctx)
	if err != nil {
		return err
	}
	if len(queries) == 0 {
		logger.Warn("no search queries to run")
		return nil
	}

	snapshots, cleanupSnapshots, err := buildSnapshotStore(ctx)
	if err != nil {
		return err
	}
	defer cleanupSnapshots()

	publisher, cleanupPublisher, err := buildPublisher(ctx)
	if err != nil {
		return err
	}
	defer cleanupPublisher()

	promSink, err := sinks.NewPrometheusSink(nil)
	if err != nil {
		return fmt.Errorf("init progress metrics: %w", err)
	}
	hub := progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("events")),
		promSink,
	)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("progress hub close failed", zap.Error(err))
		}
	}()

	stopOps := startOpsServer(store.Ping)
	defer stopOps()

	pipeline := buildPipeline(cfg)
	batch, err := runner.NewBatchRunner(
		pipeline,
		store,
		snapshots,
		publisher,
		hub,
		system.New(),
		uuidgen.New(),
		logger.Named("runner"),
		runner.Config{Topic: cfg.PubSub.Topic},
	)
	if err != nil {
		return fmt.Errorf("init runner: %w", err)
	}

	summary, err := batch.RunAll(ctx, queries)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run batch: %w", err)
	}

	logger.Info("harvest finished",
		zap.String("run_id", summary.RunID),
		zap.Int("queries", summary.Queries),
		zap.Int("failed", summary.Failed),
		zap.Int("inserted", summary.Inserted),
	)
	return nil
}

func buildPipeline(cfg config.Config) *scrape.QueryPipeline {
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Scrape.UserAgent,
		RespectRobots: cfg.Scrape.RespectRobots,
		Timeout:       cfg.FetchTimeout(),
	})
	return scrape.NewQueryPipeline(
		fetcher,
		scrape.NewListingExtractor(logger.Named("listing")),
		scrape.NewDetailExtractor(fetcher, logger.Named("detail")),
		scrape.NewClassifier(scrape.DefaultSiteHost, scrape.DefaultCompanyPrefix),
		system.New(),
		logger.Named("pipeline"),
		scrape.PipelineConfig{
			SiteRoot:    cfg.Scrape.SiteRoot,
			Concurrency: cfg.Scrape.Concurrency,
		},
	)
}

// resolveQueries prefers the --term flag triple, then the configured source.
func resolveQueries(ctx context.Context) ([]scrape.Query, error) {
	if flagTerm != "" {
		if flagCity == "" || flagState == "" {
			return nil, errors.New("--term requires --city and --state")
		}
		return []scrape.Query{{Term: flagTerm, City: flagCity, State: flagState}}, nil
	}

	switch cfg.Queries.Source {
	case "config":
		queries := make([]scrape.Query, 0, len(cfg.Queries.Triples))
		for _, t := range cfg.Queries.Triples {
			queries = append(queries, scrape.Query{Term: t.Term, City: t.City, State: t.State})
		}
		return queries, nil
	case "db":
		source, err := postgres.NewSearchStore(ctx, cfg.DB.DSN, "searchqueries")
		if err != nil {
			return nil, fmt.Errorf("init search store: %w", err)
		}
		defer source.Close()
		queries, err := source.Queries(ctx)
		if err != nil {
			return nil, fmt.Errorf("load search queries: %w", err)
		}
		return queries, nil
	default:
		return nil, fmt.Errorf("unknown queries source %q", cfg.Queries.Source)
	}
}

func buildSnapshotStore(ctx context.Context) (scrape.SnapshotStore, func(), error) {
	noop := func() {}
	switch cfg.Snapshot.Provider {
	case "none":
		return nil, noop, nil
	case "memory":
		return snapmemory.New(system.New()), noop, nil
	case "local":
		store, err := local.New(local.Config{BaseDir: cfg.Snapshot.BaseDir}, system.New())
		if err != nil {
			return nil, noop, fmt.Errorf("init local snapshots: %w", err)
		}
		return store, noop, nil
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, noop, fmt.Errorf("init gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{
			Bucket: cfg.Snapshot.Bucket,
			Prefix: cfg.Snapshot.Prefix,
		}, system.New())
		if err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("init gcs snapshots: %w", err)
		}
		return store, func() { client.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown snapshot provider %q", cfg.Snapshot.Provider)
	}
}

func buildPublisher(ctx context.Context) (scrape.Publisher, func(), error) {
	noop := func() {}
	if cfg.PubSub.Topic == "" {
		return nil, noop, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, noop, fmt.Errorf("init pubsub client: %w", err)
	}
	pub := gcppublisher.New(client)
	cleanup := func() {
		pub.Close()
		if err := client.Close(); err != nil {
			logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	return pub, cleanup, nil
}

// startOpsServer serves /healthz, /readyz, and /metrics while the batch runs.
func startOpsServer(ready api.ReadyCheck) func() {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(ready, logger.Named("api")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("ops server shutdown failed", zap.Error(err))
		}
	}
}
