// Package runner orchestrates a batch of search queries end to end: scrape,
// filter, snapshot, persist, and report progress. One query's failure never
// stops the batch.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobharvest/jobharvester/internal/progress"
	"github.com/jobharvest/jobharvester/internal/scrape"
)

// QueryRunner executes one search triple and returns its full result.
// *scrape.QueryPipeline satisfies this.
type QueryRunner interface {
	Run(ctx context.Context, query scrape.Query) (scrape.QueryResult, error)
}

// Config controls optional runner behavior.
type Config struct {
	// Topic names the completion-notification topic. Empty disables
	// publishing even when a publisher is wired.
	Topic string
}

// BatchRunner drives a set of search queries through the pipeline and into
// the record store. Snapshots, publisher, and emitter are optional; a nil
// dependency disables that side effect.
type BatchRunner struct {
	pipeline  QueryRunner
	store     scrape.RecordStore
	snapshots scrape.SnapshotStore
	publisher scrape.Publisher
	emitter   progress.Emitter
	clock     scrape.Clock
	idGen     scrape.IDGenerator
	logger    *zap.Logger
	cfg       Config
}

// Summary aggregates the outcome of a batch run.
type Summary struct {
	RunID    string `json:"run_id"`
	Queries  int    `json:"queries"`
	Failed   int    `json:"failed"`
	Listed   int    `json:"listed"`
	Kept     int    `json:"kept"`
	Inserted int    `json:"inserted"`
}

// QueryNotification is the payload published after each persisted query.
type QueryNotification struct {
	RunID       string    `json:"run_id"`
	Term        string    `json:"search_term"`
	City        string    `json:"search_city"`
	State       string    `json:"search_state"`
	URL         string    `json:"search_url"`
	Listed      int       `json:"listed"`
	Kept        int       `json:"kept"`
	Inserted    int       `json:"inserted"`
	SnapshotURI string    `json:"snapshot_uri,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewBatchRunner wires a runner over its collaborators. store, clock, and
// idGen are required; pipeline may be nil for replay-only runners.
func NewBatchRunner(
	pipeline QueryRunner,
	store scrape.RecordStore,
	snapshots scrape.SnapshotStore,
	publisher scrape.Publisher,
	emitter progress.Emitter,
	clock scrape.Clock,
	idGen scrape.IDGenerator,
	logger *zap.Logger,
	cfg Config,
) (*BatchRunner, error) {
	if store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if idGen == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchRunner{
		pipeline:  pipeline,
		store:     store,
		snapshots: snapshots,
		publisher: publisher,
		emitter:   emitter,
		clock:     clock,
		idGen:     idGen,
		logger:    logger,
		cfg:       cfg,
	}, nil
}

// RunAll processes the queries in order. Each failed query is logged,
// reported, and skipped; the batch keeps going. The returned error is non-nil
// only when the context is canceled or a run ID cannot be generated.
func (r *BatchRunner) RunAll(ctx context.Context, queries []scrape.Query) (Summary, error) {
	if r.pipeline == nil {
		return Summary{}, fmt.Errorf("pipeline is required")
	}
	runID, err := r.idGen.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("new run id: %w", err)
	}
	summary := Summary{RunID: runID}
	logger := r.logger.With(zap.String("run_id", runID))
	logger.Info("batch run starting", zap.Int("queries", len(queries)))

	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("batch interrupted: %w", err)
		}
		r.runOne(ctx, runID, query, &summary, logger)
	}

	logger.Info("batch run finished",
		zap.Int("queries", summary.Queries),
		zap.Int("failed", summary.Failed),
		zap.Int("listed", summary.Listed),
		zap.Int("kept", summary.Kept),
		zap.Int("inserted", summary.Inserted),
	)
	return summary, nil
}

func (r *BatchRunner) runOne(ctx context.Context, runID string, query scrape.Query, summary *Summary, logger *zap.Logger) {
	summary.Queries++
	logger = logger.With(
		zap.String("term", query.Term),
		zap.String("city", query.City),
		zap.String("state", query.State),
	)

	start := r.clock.Now()
	r.emit(progress.Event{RunID: runIDBytes(runID), TS: start, Stage: progress.StageQueryStart, Query: query})

	result, err := r.pipeline.Run(ctx, query)
	if err != nil {
		summary.Failed++
		logger.Error("query failed", zap.Error(err))
		r.emit(progress.Event{
			RunID: runIDBytes(runID),
			TS:    r.clock.Now(),
			Stage: progress.StageQueryError,
			Query: query,
			Dur:   r.clock.Now().Sub(start),
			Note:  err.Error(),
		})
		return
	}

	kept := scrape.KeepJobs(result.Jobs)
	summary.Listed += len(result.Jobs)
	summary.Kept += len(kept)

	for _, job := range result.Jobs {
		if job.URL == "" {
			continue
		}
		r.emit(progress.Event{
			RunID:  runIDBytes(runID),
			TS:     r.clock.Now(),
			Stage:  progress.StageDetailDone,
			Query:  query,
			URL:    job.URL,
			Source: job.Source,
		})
	}

	// Snapshots keep the unfiltered result so replays can re-decide.
	snapshotURI := r.saveSnapshot(ctx, result, logger)

	r.emit(progress.Event{
		RunID:  runIDBytes(runID),
		TS:     r.clock.Now(),
		Stage:  progress.StageQueryDone,
		Query:  query,
		URL:    result.URL,
		Listed: int64(len(result.Jobs)),
		Kept:   int64(len(kept)),
		Dur:    r.clock.Now().Sub(start),
	})

	inserted, err := r.store.Persist(ctx, kept)
	summary.Inserted += inserted
	if err != nil {
		summary.Failed++
		logger.Error("persist failed", zap.Int("inserted", inserted), zap.Error(err))
	} else {
		logger.Info("query persisted",
			zap.Int("listed", len(result.Jobs)),
			zap.Int("kept", len(kept)),
			zap.Int("inserted", inserted),
		)
	}
	r.emit(progress.Event{
		RunID:    runIDBytes(runID),
		TS:       r.clock.Now(),
		Stage:    progress.StagePersistDone,
		Query:    query,
		Inserted: int64(inserted),
	})

	r.publish(ctx, QueryNotification{
		RunID:       runID,
		Term:        query.Term,
		City:        query.City,
		State:       query.State,
		URL:         result.URL,
		Listed:      len(result.Jobs),
		Kept:        len(kept),
		Inserted:    inserted,
		SnapshotURI: snapshotURI,
		CompletedAt: r.clock.Now(),
	}, logger)
}

// Replay filters and persists a previously captured result, returning the
// number of rows inserted. Used by the replay command.
func (r *BatchRunner) Replay(ctx context.Context, result scrape.QueryResult) (int, error) {
	kept := scrape.KeepJobs(result.Jobs)
	inserted, err := r.store.Persist(ctx, kept)
	if err != nil {
		return inserted, fmt.Errorf("replay persist: %w", err)
	}
	r.logger.Info("snapshot replayed",
		zap.String("term", result.Query.Term),
		zap.Int("kept", len(kept)),
		zap.Int("inserted", inserted),
	)
	return inserted, nil
}

func (r *BatchRunner) saveSnapshot(ctx context.Context, result scrape.QueryResult, logger *zap.Logger) string {
	if r.snapshots == nil {
		return ""
	}
	uri, err := r.snapshots.Save(ctx, result)
	if err != nil {
		logger.Warn("snapshot save failed", zap.Error(err))
		return ""
	}
	logger.Debug("snapshot saved", zap.String("uri", uri))
	return uri
}

func (r *BatchRunner) publish(ctx context.Context, note QueryNotification, logger *zap.Logger) {
	if r.publisher == nil || r.cfg.Topic == "" {
		return
	}
	id, err := r.publisher.Publish(ctx, r.cfg.Topic, note)
	if err != nil {
		logger.Warn("completion publish failed", zap.Error(err))
		return
	}
	logger.Debug("completion published", zap.String("message_id", id))
}

func (r *BatchRunner) emit(evt progress.Event) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(evt)
}

func runIDBytes(runID string) [16]byte {
	id, err := uuid.Parse(runID)
	if err != nil {
		return [16]byte{}
	}
	return progress.UUIDToBytes(id)
}
