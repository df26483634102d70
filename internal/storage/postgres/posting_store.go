// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jobharvest/jobharvester/internal/scrape"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const uniqueViolationCode = "23505"

// PostingStoreConfig controls the Postgres connection pool used for job
// posting rows.
type PostingStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostingStore writes job records into Postgres with skip-on-conflict
// semantics. It assumes a table schema like:
//
//	CREATE TABLE jobpostings (
//		id BIGSERIAL PRIMARY KEY,
//		query_term TEXT NOT NULL,
//		query_city TEXT NOT NULL,
//		query_state TEXT NOT NULL,
//		job_url TEXT NOT NULL,
//		job_source TEXT NOT NULL,
//		job_title TEXT NOT NULL,
//		job_company TEXT NOT NULL,
//		job_desc TEXT NOT NULL,
//		dedup_key TEXT NOT NULL UNIQUE,
//		scraped_on DATE NOT NULL,
//		created_at TIMESTAMPTZ DEFAULT NOW()
//	);
//
// dedup_key is the explicit natural key: a digest of the normalized company
// and title. Re-running a query against already-seen postings is a no-op.
type PostingStore struct {
	pool   txBeginner
	table  string
	hasher scrape.Hasher
	logger *zap.Logger
}

// NewPostingStore creates a Postgres-backed PostingStore using the provided
// config.
func NewPostingStore(
	ctx context.Context,
	cfg PostingStoreConfig,
	hasher scrape.Hasher,
	logger *zap.Logger,
) (*PostingStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewPostingStoreWithPool(pool, cfg.Table, hasher, logger)
}

// NewPostingStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewPostingStoreWithPool(
	pool txBeginner,
	table string,
	hasher scrape.Hasher,
	logger *zap.Logger,
) (*PostingStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	if table == "" {
		table = "jobpostings"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostingStore{pool: pool, table: table, hasher: hasher, logger: logger}, nil
}

// Close releases the underlying pool resources.
func (s *PostingStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping reports whether the backing database is reachable. It is used by the
// ops server's readiness probe.
func (s *PostingStore) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("posting store is not configured")
	}
	pool, ok := s.pool.(*pgxpool.Pool)
	if !ok {
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Persist inserts each record in its own transaction. A uniqueness violation
// on the natural key rolls back just that record and continues; any other
// failure aborts the remaining inserts of this batch. The store never
// deletes or updates existing rows.
func (s *PostingStore) Persist(ctx context.Context, jobs []scrape.JobRecord) (int, error) {
	if s == nil || s.pool == nil {
		return 0, fmt.Errorf("posting store is not configured")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	query_term,
	query_city,
	query_state,
	job_url,
	job_source,
	job_title,
	job_company,
	job_desc,
	dedup_key,
	scraped_on
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)`, s.table)

	inserted := 0
	for _, job := range jobs {
		key, err := s.dedupKey(job)
		if err != nil {
			return inserted, fmt.Errorf("dedup key: %w", err)
		}
		if err := s.insertOne(ctx, query, job, key); err != nil {
			if errors.Is(err, errDuplicate) {
				s.logger.Info("duplicate posting skipped",
					zap.String("company", job.Company),
					zap.String("title", job.Title),
				)
				continue
			}
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

var errDuplicate = errors.New("duplicate posting")

func (s *PostingStore) insertOne(ctx context.Context, query string, job scrape.JobRecord, key string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	args := []any{
		job.QueryTerm,
		job.QueryCity,
		job.QueryState,
		job.URL,
		string(job.Source),
		job.Title,
		job.Company,
		job.Description,
		key,
		job.Date,
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Warn("rollback failed", zap.Error(rbErr))
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return errDuplicate
		}
		return fmt.Errorf("insert posting: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

// dedupKey digests the normalized company and title. Whitespace runs and
// letter case do not distinguish postings.
func (s *PostingStore) dedupKey(job scrape.JobRecord) (string, error) {
	company := normalizeKeyPart(job.Company)
	title := normalizeKeyPart(job.Title)
	return s.hasher.Hash([]byte(company + "\x00" + title))
}

func normalizeKeyPart(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
