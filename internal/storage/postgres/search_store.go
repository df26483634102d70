package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobharvest/jobharvester/internal/scrape"
)

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// SearchStore reads the ordered (term, city, state) triples a batch should
// run. It assumes a table schema like:
//
//	CREATE TABLE searchqueries (
//		id BIGSERIAL PRIMARY KEY,
//		search_term TEXT NOT NULL,
//		search_city TEXT NOT NULL,
//		search_state TEXT NOT NULL
//	);
type SearchStore struct {
	pool  rowQuerier
	table string
}

// NewSearchStore creates a Postgres-backed SearchStore.
func NewSearchStore(ctx context.Context, dsn, table string) (*SearchStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewSearchStoreWithPool(pool, table)
}

// NewSearchStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewSearchStoreWithPool(pool rowQuerier, table string) (*SearchStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "searchqueries"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &SearchStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *SearchStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Queries returns the search triples in table order.
func (s *SearchStore) Queries(ctx context.Context) ([]scrape.Query, error) {
	query := fmt.Sprintf(`
SELECT search_term, search_city, search_state
FROM %s
ORDER BY id`, s.table)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list search queries: %w", err)
	}
	defer rows.Close()

	var queries []scrape.Query
	for rows.Next() {
		var q scrape.Query
		if err := rows.Scan(&q.Term, &q.City, &q.State); err != nil {
			return nil, fmt.Errorf("scan search query: %w", err)
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search queries: %w", err)
	}
	return queries, nil
}
