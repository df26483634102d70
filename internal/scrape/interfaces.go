package scrape

import (
	"context"
	"time"
)

// Fetcher retrieves a document and reports the post-redirect final URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// RecordStore persists job records idempotently. Duplicate records (by
// natural key) are skipped without failing the batch; the return value counts
// rows actually inserted.
type RecordStore interface {
	Persist(ctx context.Context, jobs []JobRecord) (int, error)
}

// SearchSource yields the ordered search triples a batch should run.
type SearchSource interface {
	Queries(ctx context.Context) ([]Query, error)
}

// SnapshotStore writes a full-fidelity serialization of a QueryResult for
// offline replay and returns a URI for the stored artifact.
type SnapshotStore interface {
	Save(ctx context.Context, result QueryResult) (string, error)
}

// Publisher pushes per-query completion notifications.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes the hex digest used for dedup keys.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces batch run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
