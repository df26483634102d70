// Package progress defines the milestone events emitted while harvesting
// search queries, plus a non-blocking hub that batches them out to pluggable
// sinks such as structured logs or Prometheus collectors.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jobharvest/jobharvester/internal/scrape"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageQueryStart  Stage = "QUERY_START"
	StageQueryDone   Stage = "QUERY_DONE"
	StageQueryError  Stage = "QUERY_ERROR"
	StageDetailDone  Stage = "DETAIL_DONE"
	StagePersistDone Stage = "PERSIST_DONE"
)

// Event captures a single milestone of a harvest run.
type Event struct {
	// RunID identifies a batch run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle milestone occurred.
	Stage Stage
	// Query is the search triple the event concerns.
	Query scrape.Query
	// URL is the optional page URL the event concerns.
	URL string
	// Source labels DETAIL_DONE events with the detail-page classification.
	Source scrape.Source
	// Listed is the number of listing rows extracted for the query.
	Listed int64
	// Kept is the number of records that survived filtering.
	Kept int64
	// Inserted is the number of rows written during persistence.
	Inserted int64
	// Dur captures execution latency for query and detail completions.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageQueryStart, StageQueryError, StagePersistDone:
	case StageQueryDone:
		if e.Query.Term == "" {
			return errors.New("query done requires a search term")
		}
	case StageDetailDone:
		if e.URL == "" {
			return errors.New("detail done requires a url")
		}
		if e.Source != scrape.SourceInternal && e.Source != scrape.SourceExternal {
			return fmt.Errorf("unknown source %q", e.Source)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for logging and storage.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
