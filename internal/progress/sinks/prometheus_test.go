package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/jobharvest/jobharvester/internal/progress"
	"github.com/jobharvest/jobharvester/internal/scrape"
)

// TestPrometheusSinkRecordsMetrics ensures counters and histograms are incremented from events.
func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := progress.UUIDToBytes(uuid.New())
	query := scrape.Query{Term: "IT Manager", City: "Saint Paul", State: "MN"}
	batch := []progress.Event{
		{RunID: runID, TS: time.Now(), Stage: progress.StageQueryStart, Query: query},
		{
			RunID:  runID,
			TS:     time.Now().Add(time.Second),
			Stage:  progress.StageDetailDone,
			URL:    "https://www.indeed.com/company/acme/jobs/1",
			Source: scrape.SourceInternal,
			Dur:    200 * time.Millisecond,
		},
		{
			RunID:  runID,
			TS:     time.Now().Add(10 * time.Second),
			Stage:  progress.StageQueryDone,
			Query:  query,
			Listed: 25,
			Kept:   20,
			Dur:    10 * time.Second,
		},
		{RunID: runID, TS: time.Now().Add(11 * time.Second), Stage: progress.StagePersistDone, Inserted: 18},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.queriesStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.queriesCompleted.WithLabelValues("success")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.queriesCompleted.WithLabelValues("error")))
	require.Equal(t, 25.0, testutil.ToFloat64(sink.jobsListed))
	require.Equal(t, 20.0, testutil.ToFloat64(sink.jobsKept))
	require.Equal(t, 18.0, testutil.ToFloat64(sink.recordsInserted))

	require.InDelta(
		t,
		1.0,
		testutil.ToFloat64(sink.detailPages.WithLabelValues(string(scrape.SourceInternal))),
		1e-9,
	)
	require.Equal(t, 1, testutil.CollectAndCount(sink.detailLatency, "harvest_detail_duration_seconds"))
	require.Equal(t, 1, testutil.CollectAndCount(sink.queryDuration, "harvest_query_duration_seconds"))
}

// TestPrometheusSinkQueryError checks the error partition is used for failed queries.
func TestPrometheusSinkQueryError(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := progress.UUIDToBytes(uuid.New())
	batch := []progress.Event{
		{RunID: runID, TS: time.Now(), Stage: progress.StageQueryError, Note: "listing fetch failed", Dur: time.Second},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.queriesCompleted.WithLabelValues("error")))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.queriesCompleted.WithLabelValues("success")))
}
