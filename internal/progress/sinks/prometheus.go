package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jobharvest/jobharvester/internal/progress"
	"github.com/jobharvest/jobharvester/internal/scrape"
)

// PrometheusSink exports harvest progress metrics. It owns all collectors for
// query completions, per-source detail fetches, and persistence counts.
type PrometheusSink struct {
	queriesStarted   prometheus.Counter
	queriesCompleted *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec

	jobsListed prometheus.Counter
	jobsKept   prometheus.Counter

	detailPages   *prometheus.CounterVec
	detailLatency *prometheus.HistogramVec

	recordsInserted prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		queriesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvest_queries_started_total",
			Help: "Total search queries that have started.",
		}),
		queriesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_queries_completed_total",
			Help: "Total search queries completed partitioned by result.",
		}, []string{"result"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvest_query_duration_seconds",
			Help:    "Wall time per completed search query.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"result"}),
		jobsListed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvest_jobs_listed_total",
			Help: "Total job rows extracted from listing pages.",
		}),
		jobsKept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvest_jobs_kept_total",
			Help: "Total job records that survived description filtering.",
		}),
		detailPages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvest_detail_pages_total",
			Help: "Detail page completions partitioned by source classification.",
		}, []string{"source"}),
		detailLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvest_detail_duration_seconds",
			Help:    "Detail fetch duration partitioned by source classification.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"source"}),
		recordsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "harvest_records_inserted_total",
			Help: "Total job records written to the posting store.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.queriesStarted,
		s.queriesCompleted,
		s.queryDuration,
		s.jobsListed,
		s.jobsKept,
		s.detailPages,
		s.detailLatency,
		s.recordsInserted,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageQueryStart:
		s.queriesStarted.Inc()
	case progress.StageQueryDone:
		s.queriesCompleted.WithLabelValues("success").Inc()
		s.observeQuery(evt, "success")
		s.jobsListed.Add(float64(evt.Listed))
		s.jobsKept.Add(float64(evt.Kept))
	case progress.StageQueryError:
		s.queriesCompleted.WithLabelValues("error").Inc()
		s.observeQuery(evt, "error")
	case progress.StageDetailDone:
		source := string(evt.Source)
		if source == "" {
			source = string(scrape.SourceExternal)
		}
		s.detailPages.WithLabelValues(source).Inc()
		if evt.Dur > 0 {
			s.detailLatency.WithLabelValues(source).Observe(evt.Dur.Seconds())
		}
	case progress.StagePersistDone:
		s.recordsInserted.Add(float64(evt.Inserted))
	}
}

func (s *PrometheusSink) observeQuery(evt progress.Event, label string) {
	if evt.Dur > 0 {
		s.queryDuration.WithLabelValues(label).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
