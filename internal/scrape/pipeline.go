package scrape

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// PipelineConfig controls one QueryPipeline.
type PipelineConfig struct {
	// SiteRoot prefixes relative listing hrefs (default DefaultSiteRoot).
	SiteRoot string
	// Concurrency bounds the detail-fetch worker pool. Values below 1 run
	// the pipeline sequentially.
	Concurrency int
}

// QueryPipeline orchestrates listing extraction, per-job classification, and
// detail extraction for one search triple. Per-job detail work runs on a
// bounded worker pool; each worker writes into its own pre-allocated record
// slot, so the output order always matches listing order no matter which
// fetch completes first.
type QueryPipeline struct {
	fetcher    Fetcher
	listing    *ListingExtractor
	detail     *DetailExtractor
	classifier Classifier
	clock      Clock
	logger     *zap.Logger
	cfg        PipelineConfig
}

// NewQueryPipeline wires a QueryPipeline from its collaborators.
func NewQueryPipeline(
	fetcher Fetcher,
	listing *ListingExtractor,
	detail *DetailExtractor,
	classifier Classifier,
	clock Clock,
	logger *zap.Logger,
	cfg PipelineConfig,
) *QueryPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SiteRoot == "" {
		cfg.SiteRoot = DefaultSiteRoot
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &QueryPipeline{
		fetcher:    fetcher,
		listing:    listing,
		detail:     detail,
		classifier: classifier,
		clock:      clock,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run executes the pipeline for one search triple. A failure to retrieve or
// parse the listing page is fatal to this run only and surfaces as
// ErrListingFetch or ErrListingParse; a failure on any single job's detail
// page degrades that one record to the sentinel description.
func (p *QueryPipeline) Run(ctx context.Context, query Query) (QueryResult, error) {
	searchURL := BuildSearchURL(p.cfg.SiteRoot, query)
	result := QueryResult{Query: query, URL: searchURL}

	page, err := p.fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrListingFetch, err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrListingParse, err)
	}
	stubs, err := p.listing.Extract(doc)
	if err != nil {
		return result, err
	}

	p.logger.Debug("listing extracted",
		zap.String("url", searchURL),
		zap.Int("stubs", len(stubs)),
	)

	result.Jobs = p.describeAll(ctx, query, stubs)
	return result, nil
}

// describeAll fans the stubs out to the worker pool. Slots are disjoint, so
// no lock is needed around the records slice.
func (p *QueryPipeline) describeAll(ctx context.Context, query Query, stubs []JobStub) []JobRecord {
	records := make([]JobRecord, len(stubs))
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, stub := range stubs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, stub JobStub) {
			defer wg.Done()
			defer func() { <-sem }()
			records[i] = p.describeJob(ctx, query, stub)
		}(i, stub)
	}
	wg.Wait()
	return records
}

// describeJob folds one stub into a complete JobRecord. The detail page is
// fetched exactly once; classification happens strictly after redirect
// resolution because the raw href is usually a redirector path that carries
// no source signal.
func (p *QueryPipeline) describeJob(ctx context.Context, query Query, stub JobStub) JobRecord {
	record := JobRecord{
		QueryTerm:   query.Term,
		QueryCity:   query.City,
		QueryState:  query.State,
		Title:       stub.Title,
		Company:     stub.Company,
		Description: DescriptionUnavailable,
		Date:        p.clock.Now(),
	}

	resolved, err := ResolveHref(p.cfg.SiteRoot, stub.RawHref)
	if err != nil {
		p.logger.Warn("job href unresolvable",
			zap.String("job_id", stub.ID),
			zap.String("href", stub.RawHref),
			zap.Error(err),
		)
		record.URL = stub.RawHref
		record.Source = SourceExternal
		return record
	}
	record.URL = resolved
	record.Source = p.classifier.Classify(resolved)

	page, err := p.fetcher.Fetch(ctx, resolved)
	if err != nil {
		p.logger.Warn("detail fetch failed",
			zap.String("job_id", stub.ID),
			zap.String("url", resolved),
			zap.Error(err),
		)
		return record
	}

	record.URL = page.FinalURL
	record.Source = p.classifier.Classify(page.FinalURL)
	record.Description = p.detail.FromPage(page, record.Source)
	return record
}
