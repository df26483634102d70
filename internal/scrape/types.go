// Package scrape defines the core types and pipeline for harvesting job
// postings: listing-page extraction, source classification, detail-page
// description extraction, and filtering.
package scrape

import (
	"time"
)

// DescriptionUnavailable is the sentinel stored when a posting's description
// could not be extracted. It is distinct from the empty string: records
// carrying it are dropped by KeepJobs before persistence.
const DescriptionUnavailable = "NA"

// CompanyUnresolved marks a listing row whose company could not be read after
// both lookup fallbacks. The row is kept rather than aborting the page.
const CompanyUnresolved = "(unresolved)"

// Source says where a posting's detail page lives relative to the listing
// site. It is decided once, from the final post-redirect URL, and selects the
// detail extraction strategy.
type Source string

// Supported posting sources.
const (
	// SourceInternal postings live on the listing site and expose a
	// predictable summary container.
	SourceInternal Source = "internal"
	// SourceExternal postings live elsewhere; extraction falls back to
	// all visible text.
	SourceExternal Source = "external"
)

// Query is one (term, city, state) search triple.
type Query struct {
	Term  string `json:"term"`
	City  string `json:"city"`
	State string `json:"state"`
}

// JobStub is the minimal per-row metadata read from a listing page. RawHref
// may be path-relative; it is resolved and redirect-followed later.
type JobStub struct {
	ID      string `json:"id"`
	RawHref string `json:"raw_href"`
	Title   string `json:"title"`
	Company string `json:"company"`
}

// JobRecord is the pipeline's terminal artifact, persisted once and never
// updated. URL is absolute and final (post-redirect). Date is the day the
// listing was scraped, not the posting's publication date.
type JobRecord struct {
	QueryTerm   string    `json:"query_term"`
	QueryCity   string    `json:"query_city"`
	QueryState  string    `json:"query_state"`
	URL         string    `json:"job_url"`
	Source      Source    `json:"job_source"`
	Title       string    `json:"job_title"`
	Company     string    `json:"job_company"`
	Description string    `json:"job_desc"`
	Date        time.Time `json:"date"`
}

// QueryResult aggregates one pipeline run. Jobs preserve listing order. After
// a result is snapshotted it must not be mutated.
type QueryResult struct {
	Query Query       `json:"query"`
	URL   string      `json:"url"`
	Jobs  []JobRecord `json:"jobs"`
}

// Page is a fetched document. FinalURL is the URL after redirects, which may
// differ from the requested URL and is the only URL safe to classify.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}
