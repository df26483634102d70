package scrape

import "errors"

// Sentinel errors for failures at pipeline-run granularity. Anything below
// this granularity (a single job's detail fetch or parse) is recovered
// locally with the DescriptionUnavailable sentinel and never surfaced.
var (
	// ErrListingFetch wraps a failure to retrieve the listing page. Fatal
	// to one pipeline run; the batch runner logs it and moves on.
	ErrListingFetch = errors.New("listing fetch failed")

	// ErrListingParse wraps malformed markup in the listing page, including
	// a result row missing its title anchor.
	ErrListingParse = errors.New("listing parse failed")
)
