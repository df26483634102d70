package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Selectors for the listing page's known result-row shape.
const (
	listingRowSelector   = "div.row.result"
	listingTitleSelector = "h2"
)

// ListingExtractor parses a listing-page document into an ordered sequence
// of job stubs. It performs no I/O.
type ListingExtractor struct {
	logger *zap.Logger
}

// NewListingExtractor builds a ListingExtractor.
func NewListingExtractor(logger *zap.Logger) *ListingExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingExtractor{logger: logger}
}

// Extract walks every result row in document order and reads its identifier,
// href, title, and company. A row missing its title anchor is malformed
// markup and fails the whole page; a row that merely fails company lookup is
// recorded with CompanyUnresolved instead.
func (e *ListingExtractor) Extract(doc *goquery.Document) ([]JobStub, error) {
	rows := doc.Find(listingRowSelector)
	stubs := make([]JobStub, 0, rows.Length())

	var parseErr error
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		stub, err := e.extractRow(i, row)
		if err != nil {
			parseErr = err
			return false
		}
		stubs = append(stubs, stub)
		return true
	})
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrListingParse, parseErr)
	}
	return stubs, nil
}

func (e *ListingExtractor) extractRow(index int, row *goquery.Selection) (JobStub, error) {
	heading := row.Find(listingTitleSelector).First()
	anchor := heading.Find("a").First()
	if anchor.Length() == 0 {
		return JobStub{}, fmt.Errorf("result row %d has no title anchor", index)
	}

	stub := JobStub{
		ID:      heading.AttrOr("id", ""),
		RawHref: anchor.AttrOr("href", ""),
		Title:   anchor.AttrOr("title", ""),
		Company: e.extractCompany(row),
	}
	if stub.RawHref == "" {
		return JobStub{}, fmt.Errorf("result row %d title anchor has no href", index)
	}
	return stub, nil
}

// extractCompany reads the company from the row's span. Some listings wrap
// the company name in a link and some do not, hence the two-tier fallback:
// the span's anchor text first, then the span's own text.
func (e *ListingExtractor) extractCompany(row *goquery.Selection) string {
	span := row.Find("span").First()
	if company := strings.TrimSpace(span.Find("a").First().Text()); company != "" {
		return company
	}
	if company := strings.TrimSpace(span.Text()); company != "" {
		return company
	}
	e.logger.Debug("company lookup failed after both fallbacks")
	return CompanyUnresolved
}
