package scrape

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// internalSummarySelector is the designated description container on
// site-hosted detail pages.
const internalSummarySelector = "span#job_summary"

// DetailExtractor turns a posting's detail page into its description text.
// Every failure below this granularity degrades to the sentinel; nothing a
// single detail page does can abort its siblings or the batch.
type DetailExtractor struct {
	fetcher Fetcher
	logger  *zap.Logger
}

// NewDetailExtractor builds a DetailExtractor around the retrieval
// collaborator.
func NewDetailExtractor(fetcher Fetcher, logger *zap.Logger) *DetailExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DetailExtractor{fetcher: fetcher, logger: logger}
}

// Extract fetches jobURL and returns the posting's description under the
// given source classification, or DescriptionUnavailable if the page cannot
// be retrieved or yields no visible text.
func (e *DetailExtractor) Extract(ctx context.Context, jobURL string, source Source) string {
	page, err := e.fetcher.Fetch(ctx, jobURL)
	if err != nil {
		e.logger.Warn("detail fetch failed",
			zap.String("url", jobURL),
			zap.Error(err),
		)
		return DescriptionUnavailable
	}
	return e.FromPage(page, source)
}

// FromPage extracts the description from an already-fetched detail page.
// Internal postings read the summary container verbatim; external postings
// have no common DOM, so extraction falls back to all visible text.
func (e *DetailExtractor) FromPage(page Page, source Source) string {
	desc := ""
	switch source {
	case SourceInternal:
		desc = e.extractInternal(page)
	default:
		desc = e.extractExternal(page)
	}
	desc = NormalizeText(desc)
	if desc == "" {
		return DescriptionUnavailable
	}
	return desc
}

func (e *DetailExtractor) extractInternal(page Page) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		e.logger.Warn("detail parse failed",
			zap.String("url", page.FinalURL),
			zap.Error(err),
		)
		return ""
	}
	summary := doc.Find(internalSummarySelector).First()
	if summary.Length() == 0 {
		e.logger.Debug("internal detail page has no summary container",
			zap.String("url", page.FinalURL),
		)
		return ""
	}
	return strings.TrimSpace(summary.Text())
}

func (e *DetailExtractor) extractExternal(page Page) string {
	root, err := html.Parse(bytes.NewReader(page.Body))
	if err != nil {
		e.logger.Warn("detail parse failed",
			zap.String("url", page.FinalURL),
			zap.Error(err),
		)
		return ""
	}
	return VisibleText(root)
}
