package scrape

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeFetcher serves canned pages keyed by requested URL, optionally after a
// per-URL delay to exercise completion-order independence.
type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]Page
	errs   map[string]error
	delays map[string]time.Duration
	calls  []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:  make(map[string]Page),
		errs:   make(map[string]error),
		delays: make(map[string]time.Duration),
	}
}

func (f *fakeFetcher) add(url string, page Page) {
	if page.URL == "" {
		page.URL = url
	}
	if page.FinalURL == "" {
		page.FinalURL = url
	}
	f.pages[url] = page
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	delay := f.delays[url]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Page{}, ctx.Err()
		}
	}
	if err, ok := f.errs[url]; ok {
		return Page{}, err
	}
	page, ok := f.pages[url]
	if !ok {
		return Page{}, errors.New("no such page: " + url)
	}
	return page, nil
}

func TestDetailExtractor_InternalReadsSummaryContainer(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.add("https://www.indeed.com/company/acme/jobs/1", Page{
		StatusCode: 200,
		Body: []byte(`<html><body>
<div class="chrome">navigation noise</div>
<span id="job_summary">  Build data pipelines.  </span>
</body></html>`),
	})

	e := NewDetailExtractor(fetcher, zap.NewNop())
	desc := e.Extract(context.Background(), "https://www.indeed.com/company/acme/jobs/1", SourceInternal)
	require.Equal(t, "Build data pipelines.", desc)
}

func TestDetailExtractor_ExternalTakesAllVisibleText(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.add("https://careers.betacorp.example/1", Page{
		StatusCode: 200,
		Body:       []byte(`<script>ignored</script><p>Hello world</p>`),
	})

	e := NewDetailExtractor(fetcher, zap.NewNop())
	desc := e.Extract(context.Background(), "https://careers.betacorp.example/1", SourceExternal)
	require.Equal(t, "Hello world", desc)
}

func TestDetailExtractor_FetchFailureYieldsSentinel(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.errs["https://careers.betacorp.example/down"] = errors.New("connection refused")

	e := NewDetailExtractor(fetcher, zap.NewNop())
	desc := e.Extract(context.Background(), "https://careers.betacorp.example/down", SourceExternal)
	require.Equal(t, DescriptionUnavailable, desc)
}

func TestDetailExtractor_WhitespaceOnlyYieldsSentinel(t *testing.T) {
	t.Parallel()

	e := NewDetailExtractor(newFakeFetcher(), zap.NewNop())

	desc := e.FromPage(Page{Body: []byte("<html><body>   \n\t </body></html>")}, SourceExternal)
	require.Equal(t, DescriptionUnavailable, desc)

	// Internal page without the summary container degrades the same way.
	desc = e.FromPage(Page{Body: []byte("<html><body><p>text</p></body></html>")}, SourceInternal)
	require.Equal(t, DescriptionUnavailable, desc)
}

func TestDetailExtractor_NormalizesToASCII(t *testing.T) {
	t.Parallel()

	e := NewDetailExtractor(newFakeFetcher(), zap.NewNop())
	desc := e.FromPage(Page{Body: []byte("<p>Ingénieur données à Zürich</p>")}, SourceExternal)
	require.Equal(t, "Ingenieur donnees a Zurich", desc)
}
