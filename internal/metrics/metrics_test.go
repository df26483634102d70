package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSanitizeSite(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://www.indeed.com/jobs?q=SRE": "www.indeed.com",
		"https://EXAMPLE.COM/careers":       "example.com",
		"example.com/careers":               "example.com",
		"://bad":                            "unknown",
		"":                                  "unknown",
	}
	for input, want := range cases {
		require.Equal(t, want, SanitizeSite(input), "input %q", input)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveFetch("https://www.indeed.com/jobs", 200, 2048, 120*time.Millisecond)
	ObserveFetchError("https://www.indeed.com/rc/clk")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "harvest_pages_total")
	require.Contains(t, rec.Body.String(), "harvest_fetch_errors_total")
}
