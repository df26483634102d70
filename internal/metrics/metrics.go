// Package metrics exposes Prometheus collectors for the harvester service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	harvestPagesTotal       *prometheus.CounterVec
	harvestBytesTotal       *prometheus.CounterVec
	harvestFetchSeconds     *prometheus.HistogramVec
	harvestFetchErrorsTotal *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		harvestPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_pages_total",
				Help: "Total number of pages fetched, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		harvestBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_bytes_total",
				Help: "Total number of bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		harvestFetchSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "harvest_fetch_seconds",
				Help:    "Histogram of page fetch latencies, labeled by site.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		harvestFetchErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvest_fetch_errors_total",
				Help: "Total number of failed fetches, labeled by site.",
			},
			[]string{"site"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records a completed page fetch.
func ObserveFetch(site string, status int, bytesFetched int, duration time.Duration) {
	if harvestPagesTotal == nil {
		return
	}
	sanitized := SanitizeSite(site)
	harvestPagesTotal.WithLabelValues(sanitized, strconv.Itoa(status)).Inc()
	if bytesFetched > 0 {
		harvestBytesTotal.WithLabelValues(sanitized).Add(float64(bytesFetched))
	}
	harvestFetchSeconds.WithLabelValues(sanitized).Observe(duration.Seconds())
}

// ObserveFetchError records a failed page fetch.
func ObserveFetchError(site string) {
	if harvestFetchErrorsTotal == nil {
		return
	}
	harvestFetchErrorsTotal.WithLabelValues(SanitizeSite(site)).Inc()
}
