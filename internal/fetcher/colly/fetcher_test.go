package collyfetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchReportsFinalURLAfterRedirect(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/rc/clk", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/company/acme/jobs/engineer", http.StatusFound)
	})
	mux.HandleFunc("/company/acme/jobs/engineer", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<span id="job_summary">hi</span>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(Config{UserAgent: "jobharvester-test", Timeout: 5 * time.Second})
	page, err := f.Fetch(context.Background(), srv.URL+"/rc/clk")
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/rc/clk", page.URL)
	require.Equal(t, srv.URL+"/company/acme/jobs/engineer", page.FinalURL)
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.Contains(t, string(page.Body), "job_summary")
	require.Greater(t, page.Duration, time.Duration(0))
}

func TestFetchNonSuccessStatusIsAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
}

func TestFetchUnreachableHostIsAnError(t *testing.T) {
	t.Parallel()

	f := New(Config{Timeout: time.Second})
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/nothing")
	require.Error(t, err)
}

func TestFetchSendsConfiguredUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "jobharvester/0.1", Timeout: 5 * time.Second})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "jobharvester/0.1", gotUA)
}
