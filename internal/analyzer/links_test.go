package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSweepServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/no-head", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/no-head-and-gone", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	return httptest.NewServer(mux)
}

func TestLinkSweep_ReportsBrokenLinks(t *testing.T) {
	t.Parallel()

	srv := newSweepServer(t)
	defer srv.Close()

	sweep := NewLinkSweep(SweepConfig{MaxLinks: 10, Parallelism: 2, Timeout: 5 * time.Second}, zap.NewNop())
	report := sweep.Check(context.Background(), []string{
		srv.URL + "/ok",
		srv.URL + "/missing",
	})
	require.Equal(t, 2, report.Checked)
	require.Len(t, report.Broken, 1)
	require.Equal(t, srv.URL+"/missing", report.Broken[0].URL)
	require.Equal(t, http.StatusNotFound, report.Broken[0].StatusCode)
}

func TestLinkSweep_RetriesWithGETWhenHEADRefused(t *testing.T) {
	t.Parallel()

	srv := newSweepServer(t)
	defer srv.Close()

	sweep := NewLinkSweep(SweepConfig{MaxLinks: 10, Parallelism: 2, Timeout: 5 * time.Second}, zap.NewNop())
	report := sweep.Check(context.Background(), []string{srv.URL + "/no-head"})
	require.Equal(t, 1, report.Checked)
	require.Empty(t, report.Broken, "a 405 on HEAD with a healthy GET is not broken")

	report = sweep.Check(context.Background(), []string{srv.URL + "/no-head-and-gone"})
	require.Equal(t, 1, report.Checked)
	require.Len(t, report.Broken, 1)
}

func TestLinkSweep_UnreachableHost(t *testing.T) {
	t.Parallel()

	sweep := NewLinkSweep(SweepConfig{MaxLinks: 10, Parallelism: 2, Timeout: 2 * time.Second}, zap.NewNop())
	report := sweep.Check(context.Background(), []string{"http://127.0.0.1:1/dead"})
	require.Equal(t, 1, report.Checked)
	require.Len(t, report.Broken, 1)
	require.NotEmpty(t, report.Broken[0].Reason)
}

func TestLinkSweep_TruncatesToMaxLinks(t *testing.T) {
	t.Parallel()

	srv := newSweepServer(t)
	defer srv.Close()

	sweep := NewLinkSweep(SweepConfig{MaxLinks: 2, Parallelism: 2, Timeout: 5 * time.Second}, zap.NewNop())
	report := sweep.Check(context.Background(), []string{
		srv.URL + "/ok",
		srv.URL + "/ok",
		srv.URL + "/missing",
	})
	require.Equal(t, 2, report.Checked)
	require.Empty(t, report.Broken, "the broken link sits past the cap")
}

func TestLinkSweep_EmptyAndCanceled(t *testing.T) {
	t.Parallel()

	sweep := NewLinkSweep(SweepConfig{}, zap.NewNop())
	require.Equal(t, LinkReport{}, sweep.Check(context.Background(), nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, LinkReport{}, sweep.Check(ctx, []string{"http://example.com/"}))
}
