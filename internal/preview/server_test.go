package preview

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/metrics"
)

func testSiteDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Home</h1>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "guide"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guide", "index.html"), []byte("<h1>Guide</h1>"), 0o644))
	return dir
}

func get(t *testing.T, handler http.Handler, path string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	res := rec.Result()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	_ = res.Body.Close()
	return res, string(body)
}

func TestServesSiteFiles(t *testing.T) {
	s := NewServer(testSiteDir(t), nil)
	handler := s.Handler()

	res, body := get(t, handler, "/")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Home")

	res, body = get(t, handler, "/guide/")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Guide")

	res, _ = get(t, handler, "/missing/")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestErrorPageBeforeFirstGoodBuild(t *testing.T) {
	status := &Status{}
	status.SetError(errors.New("nav path guide/setup.md not found"))
	s := NewServer(testSiteDir(t), status)

	res, body := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.Contains(t, body, "Build failed")
	assert.Contains(t, body, "guide/setup.md")
}

func TestKeepsServingLastGoodBuild(t *testing.T) {
	status := &Status{}
	status.SetSuccess()
	status.SetError(errors.New("later failure"))
	s := NewServer(testSiteDir(t), status)

	res, body := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Home")

	// Health still reports the failure.
	res, body = get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.Contains(t, body, "later failure")
}

func TestHealthz(t *testing.T) {
	status := &Status{}
	status.SetSuccess()
	s := NewServer(testSiteDir(t), status)

	res, body := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"ok":true`)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	rec.IncBuildOutcome("success")

	s := NewServer(testSiteDir(t), nil).WithMetrics(reg)
	res, body := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "docsite_build_outcomes_total")
}

func TestStartAndShutdown(t *testing.T) {
	s := NewServer(testSiteDir(t), nil)
	require.NoError(t, s.Start("127.0.0.1:0"))
	defer s.Shutdown(context.Background())

	res, err := http.Get("http://" + s.Addr() + "/")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
