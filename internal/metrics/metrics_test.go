package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("render", time.Second)
	r.ObserveBuildDuration(time.Second)
	r.IncBuildOutcome("success")
	r.SetPagesRendered(3)
	r.IncFinding("broken_links", "warn")
}

func TestPrometheusRecorderNilReceiver(t *testing.T) {
	var p *PrometheusRecorder
	p.ObserveStageDuration("render", time.Second)
	p.IncBuildOutcome("failed")
	p.SetPagesRendered(1)
	p.IncFinding("anchors", "info")
}

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prom.NewRegistry()
	p := NewPrometheusRecorder(reg)

	p.IncBuildOutcome("success")
	p.IncBuildOutcome("success")
	p.IncFinding("broken_links", "warn")
	p.SetPagesRendered(42)

	assert.Equal(t, float64(2), testutil.ToFloat64(p.buildOutcome.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.findings.WithLabelValues("broken_links", "warn")))
	assert.Equal(t, float64(42), testutil.ToFloat64(p.pagesRendered))
}

func TestPrometheusRecorderAccumulatesAcrossBuilds(t *testing.T) {
	reg := prom.NewRegistry()
	p := NewPrometheusRecorder(reg)

	// Two builds reported through the same recorder land in the same
	// registered collectors.
	p.IncBuildOutcome("success")
	p.ObserveBuildDuration(time.Second)
	p.IncBuildOutcome("warning")
	p.ObserveBuildDuration(2 * time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(p.buildOutcome.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.buildOutcome.WithLabelValues("warning")))
	count, err := testutil.GatherAndCount(reg, "docsite_build_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewPrometheusRecorderDefaultsRegistry(t *testing.T) {
	p := NewPrometheusRecorder(nil)
	require.NotNil(t, p)
	p.IncBuildOutcome("warning")
}
