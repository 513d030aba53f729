// Package metrics provides observability hooks for site builds. All
// components take a Recorder; the NoopRecorder is the default so
// callers never nil-check, and the Prometheus implementation is
// injected when metrics are enabled in the configuration.
package metrics

import "time"

// Recorder defines the observability hooks for build and validation
// metrics. All methods must be safe on a nil or zero receiver so
// injection stays optional.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string) // success|warning|failed|canceled
	SetPagesRendered(n int)
	IncFinding(category, severity string)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(string)                     {}
func (NoopRecorder) SetPagesRendered(int)                       {}
func (NoopRecorder) IncFinding(string, string)                  {}
