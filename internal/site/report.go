package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/validation"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

const reportSchemaVersion = 1

// BuildReport captures the result of one site build. It is persisted
// into the site directory as build-report.json for tooling.
type BuildReport struct {
	SchemaVersion int          `json:"schema_version"`
	BuildID       string       `json:"build_id"`
	Outcome       BuildOutcome `json:"outcome"`
	Start         time.Time    `json:"start"`
	End           time.Time    `json:"end"`

	ConfigHash string `json:"config_hash,omitempty"`
	Pages      int    `json:"pages"`
	Assets     int    `json:"assets"`

	// SkipReason is set when the build short-circuited, e.g.
	// "no_changes" when the history store saw identical inputs.
	SkipReason string `json:"skip_reason,omitempty"`

	StageDurations map[string]float64  `json:"stage_durations_seconds,omitempty"`
	FailedStage    string              `json:"failed_stage,omitempty"`
	Findings       validation.Findings `json:"findings,omitempty"`
	Errors         []string            `json:"errors,omitempty"`
}

// Duration returns the wall-clock build time.
func (r *BuildReport) Duration() time.Duration { return r.End.Sub(r.Start) }

// Summary is a one-line human description of the build.
func (r *BuildReport) Summary() string {
	return fmt.Sprintf("build %s: %s, %d pages, %d findings in %s",
		r.BuildID, r.Outcome, r.Pages, len(r.Findings), r.Duration().Round(time.Millisecond))
}

// addError records a fatal error and the stage it came from.
func (r *BuildReport) addError(stage string, err error) {
	r.FailedStage = stage
	r.Errors = append(r.Errors, err.Error())
}

// deriveOutcome sets the final outcome from the recorded errors and
// findings. Errors always fail; warning findings fail only in strict
// mode, otherwise they demote success to warning.
func (r *BuildReport) deriveOutcome(strict bool) {
	switch {
	case r.Outcome == OutcomeCanceled:
		// set by the stage loop, keep it
	case len(r.Errors) > 0:
		r.Outcome = OutcomeFailed
	case r.Findings.Blocking(strict):
		r.Outcome = OutcomeFailed
	case r.Findings.CountBySeverity()[config.SeverityWarn] > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}
}

// Persist writes the report as build-report.json under dir.
func (r *BuildReport) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal build report: %w", err)
	}
	path := filepath.Join(dir, "build-report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write build report: %w", err)
	}
	return nil
}
