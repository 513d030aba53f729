// Package validation checks a loaded configuration and a built site
// against the configured policy: navigation consistency, plugin and
// extension recognition, and the link check categories. Each check is a
// rule; rules run in sequence and findings aggregate with per-category
// severities.
package validation

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/render"
)

// Category identifies a validation check category.
type Category string

const (
	CategoryNav               Category = "nav"
	CategoryPlugins           Category = "plugins"
	CategoryExtensions        Category = "markdown_extensions"
	CategoryOmittedFiles      Category = "omitted_files"
	CategoryBrokenLinks       Category = "broken_links"
	CategoryAbsoluteLinks     Category = "absolute_links"
	CategoryUnrecognizedLinks Category = "unrecognized_links"
	CategoryAnchors           Category = "anchors"
)

// Finding is a single validation issue.
type Finding struct {
	Category Category        `json:"category"`
	Severity config.Severity `json:"severity"`
	Page     string          `json:"page,omitempty"`
	Detail   string          `json:"detail"`
}

func (f Finding) String() string {
	if f.Page != "" {
		return fmt.Sprintf("[%s] %s: %s", f.Category, f.Page, f.Detail)
	}
	return fmt.Sprintf("[%s] %s", f.Category, f.Detail)
}

// Findings aggregates issues across all rules.
type Findings []Finding

// CountBySeverity tallies findings per severity.
func (f Findings) CountBySeverity() map[config.Severity]int {
	counts := map[config.Severity]int{}
	for _, finding := range f {
		counts[finding.Severity]++
	}
	return counts
}

// Blocking reports whether the findings fail the build. Errors always
// block; in strict mode warnings block too. Info and ignored findings
// never block.
func (f Findings) Blocking(strict bool) bool {
	for _, finding := range f {
		switch finding.Severity {
		case config.SeverityError:
			return true
		case config.SeverityWarn:
			if strict {
				return true
			}
		}
	}
	return false
}

// Log emits each finding at its severity's log level.
func (f Findings) Log(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, finding := range f {
		args := []any{"category", string(finding.Category), "page", finding.Page, "detail", finding.Detail}
		switch finding.Severity {
		case config.SeverityError:
			logger.Error("Validation finding", args...)
		case config.SeverityWarn:
			logger.Warn("Validation finding", args...)
		case config.SeverityInfo:
			logger.Info("Validation finding", args...)
		}
	}
}

// Policy resolves the enforcement level for each category. Navigation,
// plugin, and extension integrity are structural and fixed; the link
// check categories come from the validation configuration.
type Policy struct {
	cfg config.ValidationConfig
}

// NewPolicy builds a policy from the configuration's validation mapping.
func NewPolicy(cfg config.ValidationConfig) Policy { return Policy{cfg: cfg} }

// For returns the severity for a category.
func (p Policy) For(cat Category) config.Severity {
	switch cat {
	case CategoryNav, CategoryPlugins:
		return config.SeverityError
	case CategoryExtensions:
		return config.SeverityWarn
	case CategoryOmittedFiles:
		return p.cfg.OmittedFiles
	case CategoryBrokenLinks:
		return p.cfg.BrokenLinks
	case CategoryAbsoluteLinks:
		return p.cfg.AbsoluteLinks
	case CategoryUnrecognizedLinks:
		return p.cfg.UnrecognizedLinks
	case CategoryAnchors:
		return p.cfg.Anchors
	default:
		return config.SeverityWarn
	}
}

// Context carries everything rules inspect. Pages is nil for
// config-only validation (the check command before any rendering).
type Context struct {
	Config *config.Config
	Policy Policy

	// DocFiles holds every source file under docs_dir, relative
	// forward-slash paths. MarkdownFiles is the subset being built.
	DocFiles      map[string]bool
	MarkdownFiles []string

	Pages []*render.Page
}

// Rule is a single validation check.
type Rule interface {
	Name() string
	Check(ctx *Context) Findings
}

// Evaluator runs rules in order and aggregates their findings, dropping
// those the policy ignores.
type Evaluator struct {
	rules []Rule
}

// NewEvaluator creates an evaluator with the given rules.
func NewEvaluator(rules ...Rule) *Evaluator { return &Evaluator{rules: rules} }

// ConfigRules are the checks that need only a loaded configuration and
// the docs file listing.
func ConfigRules() []Rule {
	return []Rule{
		NavPathsRule{},
		NavDuplicatesRule{},
		PluginsRecognizedRule{},
		ExtensionsRecognizedRule{},
		OmittedFilesRule{},
	}
}

// Run executes every rule and returns the combined findings.
func (e *Evaluator) Run(ctx *Context) Findings {
	var all Findings
	for _, rule := range e.rules {
		findings := rule.Check(ctx)
		kept := findings[:0]
		for _, f := range findings {
			if f.Severity == config.SeverityIgnore {
				continue
			}
			kept = append(kept, f)
		}
		if len(kept) > 0 {
			slog.Debug("Validation rule produced findings", "rule", rule.Name(), "count", len(kept))
		}
		all = append(all, kept...)
	}
	return all
}
