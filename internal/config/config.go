// Package config loads and models the docsite configuration file: site
// metadata, theme, navigation tree, plugin and markdown-extension lists,
// and the link-validation policy.
package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docsite/internal/nav"
)

// Config is the root of the docsite configuration file.
type Config struct {
	SiteName        string `yaml:"site_name"`
	SiteURL         string `yaml:"site_url,omitempty"`
	SiteDescription string `yaml:"site_description,omitempty"`
	SiteAuthor      string `yaml:"site_author,omitempty"`
	Copyright       string `yaml:"copyright,omitempty"`

	RepoURL  string `yaml:"repo_url,omitempty"`
	RepoName string `yaml:"repo_name,omitempty"`
	EditURI  string `yaml:"edit_uri,omitempty"`

	DocsDir string `yaml:"docs_dir,omitempty"`
	SiteDir string `yaml:"site_dir,omitempty"`
	Strict  bool   `yaml:"strict,omitempty"`

	Theme              Theme            `yaml:"theme,omitempty"`
	Nav                nav.Tree         `yaml:"nav,omitempty"`
	Plugins            OptionList       `yaml:"plugins,omitempty"`
	MarkdownExtensions OptionList       `yaml:"markdown_extensions,omitempty"`
	Validation         ValidationConfig `yaml:"validation,omitempty"`

	Extra map[string]any `yaml:"extra,omitempty"`
	Watch []string       `yaml:"watch,omitempty"`

	Publish *PublishConfig `yaml:"publish,omitempty"`
	Events  *EventsConfig  `yaml:"events,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
	History *HistoryConfig `yaml:"history,omitempty"`
}

// Theme describes the presentation settings passed through to templates.
type Theme struct {
	Name     string            `yaml:"name,omitempty"`
	Language string            `yaml:"language,omitempty"`
	Features []string          `yaml:"features,omitempty"`
	Palette  []PaletteVariant  `yaml:"palette,omitempty"`
	Icon     map[string]string `yaml:"icon,omitempty"`
}

// PaletteVariant is one color palette keyed by display-mode preference.
type PaletteVariant struct {
	Media   string         `yaml:"media,omitempty"`
	Scheme  string         `yaml:"scheme,omitempty"`
	Primary string         `yaml:"primary,omitempty"`
	Accent  string         `yaml:"accent,omitempty"`
	Toggle  *PaletteToggle `yaml:"toggle,omitempty"`
}

// PaletteToggle labels the control that switches to the next palette.
type PaletteToggle struct {
	Icon string `yaml:"icon,omitempty"`
	Name string `yaml:"name,omitempty"`
}

// Severity is an enforcement level for a validation check category.
type Severity string

const (
	SeverityError  Severity = "error"
	SeverityWarn   Severity = "warn"
	SeverityInfo   Severity = "info"
	SeverityIgnore Severity = "ignore"
)

// NormalizeSeverity canonicalizes a severity string, returning "" for
// unrecognized values.
func NormalizeSeverity(s string) Severity {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SeverityError:
		return SeverityError
	case SeverityWarn, "warning":
		return SeverityWarn
	case SeverityInfo:
		return SeverityInfo
	case SeverityIgnore, "skip":
		return SeverityIgnore
	default:
		return ""
	}
}

// ValidationConfig maps each check category to its enforcement level.
// Empty values take category defaults during normalization.
type ValidationConfig struct {
	OmittedFiles      Severity `yaml:"omitted_files,omitempty"`
	BrokenLinks       Severity `yaml:"broken_links,omitempty"`
	AbsoluteLinks     Severity `yaml:"absolute_links,omitempty"`
	UnrecognizedLinks Severity `yaml:"unrecognized_links,omitempty"`
	Anchors           Severity `yaml:"anchors,omitempty"`
}

// PublishConfig controls versioned-docs publishing to a git branch.
type PublishConfig struct {
	Branch       string `yaml:"branch,omitempty"`
	Remote       string `yaml:"remote,omitempty"`
	DefaultAlias string `yaml:"default_alias,omitempty"`
}

// EventsConfig enables publishing broken-link events to NATS.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// MetricsConfig enables the Prometheus /metrics endpoint in serve mode.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// HistoryConfig locates the build history database.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// OptionEntry is one ordered entry of the plugins or markdown_extensions
// list: a name plus optional raw options. Options stay a yaml.Node so
// each consumer decodes its own option shape.
type OptionEntry struct {
	Name    string
	Options *yaml.Node
}

// DecodeOptions decodes the entry's options into out. A bare entry
// (no options) leaves out at its zero value.
func (e *OptionEntry) DecodeOptions(out any) error {
	if e.Options == nil {
		return nil
	}
	if err := e.Options.Decode(out); err != nil {
		return fmt.Errorf("options for %q: %w", e.Name, err)
	}
	return nil
}

// OptionList is an ordered list of named entries, each either a bare
// name or a single-key "name: {options}" map. Order is significant and
// preserved through marshal.
type OptionList []OptionEntry

func (l *OptionList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("expected a sequence at line %d", value.Line)
	}
	out := make(OptionList, 0, len(value.Content))
	for _, n := range value.Content {
		switch n.Kind {
		case yaml.ScalarNode:
			var name string
			if err := n.Decode(&name); err != nil {
				return fmt.Errorf("invalid entry at line %d: %w", n.Line, err)
			}
			out = append(out, OptionEntry{Name: name})
		case yaml.MappingNode:
			if len(n.Content) != 2 {
				return fmt.Errorf("entry at line %d must have exactly one key", n.Line)
			}
			var name string
			if err := n.Content[0].Decode(&name); err != nil {
				return fmt.Errorf("invalid entry name at line %d: %w", n.Line, err)
			}
			out = append(out, OptionEntry{Name: name, Options: n.Content[1]})
		default:
			return fmt.Errorf("unexpected entry at line %d", n.Line)
		}
	}
	*l = out
	return nil
}

func (l OptionList) MarshalYAML() (any, error) {
	out := make([]any, 0, len(l))
	for _, e := range l {
		if e.Options == nil {
			out = append(out, e.Name)
			continue
		}
		out = append(out, map[string]*yaml.Node{e.Name: e.Options})
	}
	return out, nil
}

// Names returns entry names in declaration order.
func (l OptionList) Names() []string {
	names := make([]string, 0, len(l))
	for _, e := range l {
		names = append(names, e.Name)
	}
	return names
}

// Get returns the entry with the given name, if present.
func (l OptionList) Get(name string) (*OptionEntry, bool) {
	for i := range l {
		if l[i].Name == name {
			return &l[i], true
		}
	}
	return nil, false
}

// Has reports whether an entry with the given name is present.
func (l OptionList) Has(name string) bool {
	_, ok := l.Get(name)
	return ok
}

