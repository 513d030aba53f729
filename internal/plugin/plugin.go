// Package plugin provides the documentation-generation plugins that can
// be enabled, in order, by the configuration's plugins list: search
// indexing, templating macros, privacy-compliant asset handling,
// markdown includes, file exclusion, API reference stubs, and versioned
// publishing metadata.
package plugin

import (
	"fmt"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/render"
)

// Plugin is one enabled documentation plugin.
type Plugin interface {
	Name() string
}

// SourceFilter excludes source files from the build before anything
// reads them.
type SourceFilter interface {
	Plugin
	Excluded(relPath string) bool
}

// PreProcessor rewrites page source before markdown rendering.
type PreProcessor interface {
	Plugin
	Process(relPath string, source []byte) ([]byte, error)
}

// PostProcessor rewrites a rendered page before it is written out.
type PostProcessor interface {
	Plugin
	ProcessPage(page *render.Page) error
}

// SiteWriter emits additional artifacts into the built site after all
// pages are rendered.
type SiteWriter interface {
	Plugin
	WriteArtifacts(siteDir string, pages []*render.Page) error
}

// Factory builds a plugin from its configuration entry.
type Factory func(entry *config.OptionEntry, cfg *config.Config) (Plugin, error)

var factories = map[string]Factory{
	"search":           newSearch,
	"macros":           newMacros,
	"privacy":          newPrivacy,
	"include-markdown": newIncludeMarkdown,
	"exclude":          newExclude,
	"api-autodoc":      newAutodoc,
	"mike":             newMike,
}

// Known reports whether the plugin name has a registered factory.
func Known(name string) bool {
	_, ok := factories[name]
	return ok
}

// KnownNames returns every registered plugin name.
func KnownNames() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

// Build instantiates the configured plugins in declaration order.
// Unrecognized names are returned for the validation layer to report;
// option decode errors fail the build.
func Build(cfg *config.Config) ([]Plugin, []string, error) {
	var plugins []Plugin
	var unknown []string
	for i := range cfg.Plugins {
		entry := &cfg.Plugins[i]
		factory, ok := factories[entry.Name]
		if !ok {
			unknown = append(unknown, entry.Name)
			continue
		}
		p, err := factory(entry, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("plugin %q: %w", entry.Name, err)
		}
		plugins = append(plugins, p)
	}
	return plugins, unknown, nil
}
