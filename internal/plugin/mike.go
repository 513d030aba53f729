package plugin

import (
	"git.home.luguber.info/inful/docsite/internal/config"
)

// mikePlugin carries versioned-publishing settings consumed by the
// publish command: which extra key exposes the version selector and the
// alias deployments canonically resolve to.
type mikePlugin struct {
	opts MikeOptions
}

// MikeOptions are the mike plugin's configuration options.
type MikeOptions struct {
	VersionSelector bool   `yaml:"version_selector"`
	CanonicalAlias  string `yaml:"canonical_version"`
}

func newMike(entry *config.OptionEntry, _ *config.Config) (Plugin, error) {
	p := &mikePlugin{opts: MikeOptions{VersionSelector: true, CanonicalAlias: "latest"}}
	if err := entry.DecodeOptions(&p.opts); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *mikePlugin) Name() string { return "mike" }

// Options exposes the decoded settings.
func (p *mikePlugin) Options() MikeOptions { return p.opts }

// MikeSettings returns the mike plugin options for a configuration,
// falling back to defaults when the plugin is not enabled.
func MikeSettings(cfg *config.Config) MikeOptions {
	entry, ok := cfg.Plugins.Get("mike")
	if !ok {
		return MikeOptions{VersionSelector: true, CanonicalAlias: "latest"}
	}
	p, err := newMike(entry, cfg)
	if err != nil {
		return MikeOptions{VersionSelector: true, CanonicalAlias: "latest"}
	}
	return p.(*mikePlugin).Options()
}
