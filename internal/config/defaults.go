package config

// Default values applied after a successful parse. Validation severities
// default per category: omitted files and absolute links are
// informational, everything else warns.
const (
	DefaultDocsDir   = "docs"
	DefaultSiteDir   = "site"
	DefaultThemeName = "material"

	DefaultPublishBranch = "gh-pages"
	DefaultPublishRemote = "origin"

	DefaultEventsSubject = "docsite.links.broken"
)

func applyDefaults(cfg *Config) {
	if cfg.SiteName == "" {
		cfg.SiteName = "Documentation"
	}
	if cfg.DocsDir == "" {
		cfg.DocsDir = DefaultDocsDir
	}
	if cfg.SiteDir == "" {
		cfg.SiteDir = DefaultSiteDir
	}
	if cfg.Theme.Name == "" {
		cfg.Theme.Name = DefaultThemeName
	}
	if cfg.Theme.Language == "" {
		cfg.Theme.Language = "en"
	}

	applyValidationDefaults(&cfg.Validation)

	if cfg.Publish != nil {
		if cfg.Publish.Branch == "" {
			cfg.Publish.Branch = DefaultPublishBranch
		}
		if cfg.Publish.Remote == "" {
			cfg.Publish.Remote = DefaultPublishRemote
		}
	}
	if cfg.Events != nil && cfg.Events.Subject == "" {
		cfg.Events.Subject = DefaultEventsSubject
	}
}

func applyValidationDefaults(v *ValidationConfig) {
	if v.OmittedFiles == "" {
		v.OmittedFiles = SeverityInfo
	}
	if v.BrokenLinks == "" {
		v.BrokenLinks = SeverityWarn
	}
	if v.AbsoluteLinks == "" {
		v.AbsoluteLinks = SeverityInfo
	}
	if v.UnrecognizedLinks == "" {
		v.UnrecognizedLinks = SeverityWarn
	}
	if v.Anchors == "" {
		v.Anchors = SeverityWarn
	}
}
