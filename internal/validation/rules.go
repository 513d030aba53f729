package validation

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/markdownext"
	"git.home.luguber.info/inful/docsite/internal/plugin"
)

// NavPathsRule verifies every navigation leaf resolves to an existing
// document under docs_dir. Absolute paths never resolve.
type NavPathsRule struct{}

func (NavPathsRule) Name() string { return "nav_paths" }

func (NavPathsRule) Check(ctx *Context) Findings {
	var findings Findings
	sev := ctx.Policy.For(CategoryNav)
	for _, page := range ctx.Config.Nav.Pages() {
		if strings.HasPrefix(page, "/") {
			findings = append(findings, Finding{
				Category: CategoryNav,
				Severity: sev,
				Detail:   fmt.Sprintf("nav path %q is absolute; paths are relative to docs_dir", page),
			})
			continue
		}
		if !ctx.DocFiles[page] {
			findings = append(findings, Finding{
				Category: CategoryNav,
				Severity: sev,
				Detail:   fmt.Sprintf("nav references %q which does not exist under %s", page, ctx.Config.DocsDir),
			})
		}
	}
	return findings
}

// NavDuplicatesRule flags documents referenced more than once in the
// navigation tree.
type NavDuplicatesRule struct{}

func (NavDuplicatesRule) Name() string { return "nav_duplicates" }

func (NavDuplicatesRule) Check(ctx *Context) Findings {
	var findings Findings
	seen := map[string]bool{}
	for _, page := range ctx.Config.Nav.Pages() {
		if seen[page] {
			findings = append(findings, Finding{
				Category: CategoryNav,
				Severity: ctx.Policy.For(CategoryNav),
				Detail:   fmt.Sprintf("nav references %q more than once", page),
			})
		}
		seen[page] = true
	}
	return findings
}

// PluginsRecognizedRule verifies every configured plugin name is known.
type PluginsRecognizedRule struct{}

func (PluginsRecognizedRule) Name() string { return "plugins_recognized" }

func (PluginsRecognizedRule) Check(ctx *Context) Findings {
	var findings Findings
	for _, name := range ctx.Config.Plugins.Names() {
		if !plugin.Known(name) {
			findings = append(findings, Finding{
				Category: CategoryPlugins,
				Severity: ctx.Policy.For(CategoryPlugins),
				Detail:   fmt.Sprintf("unrecognized plugin %q", name),
			})
		}
	}
	return findings
}

// ExtensionsRecognizedRule verifies every configured markdown extension
// name is known.
type ExtensionsRecognizedRule struct{}

func (ExtensionsRecognizedRule) Name() string { return "extensions_recognized" }

func (ExtensionsRecognizedRule) Check(ctx *Context) Findings {
	var findings Findings
	for _, name := range ctx.Config.MarkdownExtensions.Names() {
		if !markdownext.Known(name) {
			findings = append(findings, Finding{
				Category: CategoryExtensions,
				Severity: ctx.Policy.For(CategoryExtensions),
				Detail:   fmt.Sprintf("unrecognized markdown extension %q", name),
			})
		}
	}
	return findings
}

// OmittedFilesRule reports markdown files present under docs_dir but
// absent from an explicitly configured navigation tree.
type OmittedFilesRule struct{}

func (OmittedFilesRule) Name() string { return "omitted_files" }

func (OmittedFilesRule) Check(ctx *Context) Findings {
	if ctx.Config.Nav.IsEmpty() {
		return nil // implicit nav covers everything
	}
	inNav := map[string]bool{}
	for _, page := range ctx.Config.Nav.Pages() {
		inNav[page] = true
	}
	var findings Findings
	for _, file := range ctx.MarkdownFiles {
		if !inNav[file] {
			findings = append(findings, Finding{
				Category: CategoryOmittedFiles,
				Severity: ctx.Policy.For(CategoryOmittedFiles),
				Page:     file,
				Detail:   "document exists but is not referenced in nav",
			})
		}
	}
	return findings
}
