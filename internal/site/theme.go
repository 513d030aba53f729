package site

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/nav"
	"git.home.luguber.info/inful/docsite/internal/render"
)

// pageTemplate is the HTML shell every rendered page is wrapped in. The
// theme name and palette scheme become body attributes so the theme's
// stylesheets can hook them.
const pageTemplate = `<!DOCTYPE html>
<html lang="{{ .Language }}">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ .PageTitle }}</title>
{{- if .Description }}
<meta name="description" content="{{ .Description }}">
{{- end }}
{{- if .Canonical }}
<link rel="canonical" href="{{ .Canonical }}">
{{- end }}
</head>
<body data-theme="{{ .ThemeName }}"{{ if .Scheme }} data-scheme="{{ .Scheme }}"{{ end }}>
<header><span class="site-name">{{ .SiteName }}</span></header>
<nav>
<ul>
{{- range .Nav }}
<li{{ if .Active }} class="active"{{ end }}><a href="{{ .URL }}">{{ .Label }}</a></li>
{{- end }}
</ul>
</nav>
<main>
{{ .Content }}
</main>
<footer>
{{- if .Copyright }}<p>{{ .Copyright }}</p>{{ end }}
{{- if .RepoURL }}<p><a href="{{ .RepoURL }}">{{ .RepoName }}</a></p>{{ end }}
</footer>
</body>
</html>
`

type navEntry struct {
	Label  string
	URL    string
	Active bool
}

type pageData struct {
	Language    string
	PageTitle   string
	Description string
	Canonical   string
	ThemeName   string
	Scheme      string
	SiteName    string
	Copyright   string
	RepoURL     string
	RepoName    string
	Nav         []navEntry
	Content     template.HTML
}

// themeRenderer wraps rendered page bodies in the site shell.
type themeRenderer struct {
	cfg  *config.Config
	tmpl *template.Template
	tree *nav.Tree
}

func newThemeRenderer(cfg *config.Config, tree *nav.Tree) (*themeRenderer, error) {
	tmpl, err := template.New("page").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &themeRenderer{cfg: cfg, tmpl: tmpl, tree: tree}, nil
}

// WritePage emits the full HTML document for one rendered page.
func (t *themeRenderer) WritePage(w io.Writer, page *render.Page) error {
	data := pageData{
		Language:    t.language(),
		PageTitle:   t.pageTitle(page),
		Description: page.Description,
		Canonical:   t.canonical(page),
		ThemeName:   t.cfg.Theme.Name,
		Scheme:      t.scheme(),
		SiteName:    t.cfg.SiteName,
		Copyright:   t.cfg.Copyright,
		RepoURL:     t.cfg.RepoURL,
		RepoName:    t.cfg.RepoName,
		Nav:         t.navEntries(page),
		Content:     template.HTML(page.HTML), // #nosec G203 - produced by our own renderer
	}
	return t.tmpl.Execute(w, data)
}

func (t *themeRenderer) language() string {
	if t.cfg.Theme.Language != "" {
		return t.cfg.Theme.Language
	}
	return "en"
}

func (t *themeRenderer) scheme() string {
	if len(t.cfg.Theme.Palette) > 0 {
		return t.cfg.Theme.Palette[0].Scheme
	}
	return ""
}

func (t *themeRenderer) pageTitle(page *render.Page) string {
	if page.Title == "" || page.Title == t.cfg.SiteName {
		return t.cfg.SiteName
	}
	return page.Title + " - " + t.cfg.SiteName
}

func (t *themeRenderer) canonical(page *render.Page) string {
	if t.cfg.SiteURL == "" {
		return ""
	}
	return strings.TrimSuffix(t.cfg.SiteURL, "/") + "/" + render.URLFor(page.SourcePath)
}

// navEntries flattens the top level of the nav tree into header links.
// Sections link to their first page.
func (t *themeRenderer) navEntries(page *render.Page) []navEntry {
	if t.tree.IsEmpty() {
		return nil
	}
	entries := make([]navEntry, 0, len(t.tree.Items))
	for _, it := range t.tree.Items {
		target := it.Path
		if it.IsSection() {
			if pages := sectionPages(it); len(pages) > 0 {
				target = pages[0]
			}
		}
		if target == "" {
			continue
		}
		entries = append(entries, navEntry{
			Label:  it.Title(),
			URL:    "/" + render.URLFor(target),
			Active: target == page.SourcePath || sectionContains(it, page.SourcePath),
		})
	}
	return entries
}

func sectionPages(it *nav.Item) []string {
	var pages []string
	for _, child := range it.Children {
		if child.Path != "" {
			pages = append(pages, child.Path)
		}
		pages = append(pages, sectionPages(child)...)
	}
	return pages
}

func sectionContains(it *nav.Item, path string) bool {
	for _, p := range sectionPages(it) {
		if p == path {
			return true
		}
	}
	return false
}
