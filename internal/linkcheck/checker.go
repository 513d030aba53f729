// Package linkcheck classifies every outbound link on every rendered
// page into the validation categories: broken relative links, absolute
// links, unrecognized link schemes, and missing anchors. External URLs
// are recognized but never fetched at build time.
package linkcheck

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/render"
	"git.home.luguber.info/inful/docsite/internal/validation"
)

// recognizedSchemes are link schemes the checker accepts without
// resolving.
var recognizedSchemes = map[string]bool{
	"http":   true,
	"https":  true,
	"mailto": true,
	"tel":    true,
}

// Checker resolves page links against the set of built pages, their
// anchors, and the non-markdown files under docs_dir.
type Checker struct {
	policy   validation.Policy
	siteHost string

	pages    []*render.Page
	pageSet  map[string]bool     // markdown sources being built
	anchors  map[string][]string // anchors by source path
	docFiles map[string]bool     // every file under docs_dir

	publisher Publisher
}

// Publisher receives broken-link events. It is optional; a nil
// publisher disables event emission.
type Publisher interface {
	PublishBrokenLink(event *BrokenLinkEvent) error
}

// NewChecker builds a checker for the given rendered pages.
func NewChecker(cfg *config.Config, pages []*render.Page, docFiles map[string]bool) *Checker {
	c := &Checker{
		policy:   validation.NewPolicy(cfg.Validation),
		pages:    pages,
		pageSet:  make(map[string]bool, len(pages)),
		anchors:  make(map[string][]string, len(pages)),
		docFiles: docFiles,
	}
	if cfg.SiteURL != "" {
		if u, err := url.Parse(cfg.SiteURL); err == nil {
			c.siteHost = u.Host
		}
	}
	for _, p := range pages {
		c.pageSet[p.SourcePath] = true
		c.anchors[p.SourcePath] = p.Anchors
	}
	return c
}

// WithPublisher attaches a broken-link event publisher.
func (c *Checker) WithPublisher(p Publisher) *Checker {
	c.publisher = p
	return c
}

// Check classifies every link on every page.
func (c *Checker) Check() validation.Findings {
	var findings validation.Findings
	for _, page := range c.pages {
		for _, link := range page.Links {
			if f := c.checkLink(page, link); f != nil {
				findings = append(findings, *f)
			}
		}
	}
	return findings
}

func (c *Checker) checkLink(page *render.Page, link render.Link) *validation.Finding {
	dest := strings.TrimSpace(link.Destination)
	if dest == "" {
		return c.finding(validation.CategoryBrokenLinks, page, "empty link destination")
	}

	// In-page anchor.
	if strings.HasPrefix(dest, "#") {
		return c.checkAnchor(page, page.SourcePath, dest[1:])
	}

	u, err := url.Parse(dest)
	if err != nil {
		return c.finding(validation.CategoryBrokenLinks, page, fmt.Sprintf("unparseable link %q", dest))
	}

	if u.Scheme != "" {
		if !recognizedSchemes[u.Scheme] {
			return c.finding(validation.CategoryUnrecognizedLinks, page,
				fmt.Sprintf("unrecognized link scheme %q in %q", u.Scheme, dest))
		}
		// Site-internal absolute URL: flag like an absolute path, the
		// link breaks when the site moves.
		if c.siteHost != "" && u.Host == c.siteHost {
			return c.finding(validation.CategoryAbsoluteLinks, page,
				fmt.Sprintf("link %q uses the absolute site URL", dest))
		}
		return nil // external, recognized, not probed
	}

	if strings.HasPrefix(dest, "/") {
		return c.finding(validation.CategoryAbsoluteLinks, page,
			fmt.Sprintf("absolute link %q; use a path relative to the page", dest))
	}

	return c.checkRelative(page, u.Path, u.Fragment)
}

func (c *Checker) checkRelative(page *render.Page, rel, fragment string) *validation.Finding {
	target := path.Clean(path.Join(path.Dir(page.SourcePath), rel))
	if target == "." {
		target = page.SourcePath
	}
	if strings.HasPrefix(target, "..") {
		f := c.finding(validation.CategoryBrokenLinks, page,
			fmt.Sprintf("link %q escapes the docs directory", rel))
		c.emitBroken(page, rel)
		return f
	}

	switch {
	case strings.HasSuffix(target, ".md"):
		if !c.pageSet[target] {
			c.emitBroken(page, rel)
			return c.finding(validation.CategoryBrokenLinks, page,
				fmt.Sprintf("link target %q is not part of the build", rel))
		}
		if fragment != "" {
			return c.checkAnchor(page, target, fragment)
		}
		return nil
	case strings.HasSuffix(rel, "/") || rel == "" || path.Ext(target) == "":
		// Directory-style link to a built page URL.
		if c.resolvesToPage(target) {
			return nil
		}
		c.emitBroken(page, rel)
		return c.finding(validation.CategoryBrokenLinks, page,
			fmt.Sprintf("link %q does not resolve to a built page", rel))
	default:
		// Asset reference.
		if c.docFiles[target] {
			return nil
		}
		c.emitBroken(page, rel)
		return c.finding(validation.CategoryBrokenLinks, page,
			fmt.Sprintf("linked file %q does not exist under docs_dir", rel))
	}
}

func (c *Checker) resolvesToPage(target string) bool {
	want := strings.TrimSuffix(target, "/") + "/"
	for src := range c.pageSet {
		if render.URLFor(src) == want {
			return true
		}
	}
	return false
}

func (c *Checker) checkAnchor(page *render.Page, target, fragment string) *validation.Finding {
	for _, anchor := range c.anchors[target] {
		if anchor == fragment {
			return nil
		}
	}
	return c.finding(validation.CategoryAnchors, page,
		fmt.Sprintf("anchor #%s not found in %s", fragment, target))
}

func (c *Checker) finding(cat validation.Category, page *render.Page, detail string) *validation.Finding {
	sev := c.policy.For(cat)
	if sev == config.SeverityIgnore {
		return nil
	}
	return &validation.Finding{Category: cat, Severity: sev, Page: page.SourcePath, Detail: detail}
}

// emitBroken publishes a broken-link event unless the policy ignores
// the category, matching the finding itself.
func (c *Checker) emitBroken(page *render.Page, dest string) {
	if c.publisher == nil || c.policy.For(validation.CategoryBrokenLinks) == config.SeverityIgnore {
		return
	}
	event := &BrokenLinkEvent{
		URL:        dest,
		SourcePath: page.SourcePath,
		Title:      page.Title,
		IsInternal: true,
	}
	// Fire and forget: event delivery must not affect the build outcome.
	_ = c.publisher.PublishBrokenLink(event)
}
