package linkcheck

import (
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/validation"
)

// HTMLLink is a reference extracted from a rendered HTML page.
type HTMLLink struct {
	URL       string
	Tag       string
	Attribute string
}

// linkAttrs maps HTML tags to the attribute that carries a reference.
var linkAttrs = map[string]string{
	"a":      "href",
	"img":    "src",
	"script": "src",
	"link":   "href",
	"source": "src",
	"video":  "src",
	"audio":  "src",
}

// ExtractHTMLLinks parses rendered HTML and returns every link-carrying
// element reference.
func ExtractHTMLLinks(r io.Reader) ([]HTMLLink, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	var links []HTMLLink
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if attr, ok := linkAttrs[n.Data]; ok {
				for _, a := range n.Attr {
					if a.Key == attr && a.Val != "" {
						links = append(links, HTMLLink{URL: a.Val, Tag: n.Data, Attribute: attr})
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return links, nil
}

// ScanSite walks a built site directory and verifies that every
// internal reference in the rendered HTML resolves to a file in the
// site. It is a belt-and-braces pass over the final output, catching
// what source-level checking cannot see (theme assets, plugin output).
func ScanSite(siteDir string, policy validation.Policy) (validation.Findings, error) {
	var findings validation.Findings

	err := filepath.WalkDir(siteDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".html") {
			return nil
		}

		rel, err := filepath.Rel(siteDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		f, err := os.Open(p) // #nosec G304 - path produced by WalkDir under siteDir
		if err != nil {
			return err
		}
		links, perr := ExtractHTMLLinks(f)
		_ = f.Close()
		if perr != nil {
			return fmt.Errorf("%s: %w", rel, perr)
		}

		for _, link := range links {
			if finding := checkRenderedLink(siteDir, rel, link, policy); finding != nil {
				findings = append(findings, *finding)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}

func checkRenderedLink(siteDir, fromPage string, link HTMLLink, policy validation.Policy) *validation.Finding {
	u, err := url.Parse(link.URL)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return nil // external or unparseable, out of scope for the output scan
	}
	target := u.Path
	if target == "" {
		return nil // pure fragment
	}

	if strings.HasPrefix(target, "/") {
		target = strings.TrimPrefix(target, "/")
	} else {
		target = path.Join(path.Dir(fromPage), target)
	}
	target = strings.TrimSuffix(target, "/")

	candidates := []string{target, path.Join(target, "index.html")}
	if target == "" {
		candidates = []string{"index.html"}
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(filepath.Join(siteDir, filepath.FromSlash(candidate))); err == nil {
			return nil
		}
	}

	sev := policy.For(validation.CategoryBrokenLinks)
	if sev == config.SeverityIgnore {
		return nil
	}
	return &validation.Finding{
		Category: validation.CategoryBrokenLinks,
		Severity: sev,
		Page:     fromPage,
		Detail:   fmt.Sprintf("rendered %s %s %q does not resolve in the site", link.Tag, link.Attribute, link.URL),
	}
}
