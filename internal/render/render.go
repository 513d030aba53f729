// Package render turns Markdown source pages into HTML using the
// configured markdown extensions, collecting the heading anchors and
// outbound links the validation layer checks.
package render

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/frontmatter"
	"git.home.luguber.info/inful/docsite/internal/markdownext"
	"git.home.luguber.info/inful/docsite/internal/nav"
)

// Link is an outbound reference found in a page body.
type Link struct {
	Destination string
	Image       bool
}

// Page is a fully rendered document.
type Page struct {
	SourcePath  string // relative to docs_dir, forward slashes
	Title       string
	Description string
	Fields      map[string]any
	HTML        []byte
	Anchors     []string
	Links       []Link
}

// Engine renders pages with a goldmark instance assembled from the
// configured extension list.
type Engine struct {
	markdown goldmark.Markdown
	settings *markdownext.Settings
}

// NewEngine builds the rendering engine for a loaded configuration.
func NewEngine(cfg *config.Config) (*Engine, error) {
	md, settings, err := markdownext.Build(cfg.MarkdownExtensions, cfg.RepoURL)
	if err != nil {
		return nil, fmt.Errorf("build markdown pipeline: %w", err)
	}
	return &Engine{markdown: md, settings: settings}, nil
}

// RenderPage parses frontmatter, renders the body, and collects anchors
// and links in one pass over the AST.
func (e *Engine) RenderPage(sourcePath string, content []byte) (*Page, error) {
	doc, err := frontmatter.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", sourcePath, err)
	}

	root := e.markdown.Parser().Parse(text.NewReader(doc.Body))

	page := &Page{
		SourcePath:  sourcePath,
		Title:       doc.Title(),
		Description: doc.Description(),
		Fields:      doc.Fields,
	}

	_ = gast.Walk(root, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gast.Heading:
			if id, ok := node.AttributeString("id"); ok {
				if b, ok := id.([]byte); ok {
					page.Anchors = append(page.Anchors, string(b))
				}
			}
			if page.Title == "" && node.Level == 1 {
				page.Title = string(headingText(node, doc.Body))
			}
		case *gast.Link:
			page.Links = append(page.Links, Link{Destination: string(node.Destination)})
			node.Destination = rewriteDestination(sourcePath, node.Destination)
		case *gast.Image:
			page.Links = append(page.Links, Link{Destination: string(node.Destination), Image: true})
		case *gast.AutoLink:
			page.Links = append(page.Links, Link{Destination: string(node.URL(doc.Body))})
		}
		return gast.WalkContinue, nil
	})

	if page.Title == "" {
		page.Title = nav.InferTitle(sourcePath)
	}

	var buf bytes.Buffer
	if err := e.markdown.Renderer().Render(&buf, doc.Body, root); err != nil {
		return nil, fmt.Errorf("render %s: %w", sourcePath, err)
	}
	page.HTML = buf.Bytes()

	return page, nil
}

func headingText(n gast.Node, source []byte) []byte {
	var out []byte
	_ = gast.Walk(n, func(c gast.Node, entering bool) (gast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*gast.Text); ok {
				out = append(out, t.Segment.Value(source)...)
			}
		}
		return gast.WalkContinue, nil
	})
	return out
}

// rewriteDestination maps a relative cross-document link to the target
// page's built URL, so the rendered site links pages to pages. Links
// the rewrite cannot resolve are left untouched for the link checker to
// report.
func rewriteDestination(sourcePath string, dest []byte) []byte {
	d := string(dest)
	u, err := url.Parse(d)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return dest
	}
	if d == "" || strings.HasPrefix(d, "/") || strings.HasPrefix(d, "#") {
		return dest
	}
	if !strings.HasSuffix(u.Path, ".md") {
		return dest
	}
	target := path.Clean(path.Join(path.Dir(sourcePath), u.Path))
	if strings.HasPrefix(target, "..") {
		return dest
	}
	rel := RelativeURL(sourcePath, target)
	if u.Fragment != "" {
		rel += "#" + u.Fragment
	}
	return []byte(rel)
}

// RelativeURL returns target's built URL relative to the page built for
// sourcePath.
func RelativeURL(sourcePath, target string) string {
	up := strings.Count(URLFor(sourcePath), "/")
	rel := strings.Repeat("../", up) + URLFor(target)
	if rel == "" {
		rel = "./"
	}
	return rel
}

// OutputPath maps a source document path to its file in the built site.
// Pretty URLs: index pages keep their directory, everything else becomes
// a directory with an index.html.
func OutputPath(sourcePath string) string {
	p := strings.TrimSuffix(sourcePath, path.Ext(sourcePath))
	base := path.Base(p)
	if base == "index" || base == "README" {
		return path.Join(path.Dir(p), "index.html")
	}
	return path.Join(p, "index.html")
}

// URLFor maps a source document path to its site-relative URL (with a
// trailing slash).
func URLFor(sourcePath string) string {
	out := OutputPath(sourcePath)
	dir := path.Dir(out)
	if dir == "." {
		return ""
	}
	return dir + "/"
}
