package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/render"
)

// searchPlugin writes a JSON search index over all rendered pages.
type searchPlugin struct {
	separator string
}

type searchOptions struct {
	Separator string `yaml:"separator"`
}

func newSearch(entry *config.OptionEntry, _ *config.Config) (Plugin, error) {
	var opts searchOptions
	if err := entry.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	if opts.Separator == "" {
		opts.Separator = `[\s\-]+`
	}
	return &searchPlugin{separator: opts.Separator}, nil
}

func (p *searchPlugin) Name() string { return "search" }

// searchIndex is the on-disk shape consumed by the client-side search.
type searchIndex struct {
	Separator string        `json:"separator"`
	Docs      []searchEntry `json:"docs"`
}

type searchEntry struct {
	Location string `json:"location"`
	Title    string `json:"title"`
	Text     string `json:"text"`
}

func (p *searchPlugin) WriteArtifacts(siteDir string, pages []*render.Page) error {
	index := searchIndex{Separator: p.separator, Docs: make([]searchEntry, 0, len(pages))}
	for _, page := range pages {
		index.Docs = append(index.Docs, searchEntry{
			Location: render.URLFor(page.SourcePath),
			Title:    page.Title,
			Text:     extractText(page.HTML),
		})
	}

	dir := filepath.Join(siteDir, "search")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create search directory: %w", err)
	}
	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("marshal search index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "search_index.json"), data, 0o644); err != nil {
		return fmt.Errorf("write search index: %w", err)
	}
	return nil
}

// extractText flattens rendered HTML to whitespace-normalized text.
func extractText(rendered []byte) string {
	doc, err := html.Parse(strings.NewReader(string(rendered)))
	if err != nil {
		return ""
	}
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	return strings.Join(strings.Fields(b.String()), " ")
}
