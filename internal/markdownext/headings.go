package markdownext

import (
	"fmt"
	"strconv"

	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// headingIDTransformer assigns slug IDs to headings that lack one. IDs
// are deduplicated within a document by appending a numeric suffix, so
// anchors are stable regardless of which extensions are enabled.
type headingIDTransformer struct{}

var headingIDTransformerEntry = util.Prioritized(&headingIDTransformer{}, 100)

func (t *headingIDTransformer) Transform(doc *gast.Document, reader text.Reader, pc parser.Context) {
	seen := map[string]int{}
	_ = gast.Walk(doc, func(n gast.Node, entering bool) (gast.WalkStatus, error) {
		if !entering {
			return gast.WalkContinue, nil
		}
		heading, ok := n.(*gast.Heading)
		if !ok {
			return gast.WalkContinue, nil
		}
		if _, exists := heading.AttributeString("id"); exists {
			return gast.WalkContinue, nil
		}
		slug := Slugify(string(textOf(heading, reader.Source())))
		if slug == "" {
			slug = "section"
		}
		if count := seen[slug]; count > 0 {
			seen[slug]++
			slug = slug + "-" + strconv.Itoa(count)
		} else {
			seen[slug] = 1
		}
		heading.SetAttributeString("id", []byte(slug))
		return gast.WalkContinue, nil
	})
}

func textOf(n gast.Node, source []byte) []byte {
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

// headingRenderer renders headings with their assigned IDs and, when the
// toc extension requests it, a trailing permalink anchor.
type headingRenderer struct {
	settings *Settings
}

func newHeadingRendererOption(s *Settings) renderer.Option {
	return renderer.WithNodeRenderers(util.Prioritized(&headingRenderer{settings: s}, 300))
}

func (r *headingRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(gast.KindHeading, r.render)
}

func (r *headingRenderer) render(w util.BufWriter, source []byte, node gast.Node, entering bool) (gast.WalkStatus, error) {
	n := node.(*gast.Heading)
	id, _ := n.AttributeString("id")
	if entering {
		_, _ = fmt.Fprintf(w, "<h%d", n.Level)
		if idBytes, ok := id.([]byte); ok {
			_, _ = w.WriteString(` id="`)
			_, _ = w.Write(util.EscapeHTML(idBytes))
			_, _ = w.WriteString(`"`)
		}
		_, _ = w.WriteString(">")
	} else {
		if idBytes, ok := id.([]byte); ok && r.settings.TocPermalink {
			_, _ = w.WriteString(`<a class="headerlink" href="#`)
			_, _ = w.Write(util.EscapeHTML(idBytes))
			_, _ = w.WriteString(`" title="Permanent link">&para;</a>`)
		}
		_, _ = fmt.Fprintf(w, "</h%d>\n", n.Level)
	}
	return gast.WalkContinue, nil
}
