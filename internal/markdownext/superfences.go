package markdownext

import (
	"bytes"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// Superfences replaces the default fenced-code renderer with one that
// supports custom per-language renderers. Mermaid fences pass through as
// a <pre class="mermaid"> block for client-side diagram rendering;
// everything else gets the usual <pre><code class="language-..."> shape.
var Superfences goldmark.Extender = &superfencesExt{}

type superfencesExt struct{}

func (e *superfencesExt) Extend(m goldmark.Markdown) {
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&fenceRenderer{}, 200),
	))
}

type fenceRenderer struct{}

func (r *fenceRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(gast.KindFencedCodeBlock, r.render)
}

var mermaidLang = []byte("mermaid")

func (r *fenceRenderer) render(w util.BufWriter, source []byte, node gast.Node, entering bool) (gast.WalkStatus, error) {
	n := node.(*gast.FencedCodeBlock)
	lang := n.Language(source)

	if bytes.Equal(lang, mermaidLang) {
		if entering {
			_, _ = w.WriteString(`<pre class="mermaid">`)
			r.writeLines(w, source, n)
		} else {
			_, _ = w.WriteString("</pre>\n")
		}
		return gast.WalkContinue, nil
	}

	if entering {
		_, _ = w.WriteString("<pre><code")
		if len(lang) > 0 {
			_, _ = w.WriteString(` class="language-`)
			_, _ = w.Write(util.EscapeHTML(lang))
			_, _ = w.WriteString(`"`)
		}
		_, _ = w.WriteString(">")
		r.writeLines(w, source, n)
	} else {
		_, _ = w.WriteString("</code></pre>\n")
	}
	return gast.WalkContinue, nil
}

func (r *fenceRenderer) writeLines(w util.BufWriter, source []byte, n *gast.FencedCodeBlock) {
	for i := 0; i < n.Lines().Len(); i++ {
		line := n.Lines().At(i)
		_, _ = w.Write(util.EscapeHTML(line.Value(source)))
	}
}
