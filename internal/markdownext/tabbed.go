package markdownext

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// TabNode is a `=== "Label"` tabbed-content block. Consecutive tab
// blocks form one visual tab group; grouping is a presentation concern
// handled client-side.
type TabNode struct {
	gast.BaseBlock
	Label []byte
}

// KindTab is the node kind for tabbed content blocks.
var KindTab = gast.NewNodeKind("Tab")

func (n *TabNode) Kind() gast.NodeKind { return KindTab }

func (n *TabNode) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{"Label": string(n.Label)}, nil)
}

var tabMarker = []byte("===")

type tabParser struct{}

func (p *tabParser) Trigger() []byte { return []byte{'='} }

func (p *tabParser) Open(parent gast.Node, reader text.Reader, pc parser.Context) (gast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !bytes.HasPrefix(line[pos:], tabMarker) {
		return nil, parser.NoChildren
	}

	rest := strings.TrimSpace(string(line[pos+len(tabMarker):]))
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return nil, parser.NoChildren
	}
	label := rest[1 : len(rest)-1]

	node := &TabNode{Label: []byte(label)}
	reader.Advance(segment.Len() - 1)
	return node, parser.HasChildren
}

func (p *tabParser) Continue(node gast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, _ := reader.PeekLine()
	if util.IsBlank(line) {
		return parser.Continue | parser.HasChildren
	}
	childpos, padding := util.IndentPosition(line, reader.LineOffset(), 4)
	if childpos < 0 {
		return parser.Close
	}
	reader.AdvanceAndSetPadding(childpos, padding)
	return parser.Continue | parser.HasChildren
}

func (p *tabParser) Close(node gast.Node, reader text.Reader, pc parser.Context) {}

func (p *tabParser) CanInterruptParagraph() bool { return true }

func (p *tabParser) CanAcceptIndentedLine() bool { return false }

type tabRenderer struct{}

func (r *tabRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindTab, r.render)
}

func (r *tabRenderer) render(w util.BufWriter, source []byte, node gast.Node, entering bool) (gast.WalkStatus, error) {
	n := node.(*TabNode)
	if entering {
		_, _ = w.WriteString(`<div class="tabbed-block" data-tab="`)
		_, _ = w.Write(util.EscapeHTML(n.Label))
		_, _ = w.WriteString("\">\n")
	} else {
		_, _ = w.WriteString("</div>\n")
	}
	return gast.WalkContinue, nil
}

type tabbedExt struct{}

// Tabbed enables `=== "Label"` content tab blocks.
var Tabbed goldmark.Extender = &tabbedExt{}

func (e *tabbedExt) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithBlockParsers(
		util.Prioritized(&tabParser{}, 798),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&tabRenderer{}, 500),
	))
}
