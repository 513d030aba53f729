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

// AdmonitionNode is a `!!! type "Title"` callout block. Content is the
// indented material following the marker line.
type AdmonitionNode struct {
	gast.BaseBlock
	Class []byte
	Title []byte
}

// KindAdmonition is the node kind for admonition blocks.
var KindAdmonition = gast.NewNodeKind("Admonition")

func (n *AdmonitionNode) Kind() gast.NodeKind { return KindAdmonition }

func (n *AdmonitionNode) Dump(source []byte, level int) {
	gast.DumpHelper(n, source, level, map[string]string{
		"Class": string(n.Class),
		"Title": string(n.Title),
	}, nil)
}

var admonitionMarker = []byte("!!!")

type admonitionParser struct{}

func (p *admonitionParser) Trigger() []byte { return []byte{'!'} }

func (p *admonitionParser) Open(parent gast.Node, reader text.Reader, pc parser.Context) (gast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !bytes.HasPrefix(line[pos:], admonitionMarker) {
		return nil, parser.NoChildren
	}

	rest := strings.TrimSpace(string(line[pos+len(admonitionMarker):]))
	if rest == "" {
		return nil, parser.NoChildren
	}

	class := rest
	title := ""
	hasExplicitTitle := false
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		class = rest[:i]
		remainder := strings.TrimSpace(rest[i+1:])
		if len(remainder) >= 2 && remainder[0] == '"' && remainder[len(remainder)-1] == '"' {
			title = remainder[1 : len(remainder)-1]
			hasExplicitTitle = true
		} else if remainder != "" {
			// Marker line has trailing junk that is not a quoted title.
			return nil, parser.NoChildren
		}
	}
	if !hasExplicitTitle {
		title = titleCaser.String(class)
	}

	node := &AdmonitionNode{Class: []byte(strings.ToLower(class)), Title: []byte(title)}
	reader.Advance(segment.Len() - 1)
	return node, parser.HasChildren
}

func (p *admonitionParser) Continue(node gast.Node, reader text.Reader, pc parser.Context) parser.State {
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

func (p *admonitionParser) Close(node gast.Node, reader text.Reader, pc parser.Context) {}

func (p *admonitionParser) CanInterruptParagraph() bool { return true }

func (p *admonitionParser) CanAcceptIndentedLine() bool { return false }

type admonitionRenderer struct{}

func (r *admonitionRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindAdmonition, r.render)
}

func (r *admonitionRenderer) render(w util.BufWriter, source []byte, node gast.Node, entering bool) (gast.WalkStatus, error) {
	n := node.(*AdmonitionNode)
	if entering {
		_, _ = w.WriteString(`<div class="admonition `)
		_, _ = w.Write(util.EscapeHTML(n.Class))
		_, _ = w.WriteString("\">\n")
		if len(n.Title) > 0 {
			_, _ = w.WriteString(`<p class="admonition-title">`)
			_, _ = w.Write(util.EscapeHTML(n.Title))
			_, _ = w.WriteString("</p>\n")
		}
	} else {
		_, _ = w.WriteString("</div>\n")
	}
	return gast.WalkContinue, nil
}

type admonitionExt struct{}

// Admonition enables `!!! note "Title"` callout blocks.
var Admonition goldmark.Extender = &admonitionExt{}

func (e *admonitionExt) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithBlockParsers(
		util.Prioritized(&admonitionParser{}, 799),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(&admonitionRenderer{}, 500),
	))
}
