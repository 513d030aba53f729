package markdownext

import (
	"fmt"

	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// magiclink auto-links `#123` issue/PR references against the
// configured repository URL. Bare URL auto-linking comes from
// extension.Linkify, enabled alongside this extender.
type magiclink struct {
	settings *Settings
}

func (e *magiclink) Extend(m goldmark.Markdown) {
	if e.settings.RepoURL == "" {
		return // nothing to link against
	}
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(&issueRefParser{repoURL: e.settings.RepoURL}, 999),
	))
}

type issueRefParser struct {
	repoURL string
}

func (p *issueRefParser) Trigger() []byte { return []byte{'#'} }

func (p *issueRefParser) Parse(parent gast.Node, block text.Reader, pc parser.Context) gast.Node {
	// Only link references that stand alone: start of text or preceded
	// by whitespace/punctuation that commonly separates words.
	if prev := block.PrecendingCharacter(); prev != ' ' && prev != '\n' && prev != '(' {
		return nil
	}

	line, segment := block.PeekLine()
	i := 1
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 1 {
		return nil
	}
	// Trailing word characters (e.g. "#123abc") are not a reference.
	if i < len(line) && isWordByte(line[i]) {
		return nil
	}

	number := string(line[1:i])
	link := gast.NewLink()
	link.Destination = []byte(fmt.Sprintf("%s/issues/%s", p.repoURL, number))
	link.Title = []byte("")
	seg := text.NewSegment(segment.Start, segment.Start+i)
	link.AppendChild(link, gast.NewTextSegment(seg))
	block.Advance(i)
	return link
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
