package plugin

import (
	"bytes"
	"fmt"
	"regexp"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// autodocPlugin expands `::: symbol` directives into API reference
// sections. Symbols and their summaries are declared in the plugin
// options; unresolved directives are left in place so the broken
// reference is visible in the output.
type autodocPlugin struct {
	symbols map[string]autodocSymbol
}

type autodocSymbol struct {
	Summary   string   `yaml:"summary"`
	Signature string   `yaml:"signature"`
	Members   []string `yaml:"members"`
}

type autodocOptions struct {
	Symbols map[string]autodocSymbol `yaml:"symbols"`
}

var autodocDirective = regexp.MustCompile(`(?m)^:::\s+([\w./-]+)\s*$`)

func newAutodoc(entry *config.OptionEntry, _ *config.Config) (Plugin, error) {
	var opts autodocOptions
	if err := entry.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	return &autodocPlugin{symbols: opts.Symbols}, nil
}

func (p *autodocPlugin) Name() string { return "api-autodoc" }

func (p *autodocPlugin) Process(_ string, source []byte) ([]byte, error) {
	return autodocDirective.ReplaceAllFunc(source, func(m []byte) []byte {
		name := string(autodocDirective.FindSubmatch(m)[1])
		sym, ok := p.symbols[name]
		if !ok {
			return m
		}
		var b bytes.Buffer
		fmt.Fprintf(&b, "### `%s`\n\n", name)
		if sym.Signature != "" {
			fmt.Fprintf(&b, "```\n%s\n```\n\n", sym.Signature)
		}
		if sym.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", sym.Summary)
		}
		for _, member := range sym.Members {
			fmt.Fprintf(&b, "- `%s`\n", member)
		}
		return bytes.TrimRight(b.Bytes(), "\n")
	}), nil
}
