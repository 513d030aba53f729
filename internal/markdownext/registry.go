// Package markdownext maps configured markdown extension names onto
// goldmark parser and renderer options: admonition blocks, tabbed
// content, fenced code with custom renderers, auto-linked issue
// references, and table-of-contents permalinks.
package markdownext

import (
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// Settings carries per-extension options decoded from the configuration.
type Settings struct {
	TocPermalink bool
	RepoURL      string // base for magiclink issue references
}

// builder translates one configured extension entry into goldmark options.
type builder func(entry *config.OptionEntry, s *Settings) ([]goldmark.Option, error)

var builders = map[string]builder{
	"admonition": func(*config.OptionEntry, *Settings) ([]goldmark.Option, error) {
		return []goldmark.Option{goldmark.WithExtensions(Admonition)}, nil
	},
	"pymdownx.tabbed": func(*config.OptionEntry, *Settings) ([]goldmark.Option, error) {
		return []goldmark.Option{goldmark.WithExtensions(Tabbed)}, nil
	},
	"pymdownx.superfences": func(*config.OptionEntry, *Settings) ([]goldmark.Option, error) {
		return []goldmark.Option{goldmark.WithExtensions(Superfences)}, nil
	},
	"pymdownx.magiclink": func(e *config.OptionEntry, s *Settings) ([]goldmark.Option, error) {
		var opts struct {
			RepoURL string `yaml:"repo_url"`
		}
		if err := e.DecodeOptions(&opts); err != nil {
			return nil, err
		}
		if opts.RepoURL != "" {
			s.RepoURL = opts.RepoURL
		}
		return []goldmark.Option{
			goldmark.WithExtensions(extension.Linkify),
			goldmark.WithExtensions(&magiclink{settings: s}),
		}, nil
	},
	"toc": func(e *config.OptionEntry, s *Settings) ([]goldmark.Option, error) {
		var opts struct {
			Permalink bool `yaml:"permalink"`
		}
		if err := e.DecodeOptions(&opts); err != nil {
			return nil, err
		}
		s.TocPermalink = opts.Permalink
		return nil, nil // heading IDs are always assigned, see Build
	},
	"attr_list": func(*config.OptionEntry, *Settings) ([]goldmark.Option, error) {
		return []goldmark.Option{goldmark.WithParserOptions(parser.WithAttribute())}, nil
	},
	"tables": func(*config.OptionEntry, *Settings) ([]goldmark.Option, error) {
		return []goldmark.Option{goldmark.WithExtensions(extension.Table)}, nil
	},
	"footnotes": func(*config.OptionEntry, *Settings) ([]goldmark.Option, error) {
		return []goldmark.Option{goldmark.WithExtensions(extension.Footnote)}, nil
	},
	"def_list": func(*config.OptionEntry, *Settings) ([]goldmark.Option, error) {
		return []goldmark.Option{goldmark.WithExtensions(extension.DefinitionList)}, nil
	},
	"md_in_html": func(*config.OptionEntry, *Settings) ([]goldmark.Option, error) {
		return []goldmark.Option{goldmark.WithRendererOptions(html.WithUnsafe())}, nil
	},
}

// Known reports whether the extension name has a registered builder.
func Known(name string) bool {
	_, ok := builders[name]
	return ok
}

// KnownNames returns every registered extension name.
func KnownNames() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	return names
}

// Build assembles a goldmark instance from the enabled extension list.
// Unrecognized names are skipped here; the validation layer reports them
// with the configured severity. Heading IDs are always assigned so the
// anchor check has something to resolve against.
func Build(list config.OptionList, repoURL string) (goldmark.Markdown, *Settings, error) {
	s := &Settings{RepoURL: repoURL}

	options := []goldmark.Option{
		goldmark.WithParserOptions(parser.WithASTTransformers(headingIDTransformerEntry)),
	}
	for i := range list {
		build, ok := builders[list[i].Name]
		if !ok {
			continue
		}
		opts, err := build(&list[i], s)
		if err != nil {
			return nil, nil, fmt.Errorf("markdown extension %q: %w", list[i].Name, err)
		}
		options = append(options, opts...)
	}
	options = append(options, goldmark.WithRendererOptions(newHeadingRendererOption(s)))

	return goldmark.New(options...), s, nil
}
