package plugin

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// includePlugin expands {% include "relative/path.md" %} directives in
// page source. Paths resolve relative to the including file first, then
// to docs_dir. Includes nest up to maxIncludeDepth.
type includePlugin struct {
	docsDir string
}

const maxIncludeDepth = 8

var includeDirective = regexp.MustCompile(`\{%\s*include\s+"([^"]+)"\s*%\}`)

func newIncludeMarkdown(_ *config.OptionEntry, cfg *config.Config) (Plugin, error) {
	return &includePlugin{docsDir: cfg.DocsDir}, nil
}

func (p *includePlugin) Name() string { return "include-markdown" }

func (p *includePlugin) Process(relPath string, source []byte) ([]byte, error) {
	return p.expand(relPath, source, 0)
}

func (p *includePlugin) expand(relPath string, source []byte, depth int) ([]byte, error) {
	if depth > maxIncludeDepth {
		return nil, fmt.Errorf("include depth exceeded in %s", relPath)
	}

	var expandErr error
	out := includeDirective.ReplaceAllFunc(source, func(m []byte) []byte {
		if expandErr != nil {
			return m
		}
		target := string(includeDirective.FindSubmatch(m)[1])

		candidates := []string{
			filepath.Join(p.docsDir, filepath.FromSlash(path.Dir(relPath)), filepath.FromSlash(target)),
			filepath.Join(p.docsDir, filepath.FromSlash(target)),
		}
		for _, candidate := range candidates {
			data, err := os.ReadFile(candidate) // #nosec G304 - resolved under docs_dir
			if err != nil {
				continue
			}
			nested, err := p.expand(path.Join(path.Dir(relPath), target), data, depth+1)
			if err != nil {
				expandErr = err
				return m
			}
			return nested
		}
		expandErr = fmt.Errorf("include %q in %s: file not found", target, relPath)
		return m
	})
	if expandErr != nil {
		return nil, expandErr
	}
	return out, nil
}
