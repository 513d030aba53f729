package plugin

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// excludePlugin drops source files matching configured globs from the
// build. A glob ending in "/*" also matches everything below that
// directory.
type excludePlugin struct {
	globs []string
}

type excludeOptions struct {
	Glob []string `yaml:"glob"`
}

func newExclude(entry *config.OptionEntry, _ *config.Config) (Plugin, error) {
	var opts excludeOptions
	if err := entry.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	return &excludePlugin{globs: opts.Glob}, nil
}

func (p *excludePlugin) Name() string { return "exclude" }

func (p *excludePlugin) Excluded(relPath string) bool {
	for _, glob := range p.globs {
		if ok, err := path.Match(glob, relPath); err == nil && ok {
			return true
		}
		if dir, found := strings.CutSuffix(glob, "/*"); found {
			if strings.HasPrefix(relPath, dir+"/") {
				return true
			}
		}
	}
	return false
}
