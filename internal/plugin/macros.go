package plugin

import (
	"fmt"
	"regexp"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// macrosPlugin substitutes {{ name }} references in page source with
// values from the plugin's variables and the configuration's extra
// mapping. Unknown references are left untouched for the author to spot.
type macrosPlugin struct {
	variables map[string]string
}

type macrosOptions struct {
	Variables map[string]string `yaml:"variables"`
}

var macroRef = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.]*)\s*\}\}`)

func newMacros(entry *config.OptionEntry, cfg *config.Config) (Plugin, error) {
	var opts macrosOptions
	if err := entry.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	vars := make(map[string]string, len(opts.Variables)+len(cfg.Extra))
	for k, v := range cfg.Extra {
		vars[k] = fmt.Sprintf("%v", v)
	}
	for k, v := range opts.Variables {
		vars[k] = v
	}
	return &macrosPlugin{variables: vars}, nil
}

func (p *macrosPlugin) Name() string { return "macros" }

func (p *macrosPlugin) Process(_ string, source []byte) ([]byte, error) {
	return macroRef.ReplaceAllFunc(source, func(m []byte) []byte {
		name := string(macroRef.FindSubmatch(m)[1])
		if v, ok := p.variables[name]; ok {
			return []byte(v)
		}
		return m
	}), nil
}
