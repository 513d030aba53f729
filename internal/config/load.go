package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// knownTopLevelKeys is the loader's schema surface. Unknown keys are
// warned about but tolerated; duplicates are an error.
var knownTopLevelKeys = map[string]bool{
	"site_name":           true,
	"site_url":            true,
	"site_description":    true,
	"site_author":         true,
	"copyright":           true,
	"repo_url":            true,
	"repo_name":           true,
	"edit_uri":            true,
	"docs_dir":            true,
	"site_dir":            true,
	"strict":              true,
	"theme":               true,
	"nav":                 true,
	"plugins":             true,
	"markdown_extensions": true,
	"validation":          true,
	"extra":               true,
	"watch":               true,
	"publish":             true,
	"events":              true,
	"metrics":             true,
	"history":             true,
}

// Load reads, expands, and decodes the configuration file, then applies
// defaults. Environment variables referenced as ${VAR} are expanded
// after an optional .env file is loaded.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath) // #nosec G304 - path supplied by operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes configuration bytes. Split from Load so snapshot
// round-trip checks and tests can parse without touching the filesystem.
func Parse(data []byte) (*Config, error) {
	if err := checkTopLevelKeys(data); err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// checkTopLevelKeys scans the document mapping for duplicate keys (an
// error, yaml.v3 silently keeps the last one) and unknown keys (a
// warning).
func checkTopLevelKeys(data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if len(doc.Content) == 0 {
		return fmt.Errorf("configuration is empty")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("configuration root must be a mapping, got %s at line %d", nodeKind(root), root.Line)
	}

	seen := make(map[string]int, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i]
		if prev, dup := seen[key.Value]; dup {
			return fmt.Errorf("duplicate top-level key %q (lines %d and %d)", key.Value, prev, key.Line)
		}
		seen[key.Value] = key.Line
		if !knownTopLevelKeys[key.Value] {
			slog.Warn("Unknown configuration key ignored", "key", key.Value, "line", key.Line)
		}
	}
	return nil
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	default:
		return "node"
	}
}
