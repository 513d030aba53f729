package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Snapshot serializes the loaded configuration back to YAML in its
// canonical shape. Entry order of nav, plugins, and markdown_extensions
// is preserved.
func (c *Config) Snapshot() ([]byte, error) {
	return yaml.Marshal(c)
}

// Hash returns a stable digest of the canonical serialization, used by
// watch mode to detect whether a rebuild is needed.
func (c *Config) Hash() string {
	if c == nil {
		return ""
	}
	data, err := c.Snapshot()
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyRoundTrip checks round-trip stability: re-serializing the parsed
// structure and reparsing it must yield an identical structure.
func (c *Config) VerifyRoundTrip() error {
	first, err := c.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	again, err := Parse(first)
	if err != nil {
		return fmt.Errorf("reparse: %w", err)
	}
	second, err := again.Snapshot()
	if err != nil {
		return fmt.Errorf("second snapshot: %w", err)
	}
	if !bytes.Equal(first, second) {
		return fmt.Errorf("configuration is not round-trip stable")
	}
	return nil
}
