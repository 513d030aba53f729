package config

import (
	"fmt"
	"os"
)

const exampleConfig = `# docsite configuration
site_name: My Documentation
site_url: https://example.com
site_description: Project documentation built with docsite
site_author: The Team

repo_url: https://github.com/example/project
edit_uri: edit/main/docs/

docs_dir: docs
site_dir: site

theme:
  name: material
  features:
    - navigation.tabs
    - content.code.copy
  palette:
    - media: "(prefers-color-scheme: light)"
      scheme: default
      primary: indigo
      toggle:
        icon: material/brightness-7
        name: Switch to dark mode
    - media: "(prefers-color-scheme: dark)"
      scheme: slate
      primary: black
      toggle:
        icon: material/brightness-4
        name: Switch to light mode

nav:
  - index.md
  - Getting started: getting-started.md
  - User guide:
      - usage/index.md
      - Configuration: usage/configuration.md

plugins:
  - search
  - macros:
      variables:
        version: "1.0"
  - exclude:
      glob:
        - drafts/*

markdown_extensions:
  - admonition
  - toc:
      permalink: true
  - pymdownx.superfences
  - pymdownx.tabbed
  - pymdownx.magiclink

validation:
  omitted_files: info
  broken_links: warn
  absolute_links: info
  unrecognized_links: warn
  anchors: warn
`

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
