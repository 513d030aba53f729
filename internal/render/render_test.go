package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	cfg, err := config.Parse([]byte(`
site_name: Test
repo_url: https://github.com/example/project
markdown_extensions:
  - admonition
  - toc:
      permalink: true
`))
	require.NoError(t, err)
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	return engine
}

func TestRenderPageCollectsAnchorsAndLinks(t *testing.T) {
	engine := testEngine(t)

	src := `---
title: Install Guide
description: Setup steps
---
# Install

See [configuration](../usage/configuration.md#options) and
![diagram](images/setup.png).

## Requirements
`
	page, err := engine.RenderPage("guide/install.md", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, "Install Guide", page.Title)
	assert.Equal(t, "Setup steps", page.Description)
	assert.Equal(t, []string{"install", "requirements"}, page.Anchors)

	require.Len(t, page.Links, 2)
	assert.Equal(t, "../usage/configuration.md#options", page.Links[0].Destination)
	assert.False(t, page.Links[0].Image)
	assert.Equal(t, "images/setup.png", page.Links[1].Destination)
	assert.True(t, page.Links[1].Image)

	assert.Contains(t, string(page.HTML), `<h1 id="install">`)
	// Cross-document links render as built page URLs.
	assert.Contains(t, string(page.HTML), `href="../../usage/configuration/#options"`)
}

func TestRelativeURL(t *testing.T) {
	tests := []struct {
		src, target, want string
	}{
		{"index.md", "guide/setup.md", "guide/setup/"},
		{"guide/setup.md", "index.md", "../../"},
		{"guide/setup.md", "guide/advanced.md", "../../guide/advanced/"},
		{"index.md", "index.md", "./"},
	}
	for _, tt := range tests {
		if got := RelativeURL(tt.src, tt.target); got != tt.want {
			t.Fatalf("RelativeURL(%q, %q) = %q, want %q", tt.src, tt.target, got, tt.want)
		}
	}
}

func TestRenderPageTitleFallbacks(t *testing.T) {
	engine := testEngine(t)

	page, err := engine.RenderPage("about.md", []byte("# From Heading\n\nbody\n"))
	require.NoError(t, err)
	assert.Equal(t, "From Heading", page.Title)

	page, err = engine.RenderPage("getting-started.md", []byte("no headings here\n"))
	require.NoError(t, err)
	assert.Equal(t, "Getting Started", page.Title)
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"index.md", "index.html"},
		{"about.md", "about/index.html"},
		{"usage/index.md", "usage/index.html"},
		{"usage/configuration.md", "usage/configuration/index.html"},
		{"api/README.md", "api/index.html"},
	}
	for _, tt := range tests {
		if got := OutputPath(tt.in); got != tt.want {
			t.Fatalf("OutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestURLFor(t *testing.T) {
	assert.Equal(t, "", URLFor("index.md"))
	assert.Equal(t, "about/", URLFor("about.md"))
	assert.Equal(t, "usage/configuration/", URLFor("usage/configuration.md"))
}
