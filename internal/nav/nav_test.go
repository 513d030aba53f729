package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleNav = `
- index.md
- Getting started: getting-started.md
- User guide:
    - usage/index.md
    - Configuration: usage/configuration.md
    - Advanced:
        - Caching: usage/advanced/caching.md
- about.md
`

func TestTreeUnmarshalShapes(t *testing.T) {
	var tree Tree
	require.NoError(t, yaml.Unmarshal([]byte(sampleNav), &tree))

	require.Len(t, tree.Items, 4)
	assert.Equal(t, "index.md", tree.Items[0].Path)
	assert.Empty(t, tree.Items[0].Label)
	assert.Equal(t, "Getting started", tree.Items[1].Label)
	assert.Equal(t, "getting-started.md", tree.Items[1].Path)

	guide := tree.Items[2]
	assert.True(t, guide.IsSection())
	require.Len(t, guide.Children, 3)
	assert.Equal(t, "usage/index.md", guide.Children[0].Path)
	assert.Equal(t, "Advanced", guide.Children[2].Label)
	require.Len(t, guide.Children[2].Children, 1)
	assert.Equal(t, "usage/advanced/caching.md", guide.Children[2].Children[0].Path)
}

func TestTreePagesOrder(t *testing.T) {
	var tree Tree
	require.NoError(t, yaml.Unmarshal([]byte(sampleNav), &tree))

	assert.Equal(t, []string{
		"index.md",
		"getting-started.md",
		"usage/index.md",
		"usage/configuration.md",
		"usage/advanced/caching.md",
		"about.md",
	}, tree.Pages())
}

func TestTreeRoundTrip(t *testing.T) {
	var tree Tree
	require.NoError(t, yaml.Unmarshal([]byte(sampleNav), &tree))

	out, err := yaml.Marshal(tree)
	require.NoError(t, err)

	var again Tree
	require.NoError(t, yaml.Unmarshal(out, &again))
	assert.Equal(t, tree.Pages(), again.Pages())

	// Shape survives too: bare strings stay bare, labeled entries stay labeled.
	assert.Empty(t, again.Items[0].Label)
	assert.Equal(t, "Getting started", again.Items[1].Label)
	assert.True(t, again.Items[2].IsSection())
}

func TestTreeUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not a sequence", `nav: true`},
		{"multi-key entry", "- a: x.md\n  b: y.md"},
		{"nested scalar map value", "- Section:\n    key: value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tree Tree
			assert.Error(t, yaml.Unmarshal([]byte(tt.in), &tree))
		})
	}
}

func TestInferTitle(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"getting-started.md", "Getting Started"},
		{"usage/advanced/install_notes.md", "Install Notes"},
		{"usage/index.md", "Usage"},
		{"index.md", "Home"},
		{"api/README.md", "Api"},
	}
	for _, tt := range tests {
		if got := InferTitle(tt.path); got != tt.want {
			t.Fatalf("InferTitle(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFromPages(t *testing.T) {
	tree := FromPages([]string{"index.md", "about.md"})
	require.Len(t, tree.Items, 2)
	assert.False(t, tree.IsEmpty())
	assert.Equal(t, "Home", tree.Items[0].Title())
}

func TestFromPagesIndexFirst(t *testing.T) {
	tree := FromPages([]string{
		"guide/alpha.md",
		"guide/index.md",
		"index.md",
		"about.md",
		"api/README.md",
		"api/client.md",
	})
	assert.Equal(t, []string{
		"index.md",
		"about.md",
		"api/README.md",
		"api/client.md",
		"guide/index.md",
		"guide/alpha.md",
	}, tree.Pages())
}
