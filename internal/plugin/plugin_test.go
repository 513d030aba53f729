package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/render"
)

func parseConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(body))
	require.NoError(t, err)
	return cfg
}

func TestBuildOrderAndUnknown(t *testing.T) {
	cfg := parseConfig(t, `
site_name: X
plugins:
  - search
  - no-such-plugin
  - exclude:
      glob:
        - drafts/*
`)
	plugins, unknown, err := Build(cfg)
	require.NoError(t, err)
	require.Len(t, plugins, 2)
	assert.Equal(t, "search", plugins[0].Name())
	assert.Equal(t, "exclude", plugins[1].Name())
	assert.Equal(t, []string{"no-such-plugin"}, unknown)
}

func TestExcludeGlobs(t *testing.T) {
	cfg := parseConfig(t, `
site_name: X
plugins:
  - exclude:
      glob:
        - drafts/*
        - "*.tmp.md"
`)
	plugins, _, err := Build(cfg)
	require.NoError(t, err)
	filter := plugins[0].(SourceFilter)

	assert.True(t, filter.Excluded("drafts/wip.md"))
	assert.True(t, filter.Excluded("drafts/deep/nested.md"))
	assert.True(t, filter.Excluded("notes.tmp.md"))
	assert.False(t, filter.Excluded("index.md"))
	assert.False(t, filter.Excluded("guide/drafts.md"))
}

func TestMacrosSubstitution(t *testing.T) {
	cfg := parseConfig(t, `
site_name: X
extra:
  company: Example Corp
plugins:
  - macros:
      variables:
        version: "2.1"
`)
	plugins, _, err := Build(cfg)
	require.NoError(t, err)
	pre := plugins[0].(PreProcessor)

	out, err := pre.Process("index.md", []byte("Release {{ version }} by {{ company }}. Unknown: {{ nope }}."))
	require.NoError(t, err)
	assert.Equal(t, "Release 2.1 by Example Corp. Unknown: {{ nope }}.", string(out))
}

func TestIncludeMarkdown(t *testing.T) {
	docsDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(docsDir, "guide"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "guide", "snippet.md"), []byte("shared content"), 0o644))

	cfg := parseConfig(t, "site_name: X\nplugins:\n  - include-markdown\n")
	cfg.DocsDir = docsDir
	plugins, _, err := Build(cfg)
	require.NoError(t, err)
	pre := plugins[0].(PreProcessor)

	out, err := pre.Process("guide/install.md", []byte("before\n{% include \"snippet.md\" %}\nafter"))
	require.NoError(t, err)
	assert.Equal(t, "before\nshared content\nafter", string(out))

	_, err = pre.Process("guide/install.md", []byte("{% include \"missing.md\" %}"))
	require.Error(t, err)
}

func TestIncludeMarkdownDepthLimit(t *testing.T) {
	docsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "loop.md"), []byte("{% include \"loop.md\" %}"), 0o644))

	cfg := parseConfig(t, "site_name: X\nplugins:\n  - include-markdown\n")
	cfg.DocsDir = docsDir
	plugins, _, err := Build(cfg)
	require.NoError(t, err)
	pre := plugins[0].(PreProcessor)

	_, err = pre.Process("loop.md", []byte("{% include \"loop.md\" %}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth")
}

func TestSearchIndex(t *testing.T) {
	cfg := parseConfig(t, "site_name: X\nplugins:\n  - search\n")
	plugins, _, err := Build(cfg)
	require.NoError(t, err)
	writer := plugins[0].(SiteWriter)

	siteDir := t.TempDir()
	pages := []*render.Page{
		{SourcePath: "index.md", Title: "Home", HTML: []byte("<h1>Home</h1><p>Welcome   to docsite</p>")},
		{SourcePath: "about.md", Title: "About", HTML: []byte("<p>About us</p>")},
	}
	require.NoError(t, writer.WriteArtifacts(siteDir, pages))

	data, err := os.ReadFile(filepath.Join(siteDir, "search", "search_index.json"))
	require.NoError(t, err)
	var index struct {
		Docs []struct {
			Location string `json:"location"`
			Title    string `json:"title"`
			Text     string `json:"text"`
		} `json:"docs"`
	}
	require.NoError(t, json.Unmarshal(data, &index))
	require.Len(t, index.Docs, 2)
	assert.Equal(t, "", index.Docs[0].Location)
	assert.Equal(t, "Home Welcome to docsite", index.Docs[0].Text)
	assert.Equal(t, "about/", index.Docs[1].Location)
}

func TestPrivacyRewrite(t *testing.T) {
	cfg := parseConfig(t, "site_name: X\nplugins:\n  - privacy\n")
	plugins, _, err := Build(cfg)
	require.NoError(t, err)
	post := plugins[0].(PostProcessor)
	writer := plugins[0].(SiteWriter)

	page := &render.Page{
		SourcePath: "index.md",
		HTML:       []byte(`<p><img src="https://cdn.example.com/logo.png"><img src="images/local.png"></p>`),
	}
	require.NoError(t, post.ProcessPage(page))

	out := string(page.HTML)
	assert.NotContains(t, out, "https://cdn.example.com/logo.png")
	assert.Contains(t, out, "/assets/external/")
	assert.Contains(t, out, `src="images/local.png"`)

	siteDir := t.TempDir()
	require.NoError(t, writer.WriteArtifacts(siteDir, nil))
	manifest, err := os.ReadFile(filepath.Join(siteDir, "assets", "external", "manifest.json"))
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "https://cdn.example.com/logo.png")
}

func TestAutodocDirective(t *testing.T) {
	cfg := parseConfig(t, `
site_name: X
plugins:
  - api-autodoc:
      symbols:
        pipeline.Run:
          signature: "func Run(ctx context.Context) error"
          summary: Runs the full pipeline.
          members:
            - ctx
`)
	plugins, _, err := Build(cfg)
	require.NoError(t, err)
	pre := plugins[0].(PreProcessor)

	out, err := pre.Process("api.md", []byte("Intro\n\n::: pipeline.Run\n\nOutro\n"))
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "### `pipeline.Run`")
	assert.Contains(t, s, "func Run(ctx context.Context) error")
	assert.Contains(t, s, "Runs the full pipeline.")

	out, err = pre.Process("api.md", []byte("::: unknown.Symbol\n"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "::: unknown.Symbol")
}

func TestMikeSettings(t *testing.T) {
	cfg := parseConfig(t, `
site_name: X
plugins:
  - mike:
      canonical_version: stable
`)
	opts := MikeSettings(cfg)
	assert.Equal(t, "stable", opts.CanonicalAlias)
	assert.True(t, opts.VersionSelector)

	bare := parseConfig(t, "site_name: X\n")
	assert.Equal(t, "latest", MikeSettings(bare).CanonicalAlias)
}

func TestKnownNames(t *testing.T) {
	assert.True(t, Known("search"))
	assert.True(t, Known("mike"))
	assert.False(t, Known("bogus"))
	assert.Len(t, KnownNames(), 7)
}
