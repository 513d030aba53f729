package site

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/validation"
)

const testConfigYAML = `
site_name: Test Site
site_url: https://docs.example.org/
copyright: Copyright Test
theme:
  name: material
nav:
  - index.md
  - Guide:
      - guide/setup.md
plugins:
  - search
markdown_extensions:
  - admonition
  - toc:
      permalink: true
validation:
  broken_links: warn
  anchors: warn
`

func writeDocs(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, "docs", filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func buildSite(t *testing.T, cfgYAML string, files map[string]string) (*BuildReport, string, error) {
	t.Helper()
	root := t.TempDir()
	writeDocs(t, root, files)
	cfg, err := config.Parse([]byte(cfgYAML))
	require.NoError(t, err)
	report, buildErr := NewBuilder(cfg, root).Build(context.Background())
	return report, root, buildErr
}

func TestBuildSuccess(t *testing.T) {
	report, root, err := buildSite(t, testConfigYAML, map[string]string{
		"index.md":       "# Home\n\nSee the [guide](guide/setup.md).\n",
		"guide/setup.md": "# Setup\n\nBack to [home](../index.md).\n",
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, report.Outcome)
	assert.Equal(t, 2, report.Pages)
	assert.NotEmpty(t, report.BuildID)
	assert.NotEmpty(t, report.ConfigHash)

	// Pretty URLs: index.md at the root, other pages as dir indexes.
	assert.FileExists(t, filepath.Join(root, "site", "index.html"))
	assert.FileExists(t, filepath.Join(root, "site", "guide", "setup", "index.html"))
}

func TestBuildWrapsPagesInTheme(t *testing.T) {
	_, root, err := buildSite(t, testConfigYAML, map[string]string{
		"index.md":       "# Home\n",
		"guide/setup.md": "# Setup\n",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "site", "guide", "setup", "index.html"))
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<title>Setup - Test Site</title>")
	assert.Contains(t, html, `data-theme="material"`)
	assert.Contains(t, html, "Copyright Test")
	assert.Contains(t, html, `<link rel="canonical" href="https://docs.example.org/guide/setup/">`)
	// Nav renders both top-level entries, the section active.
	assert.Contains(t, html, `<a href="/">Home</a>`)
	assert.Contains(t, html, `class="active"`)
}

func TestBuildWritesSearchIndex(t *testing.T) {
	_, root, err := buildSite(t, testConfigYAML, map[string]string{
		"index.md":       "# Home\n\nWelcome text.\n",
		"guide/setup.md": "# Setup\n",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "site", "search", "search_index.json"))
	require.NoError(t, err)
	var index struct {
		Docs []struct {
			Location string `json:"location"`
			Title    string `json:"title"`
		} `json:"docs"`
	}
	require.NoError(t, json.Unmarshal(data, &index))
	require.Len(t, index.Docs, 2)
}

func TestBuildWritesSitemap(t *testing.T) {
	_, root, err := buildSite(t, testConfigYAML, map[string]string{
		"index.md":       "# Home\n",
		"guide/setup.md": "# Setup\n",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "site", "sitemap.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<loc>https://docs.example.org/</loc>")
	assert.Contains(t, string(data), "<loc>https://docs.example.org/guide/setup/</loc>")
}

func TestBuildCopiesAssets(t *testing.T) {
	report, root, err := buildSite(t, testConfigYAML, map[string]string{
		"index.md":        "# Home\n\n![logo](images/logo.png)\n",
		"guide/setup.md":  "# Setup\n",
		"images/logo.png": "notarealpng",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Assets)
	assert.FileExists(t, filepath.Join(root, "site", "images", "logo.png"))
}

func TestBuildReportsBrokenLinks(t *testing.T) {
	report, _, err := buildSite(t, testConfigYAML, map[string]string{
		"index.md":       "# Home\n\nSee [missing](missing.md).\n",
		"guide/setup.md": "# Setup\n",
	})
	require.NoError(t, err) // warn severity does not fail the build
	assert.Equal(t, OutcomeWarning, report.Outcome)

	var broken int
	for _, f := range report.Findings {
		if f.Category == validation.CategoryBrokenLinks {
			broken++
		}
	}
	assert.Positive(t, broken)
}

func TestBuildStrictModeFailsOnWarnings(t *testing.T) {
	cfgYAML := "strict: true\n" + testConfigYAML
	report, _, err := buildSite(t, cfgYAML, map[string]string{
		"index.md":       "# Home\n\nSee [missing](missing.md).\n",
		"guide/setup.md": "# Setup\n",
	})
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, report.Outcome)
}

func TestBuildFailsOnMissingNavPage(t *testing.T) {
	report, _, err := buildSite(t, testConfigYAML, map[string]string{
		"index.md": "# Home\n",
		// guide/setup.md from the nav is absent
	})
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, report.Outcome)
}

func TestBuildMissingDocsDir(t *testing.T) {
	root := t.TempDir()
	cfg, err := config.Parse([]byte("site_name: X\n"))
	require.NoError(t, err)

	report, buildErr := NewBuilder(cfg, root).Build(context.Background())
	require.Error(t, buildErr)
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, "discover", report.FailedStage)
}

func TestBuildCanceledContext(t *testing.T) {
	root := t.TempDir()
	writeDocs(t, root, map[string]string{"index.md": "# Home\n"})
	cfg, err := config.Parse([]byte("site_name: X\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, buildErr := NewBuilder(cfg, root).Build(ctx)
	require.Error(t, buildErr)
	assert.Equal(t, OutcomeCanceled, report.Outcome)
}

func TestBuildPersistsReport(t *testing.T) {
	_, root, err := buildSite(t, testConfigYAML, map[string]string{
		"index.md":       "# Home\n",
		"guide/setup.md": "# Setup\n",
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "site", "build-report.json"))
	require.NoError(t, err)
	var persisted BuildReport
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, OutcomeSuccess, persisted.Outcome)
	assert.Equal(t, reportSchemaVersion, persisted.SchemaVersion)
	assert.Contains(t, persisted.StageDurations, "render")
}

func TestBuildExcludePluginFiltersSources(t *testing.T) {
	cfgYAML := strings.Replace(testConfigYAML, "plugins:\n  - search\n", `plugins:
  - exclude:
      glob:
        - drafts/*
`, 1)
	report, root, err := buildSite(t, cfgYAML, map[string]string{
		"index.md":       "# Home\n",
		"guide/setup.md": "# Setup\n",
		"drafts/wip.md":  "# WIP\n",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Pages)
	assert.NoFileExists(t, filepath.Join(root, "site", "drafts", "wip", "index.html"))
}

func TestReportSummary(t *testing.T) {
	report, _, err := buildSite(t, testConfigYAML, map[string]string{
		"index.md":       "# Home\n",
		"guide/setup.md": "# Setup\n",
	})
	require.NoError(t, err)
	summary := report.Summary()
	assert.Contains(t, summary, report.BuildID)
	assert.Contains(t, summary, "success")
}
