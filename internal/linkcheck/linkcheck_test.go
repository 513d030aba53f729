package linkcheck

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/render"
	"git.home.luguber.info/inful/docsite/internal/validation"
)

type capturePublisher struct {
	events []*BrokenLinkEvent
}

func (p *capturePublisher) PublishBrokenLink(event *BrokenLinkEvent) error {
	p.events = append(p.events, event)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		SiteURL: "https://docs.example.org/project/",
		Validation: config.ValidationConfig{
			OmittedFiles:      config.SeverityInfo,
			BrokenLinks:       config.SeverityWarn,
			AbsoluteLinks:     config.SeverityInfo,
			UnrecognizedLinks: config.SeverityWarn,
			Anchors:           config.SeverityWarn,
		},
	}
}

func page(src string, anchors []string, dests ...string) *render.Page {
	p := &render.Page{SourcePath: src, Anchors: anchors}
	for _, d := range dests {
		p.Links = append(p.Links, render.Link{Destination: d})
	}
	return p
}

func categories(findings validation.Findings) []string {
	var out []string
	for _, f := range findings {
		out = append(out, string(f.Category))
	}
	return out
}

func TestCheckRelativePageLinks(t *testing.T) {
	pages := []*render.Page{
		page("index.md", nil, "guide/setup.md", "missing.md"),
		page("guide/setup.md", nil, "../index.md"),
	}
	checker := NewChecker(testConfig(), pages, map[string]bool{})

	findings := checker.Check()
	require.Len(t, findings, 1)
	assert.Equal(t, validation.CategoryBrokenLinks, findings[0].Category)
	assert.Equal(t, "index.md", findings[0].Page)
	assert.Contains(t, findings[0].Detail, "missing.md")
}

func TestCheckAnchors(t *testing.T) {
	pages := []*render.Page{
		page("index.md", []string{"intro"}, "#intro", "#nope", "guide.md#install", "guide.md#gone"),
		page("guide.md", []string{"install"}),
	}
	checker := NewChecker(testConfig(), pages, map[string]bool{})

	findings := checker.Check()
	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, validation.CategoryAnchors, f.Category)
		assert.Equal(t, config.SeverityWarn, f.Severity)
	}
	assert.Contains(t, findings[0].Detail, "#nope")
	assert.Contains(t, findings[1].Detail, "#gone")
}

func TestCheckDirectoryStyleLinks(t *testing.T) {
	pages := []*render.Page{
		page("index.md", nil, "guide/", "nowhere/"),
		page("guide/index.md", nil),
	}
	checker := NewChecker(testConfig(), pages, map[string]bool{})

	findings := checker.Check()
	require.Len(t, findings, 1)
	assert.Equal(t, validation.CategoryBrokenLinks, findings[0].Category)
	assert.Contains(t, findings[0].Detail, "nowhere/")
}

func TestCheckAssetLinks(t *testing.T) {
	pages := []*render.Page{
		page("index.md", nil, "images/logo.png", "images/missing.png"),
	}
	docFiles := map[string]bool{"images/logo.png": true}
	checker := NewChecker(testConfig(), pages, docFiles)

	findings := checker.Check()
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Detail, "images/missing.png")
}

func TestCheckAbsoluteLinks(t *testing.T) {
	pages := []*render.Page{
		page("index.md", nil,
			"/guide/setup/",
			"https://docs.example.org/project/guide/",
			"https://elsewhere.example.com/page"),
	}
	checker := NewChecker(testConfig(), pages, map[string]bool{})

	findings := checker.Check()
	require.Len(t, findings, 2)
	assert.Equal(t, []string{"absolute_links", "absolute_links"}, categories(findings))
	assert.Equal(t, config.SeverityInfo, findings[0].Severity)
}

func TestCheckUnrecognizedScheme(t *testing.T) {
	pages := []*render.Page{
		page("index.md", nil, "ftp://files.example.com/data.tar", "mailto:team@example.org"),
	}
	checker := NewChecker(testConfig(), pages, map[string]bool{})

	findings := checker.Check()
	require.Len(t, findings, 1)
	assert.Equal(t, validation.CategoryUnrecognizedLinks, findings[0].Category)
	assert.Contains(t, findings[0].Detail, "ftp")
}

func TestCheckEscapesDocsDir(t *testing.T) {
	pages := []*render.Page{
		page("index.md", nil, "../outside.md"),
	}
	checker := NewChecker(testConfig(), pages, map[string]bool{})

	findings := checker.Check()
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Detail, "escapes")
}

func TestCheckIgnorePolicyDropsFindings(t *testing.T) {
	cfg := testConfig()
	cfg.Validation.BrokenLinks = config.SeverityIgnore
	pages := []*render.Page{
		page("index.md", nil, "missing.md"),
	}
	checker := NewChecker(cfg, pages, map[string]bool{})

	assert.Empty(t, checker.Check())
}

func TestCheckPublishesBrokenLinkEvents(t *testing.T) {
	pub := &capturePublisher{}
	pages := []*render.Page{
		page("index.md", nil, "missing.md", "guide.md"),
		page("guide.md", nil),
	}
	checker := NewChecker(testConfig(), pages, map[string]bool{}).WithPublisher(pub)

	checker.Check()
	require.Len(t, pub.events, 1)
	assert.Equal(t, "missing.md", pub.events[0].URL)
	assert.Equal(t, "index.md", pub.events[0].SourcePath)
	assert.True(t, pub.events[0].IsInternal)
}

func TestCheckIgnorePolicySuppressesEvents(t *testing.T) {
	pub := &capturePublisher{}
	cfg := testConfig()
	cfg.Validation.BrokenLinks = config.SeverityIgnore
	pages := []*render.Page{
		page("index.md", nil, "missing.md"),
	}
	checker := NewChecker(cfg, pages, map[string]bool{}).WithPublisher(pub)

	assert.Empty(t, checker.Check())
	assert.Empty(t, pub.events)
}

func TestExtractHTMLLinks(t *testing.T) {
	doc := `<html><body>
		<a href="guide/">Guide</a>
		<img src="logo.png">
		<script src="app.js"></script>
		<link href="style.css" rel="stylesheet">
		<a>no href</a>
	</body></html>`

	links, err := ExtractHTMLLinks(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, links, 4)
	assert.Equal(t, HTMLLink{URL: "guide/", Tag: "a", Attribute: "href"}, links[0])
	assert.Equal(t, "logo.png", links[1].URL)
}

func TestScanSite(t *testing.T) {
	siteDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(siteDir, "guide"), 0o755))
	writeFile(t, filepath.Join(siteDir, "index.html"),
		`<a href="guide/">ok</a> <a href="missing/">bad</a> <img src="logo.png">`)
	writeFile(t, filepath.Join(siteDir, "guide", "index.html"),
		`<a href="../">root</a> <a href="#section">fragment</a>`)
	writeFile(t, filepath.Join(siteDir, "logo.png"), "png")

	policy := validation.NewPolicy(testConfig().Validation)
	findings, err := ScanSite(siteDir, policy)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, validation.CategoryBrokenLinks, findings[0].Category)
	assert.Equal(t, "index.html", findings[0].Page)
	assert.Contains(t, findings[0].Detail, "missing/")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
