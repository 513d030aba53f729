// Package site runs the build pipeline: discover sources under
// docs_dir, run the configured plugins, render markdown to HTML, write
// the site directory, and validate the result against the configured
// policy.
package site

import (
	"context"
	"encoding/xml"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/linkcheck"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/nav"
	"git.home.luguber.info/inful/docsite/internal/plugin"
	"git.home.luguber.info/inful/docsite/internal/render"
	"git.home.luguber.info/inful/docsite/internal/validation"
)

// Builder runs site builds for one loaded configuration. Paths in the
// configuration resolve relative to root.
type Builder struct {
	cfg  *config.Config
	root string

	recorder  metrics.Recorder
	publisher linkcheck.Publisher
	logger    *slog.Logger
}

// NewBuilder creates a builder rooted at the config file's directory.
func NewBuilder(cfg *config.Config, root string) *Builder {
	return &Builder{
		cfg:      cfg,
		root:     root,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
}

// WithRecorder injects a metrics recorder.
func (b *Builder) WithRecorder(r metrics.Recorder) *Builder {
	if r != nil {
		b.recorder = r
	}
	return b
}

// WithPublisher attaches a broken-link event publisher.
func (b *Builder) WithPublisher(p linkcheck.Publisher) *Builder {
	b.publisher = p
	return b
}

// WithLogger overrides the default logger.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	if l != nil {
		b.logger = l
	}
	return b
}

// DocsDir returns the absolute docs directory.
func (b *Builder) DocsDir() string { return filepath.Join(b.root, b.cfg.DocsDir) }

// SiteDir returns the absolute output directory.
func (b *Builder) SiteDir() string { return filepath.Join(b.root, b.cfg.SiteDir) }

// buildState carries intermediate results between stages.
type buildState struct {
	report *BuildReport

	plugins []plugin.Plugin
	engine  *render.Engine
	tree    *nav.Tree

	docFiles      map[string]bool
	markdownFiles []string
	sources       map[string][]byte
	pages         []*render.Page
}

type stage struct {
	name string
	run  func(ctx context.Context, st *buildState) error
}

// Build runs the full pipeline. The report is always returned; the
// error is non-nil only when a stage failed or the context was
// canceled.
func (b *Builder) Build(ctx context.Context) (*BuildReport, error) {
	report := &BuildReport{
		SchemaVersion:  reportSchemaVersion,
		BuildID:        uuid.NewString(),
		Start:          time.Now(),
		StageDurations: map[string]float64{},
	}
	report.ConfigHash = b.cfg.Hash()
	if stamper, ok := b.publisher.(interface{ SetBuildID(string) }); ok {
		stamper.SetBuildID(report.BuildID)
	}
	st := &buildState{report: report}

	stages := []stage{
		{"prepare", b.stagePrepare},
		{"discover", b.stageDiscover},
		{"render", b.stageRender},
		{"write", b.stageWrite},
		{"validate", b.stageValidate},
	}

	var buildErr error
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			report.Outcome = OutcomeCanceled
			buildErr = err
			break
		}
		start := time.Now()
		err := s.run(ctx, st)
		elapsed := time.Since(start)
		report.StageDurations[s.name] = elapsed.Seconds()
		b.recorder.ObserveStageDuration(s.name, elapsed)
		if err != nil {
			if ctx.Err() != nil {
				report.Outcome = OutcomeCanceled
			} else {
				report.addError(s.name, err)
			}
			buildErr = err
			b.logger.Error("Build stage failed", "stage", s.name, "build_id", report.BuildID, "error", err)
			break
		}
		b.logger.Debug("Build stage complete", "stage", s.name, "duration", elapsed)
	}

	report.End = time.Now()
	report.deriveOutcome(b.cfg.Strict)
	b.recorder.ObserveBuildDuration(report.Duration())
	b.recorder.IncBuildOutcome(string(report.Outcome))
	b.recorder.SetPagesRendered(report.Pages)
	for _, f := range report.Findings {
		b.recorder.IncFinding(string(f.Category), string(f.Severity))
	}

	if report.Outcome == OutcomeFailed && buildErr == nil {
		buildErr = fmt.Errorf("build failed with %d blocking findings", len(report.Findings))
	}

	if err := report.Persist(b.SiteDir()); err != nil {
		b.logger.Warn("Failed to persist build report", "error", err)
	}
	b.logger.Info("Build finished",
		"build_id", report.BuildID, "outcome", string(report.Outcome),
		"pages", report.Pages, "findings", len(report.Findings))
	return report, buildErr
}

func (b *Builder) stagePrepare(_ context.Context, st *buildState) error {
	plugins, _, err := plugin.Build(b.cfg)
	if err != nil {
		return err
	}
	st.plugins = plugins

	engine, err := render.NewEngine(b.cfg)
	if err != nil {
		return err
	}
	st.engine = engine
	return nil
}

func (b *Builder) stageDiscover(_ context.Context, st *buildState) error {
	docFiles, markdownFiles, err := ListDocFiles(b.DocsDir(), st.plugins)
	if err != nil {
		return err
	}
	st.docFiles = docFiles
	st.markdownFiles = markdownFiles

	if b.cfg.Nav.IsEmpty() {
		st.tree = nav.FromPages(st.markdownFiles)
	} else {
		st.tree = &b.cfg.Nav
	}
	return nil
}

// ListDocFiles walks docsDir and returns every source file as a
// relative forward-slash path, plus the sorted markdown subset. Hidden
// files and plugin-excluded sources are skipped.
func ListDocFiles(docsDir string, plugins []plugin.Plugin) (map[string]bool, []string, error) {
	info, err := os.Stat(docsDir)
	if err != nil || !info.IsDir() {
		return nil, nil, fmt.Errorf("docs_dir %q is not a directory", docsDir)
	}

	docFiles := map[string]bool{}
	var markdownFiles []string
	err = filepath.WalkDir(docsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != docsDir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(docsDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(filepath.Base(rel), ".") {
			return nil
		}
		if excluded(plugins, rel) {
			return nil
		}
		docFiles[rel] = true
		if strings.HasSuffix(rel, ".md") {
			markdownFiles = append(markdownFiles, rel)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scan docs_dir: %w", err)
	}
	sort.Strings(markdownFiles)
	return docFiles, markdownFiles, nil
}

func excluded(plugins []plugin.Plugin, rel string) bool {
	for _, p := range plugins {
		if filter, ok := p.(plugin.SourceFilter); ok && filter.Excluded(rel) {
			return true
		}
	}
	return false
}

func (b *Builder) stageRender(ctx context.Context, st *buildState) error {
	st.sources = make(map[string][]byte, len(st.markdownFiles))
	for _, rel := range st.markdownFiles {
		if err := ctx.Err(); err != nil {
			return err
		}
		content, err := os.ReadFile(filepath.Join(b.DocsDir(), filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		for _, p := range st.plugins {
			pre, ok := p.(plugin.PreProcessor)
			if !ok {
				continue
			}
			if content, err = pre.Process(rel, content); err != nil {
				return fmt.Errorf("plugin %s on %s: %w", p.Name(), rel, err)
			}
		}
		st.sources[rel] = content

		page, err := st.engine.RenderPage(rel, content)
		if err != nil {
			return err
		}
		for _, p := range st.plugins {
			if post, ok := p.(plugin.PostProcessor); ok {
				if err := post.ProcessPage(page); err != nil {
					return fmt.Errorf("plugin %s on %s: %w", p.Name(), rel, err)
				}
			}
		}
		st.pages = append(st.pages, page)
	}
	st.report.Pages = len(st.pages)
	return nil
}

func (b *Builder) stageWrite(ctx context.Context, st *buildState) error {
	siteDir := b.SiteDir()
	if err := os.RemoveAll(siteDir); err != nil {
		return fmt.Errorf("clean site_dir: %w", err)
	}
	if err := os.MkdirAll(siteDir, 0o755); err != nil {
		return fmt.Errorf("create site_dir: %w", err)
	}

	theme, err := newThemeRenderer(b.cfg, st.tree)
	if err != nil {
		return err
	}

	for _, page := range st.pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := filepath.Join(siteDir, filepath.FromSlash(render.OutputPath(page.SourcePath)))
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		f, err := os.Create(out) // #nosec G304 - path derived from docs_dir listing
		if err != nil {
			return err
		}
		werr := theme.WritePage(f, page)
		cerr := f.Close()
		if werr != nil {
			return fmt.Errorf("write %s: %w", page.SourcePath, werr)
		}
		if cerr != nil {
			return cerr
		}
	}

	// Non-markdown files copy through verbatim.
	assets := 0
	for rel := range st.docFiles {
		if strings.HasSuffix(rel, ".md") {
			continue
		}
		if err := copyFile(
			filepath.Join(b.DocsDir(), filepath.FromSlash(rel)),
			filepath.Join(siteDir, filepath.FromSlash(rel)),
		); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		assets++
	}
	st.report.Assets = assets

	for _, p := range st.plugins {
		if writer, ok := p.(plugin.SiteWriter); ok {
			if err := writer.WriteArtifacts(siteDir, st.pages); err != nil {
				return fmt.Errorf("plugin %s artifacts: %w", p.Name(), err)
			}
		}
	}

	if b.cfg.SiteURL != "" {
		if err := writeSitemap(siteDir, b.cfg.SiteURL, st.pages); err != nil {
			return fmt.Errorf("write sitemap: %w", err)
		}
	}
	return nil
}

// writeSitemap emits sitemap.xml with one entry per page. Skipped when
// site_url is unset because entries must be absolute.
func writeSitemap(siteDir, siteURL string, pages []*render.Page) error {
	base := strings.TrimSuffix(siteURL, "/") + "/"
	var buf strings.Builder
	buf.WriteString(xml.Header)
	buf.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + "\n")
	for _, page := range pages {
		loc := base + render.URLFor(page.SourcePath)
		buf.WriteString("  <url><loc>")
		if err := xml.EscapeText(&buf, []byte(loc)); err != nil {
			return err
		}
		buf.WriteString("</loc></url>\n")
	}
	buf.WriteString("</urlset>\n")
	return os.WriteFile(filepath.Join(siteDir, "sitemap.xml"), []byte(buf.String()), 0o644)
}

func (b *Builder) stageValidate(_ context.Context, st *buildState) error {
	vctx := &validation.Context{
		Config:        b.cfg,
		Policy:        validation.NewPolicy(b.cfg.Validation),
		DocFiles:      st.docFiles,
		MarkdownFiles: st.markdownFiles,
		Pages:         st.pages,
	}
	findings := validation.NewEvaluator(validation.ConfigRules()...).Run(vctx)

	checker := linkcheck.NewChecker(b.cfg, st.pages, st.docFiles)
	if b.publisher != nil {
		checker = checker.WithPublisher(b.publisher)
	}
	findings = append(findings, checker.Check()...)

	scanned, err := linkcheck.ScanSite(b.SiteDir(), vctx.Policy)
	if err != nil {
		return fmt.Errorf("scan built site: %w", err)
	}
	findings = append(findings, scanned...)

	findings.Log(b.logger)
	st.report.Findings = findings
	return nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src) // #nosec G304 - path derived from docs_dir listing
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
