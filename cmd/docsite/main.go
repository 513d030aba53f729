package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsite/internal/config"
	"git.home.luguber.info/inful/docsite/internal/history"
	"git.home.luguber.info/inful/docsite/internal/linkcheck"
	"git.home.luguber.info/inful/docsite/internal/metrics"
	"git.home.luguber.info/inful/docsite/internal/plugin"
	"git.home.luguber.info/inful/docsite/internal/preview"
	"git.home.luguber.info/inful/docsite/internal/publish"
	"git.home.luguber.info/inful/docsite/internal/site"
	"git.home.luguber.info/inful/docsite/internal/validation"
	"git.home.luguber.info/inful/docsite/internal/watch"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"mkdocs.yml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Strict  bool   `help:"Treat warnings as errors"`
		Force   bool   `help:"Build even when nothing changed since the last build"`
		SiteDir string `help:"Output directory, overrides site_dir from the configuration"`
	} `cmd:"" help:"Build the documentation site"`

	Check struct{} `cmd:"" help:"Validate the configuration without building"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Serve struct {
		Addr    string        `help:"Listen address" default:"127.0.0.1:8000"`
		NoWatch bool          `help:"Disable rebuilding on file changes"`
		Rebuild time.Duration `help:"Periodic full rebuild interval, 0 disables"`
	} `cmd:"" help:"Serve the site locally and rebuild on changes"`

	Publish struct {
		Deploy struct {
			Version   string   `arg:"" help:"Version name to deploy"`
			Aliases   []string `arg:"" optional:"" help:"Aliases pointing at this version"`
			SkipBuild bool     `help:"Deploy the existing site directory without rebuilding"`
		} `cmd:"" help:"Build and deploy a site version"`
		SetDefault struct {
			Target string `arg:"" help:"Version or alias the site root redirects to"`
		} `cmd:"" name:"set-default" help:"Set the default version"`
		List   struct{} `cmd:"" help:"List deployed versions"`
		Delete struct {
			Versions []string `arg:"" help:"Versions to remove"`
		} `cmd:"" help:"Delete deployed versions"`
	} `cmd:"" help:"Manage versioned deployments"`

	History struct {
		Limit int `help:"Number of builds to show" default:"10"`
	} `cmd:"" help:"Show recent build history"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	var err error
	switch ctx.Command() {
	case "build":
		err = runBuild()
	case "check":
		err = runCheck()
	case "init":
		err = runInit()
	case "serve":
		err = runServe()
	case "publish deploy <version>", "publish deploy <version> <aliases>":
		err = runPublishDeploy()
	case "publish set-default <target>":
		err = runPublishSetDefault()
	case "publish list":
		err = runPublishList()
	case "publish delete <versions>":
		err = runPublishDelete()
	case "history":
		err = runHistory()
	default:
		err = fmt.Errorf("unknown command %q", ctx.Command())
	}
	if err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

// loadConfig loads and normalizes the configuration, returning it with
// the directory paths resolve against.
func loadConfig() (*config.Config, string, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, "", err
	}
	result, err := config.NormalizeConfig(cfg)
	if err != nil {
		return nil, "", err
	}
	for _, warning := range result.Warnings {
		slog.Warn("Configuration normalized", "detail", warning)
	}
	abs, err := filepath.Abs(CLI.Config)
	if err != nil {
		return nil, "", err
	}
	return cfg, filepath.Dir(abs), nil
}

// newPublisher connects the broken-link event publisher when events are
// enabled. The caller owns the connection and closes it when done.
func newPublisher(cfg *config.Config) *linkcheck.NATSPublisher {
	if cfg.Events == nil || !cfg.Events.Enabled {
		return nil
	}
	publisher, err := linkcheck.NewNATSPublisher(cfg.Events, "")
	if err != nil {
		slog.Warn("Link event publisher unavailable, continuing without events", "error", err)
		return nil
	}
	return publisher
}

func newBuilder(cfg *config.Config, root string, publisher *linkcheck.NATSPublisher) *site.Builder {
	builder := site.NewBuilder(cfg, root)
	if publisher != nil {
		builder = builder.WithPublisher(publisher)
	}
	return builder
}

func historyPath(cfg *config.Config, root string) string {
	if cfg.History != nil && cfg.History.Path != "" {
		if filepath.IsAbs(cfg.History.Path) {
			return cfg.History.Path
		}
		return filepath.Join(root, cfg.History.Path)
	}
	return filepath.Join(root, ".docsite", "history.db")
}

func runBuild() error {
	cfg, root, err := loadConfig()
	if err != nil {
		return err
	}
	if CLI.Build.Strict {
		cfg.Strict = true
	}
	if CLI.Build.SiteDir != "" {
		cfg.SiteDir = CLI.Build.SiteDir
	}

	store, err := history.Open(historyPath(cfg, root))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher := newPublisher(cfg)
	if publisher != nil {
		defer publisher.Close()
	}
	builder := newBuilder(cfg, root, publisher)
	docsHash, err := history.HashDocs(builder.DocsDir())
	if err != nil {
		return err
	}
	if !CLI.Build.Force {
		if skip, err := store.CanSkip(ctx, cfg.Hash(), docsHash); err != nil {
			slog.Warn("Build history unavailable", "error", err)
		} else if skip {
			slog.Info("Nothing changed since the last successful build, skipping",
				"config", CLI.Config)
			return nil
		}
	}

	report, buildErr := builder.Build(ctx)
	if appendErr := store.Append(ctx, history.Record{
		BuildID:    report.BuildID,
		Outcome:    string(report.Outcome),
		ConfigHash: report.ConfigHash,
		DocsHash:   docsHash,
		Pages:      report.Pages,
		Findings:   len(report.Findings),
		Start:      report.Start,
		End:        report.End,
	}); appendErr != nil {
		slog.Warn("Failed to record build history", "error", appendErr)
	}

	fmt.Println(report.Summary())
	return buildErr
}

func runCheck() error {
	cfg, root, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.VerifyRoundTrip(); err != nil {
		return err
	}

	plugins, _, err := plugin.Build(cfg)
	if err != nil {
		return err
	}
	docFiles, markdownFiles, err := site.ListDocFiles(filepath.Join(root, cfg.DocsDir), plugins)
	if err != nil {
		return err
	}

	vctx := &validation.Context{
		Config:        cfg,
		Policy:        validation.NewPolicy(cfg.Validation),
		DocFiles:      docFiles,
		MarkdownFiles: markdownFiles,
	}
	findings := validation.NewEvaluator(validation.ConfigRules()...).Run(vctx)
	findings.Log(slog.Default())

	// check treats warnings as blocking regardless of strict mode.
	if findings.Blocking(true) {
		return fmt.Errorf("configuration check failed with %d findings", len(findings))
	}
	fmt.Printf("Configuration OK: %d pages, %d findings\n", len(markdownFiles), len(findings))
	return nil
}

func runInit() error {
	if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", CLI.Config)
	return nil
}

func runServe() error {
	cfg, root, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One recorder and one event publisher for the whole serve session,
	// shared by the initial build and every rebuild.
	var registry *prom.Registry
	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		registry = prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(registry)
	}
	publisher := newPublisher(cfg)
	if publisher != nil {
		defer publisher.Close()
	}
	builder := newBuilder(cfg, root, publisher).WithRecorder(recorder)

	status := &preview.Status{}
	rebuild := func(reason string) {
		fresh, freshRoot, err := loadConfig()
		if err != nil {
			slog.Error("Configuration reload failed", "error", err)
			status.SetError(err)
			return
		}
		b := newBuilder(fresh, freshRoot, publisher).WithRecorder(recorder)
		if _, err := b.Build(ctx); err != nil {
			status.SetError(err)
			return
		}
		status.SetSuccess()
		slog.Info("Site rebuilt", "reason", reason)
	}

	if _, err := builder.Build(ctx); err != nil {
		slog.Error("Initial build failed, serving error page", "error", err)
		status.SetError(err)
	} else {
		status.SetSuccess()
	}

	server := preview.NewServer(builder.SiteDir(), status)
	if registry != nil {
		server = server.WithMetrics(registry)
	}
	if err := server.Start(CLI.Serve.Addr); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if !CLI.Serve.NoWatch {
		paths := []string{CLI.Config, builder.DocsDir()}
		for _, extra := range cfg.Watch {
			if filepath.IsAbs(extra) {
				paths = append(paths, extra)
			} else {
				paths = append(paths, filepath.Join(root, extra))
			}
		}
		watcher, err := watch.NewWatcher(paths, rebuild)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer watcher.Stop()
	}

	if CLI.Serve.Rebuild > 0 {
		scheduler, err := watch.NewScheduler()
		if err != nil {
			return err
		}
		if _, err := scheduler.SchedulePeriodicBuild(CLI.Serve.Rebuild, func() { rebuild("scheduled") }); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	fmt.Printf("Serving %s at http://%s\n", cfg.SiteName, server.Addr())
	<-ctx.Done()
	slog.Info("Shutting down")
	return nil
}

func runPublishDeploy() error {
	cfg, root, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher := newPublisher(cfg)
	if publisher != nil {
		defer publisher.Close()
	}
	builder := newBuilder(cfg, root, publisher)
	if !CLI.Publish.Deploy.SkipBuild {
		if _, err := builder.Build(ctx); err != nil {
			return err
		}
	}

	aliases := CLI.Publish.Deploy.Aliases
	if len(aliases) == 0 {
		if opts := plugin.MikeSettings(cfg); opts.CanonicalAlias != "" {
			aliases = []string{opts.CanonicalAlias}
		}
	}

	deployer := publish.New(cfg.Publish, root)
	if err := deployer.Deploy(ctx, builder.SiteDir(), CLI.Publish.Deploy.Version, aliases...); err != nil {
		return err
	}
	fmt.Printf("Deployed %s\n", CLI.Publish.Deploy.Version)
	return nil
}

func runPublishSetDefault() error {
	cfg, root, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return publish.New(cfg.Publish, root).SetDefault(ctx, CLI.Publish.SetDefault.Target)
}

func runPublishList() error {
	cfg, root, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	versions, err := publish.New(cfg.Publish, root).List(ctx)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Println("No versions deployed")
		return nil
	}
	for _, v := range versions {
		if len(v.Aliases) > 0 {
			fmt.Printf("%s (%s)\n", v.Version, strings.Join(v.Aliases, ", "))
		} else {
			fmt.Println(v.Version)
		}
	}
	return nil
}

func runPublishDelete() error {
	cfg, root, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return publish.New(cfg.Publish, root).Delete(ctx, CLI.Publish.Delete.Versions...)
}

func runHistory() error {
	cfg, root, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(historyPath(cfg, root))
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(context.Background(), CLI.History.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No builds recorded")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  %-8s  %3d pages  %3d findings  %s  %s\n",
			rec.Start.Format(time.RFC3339), rec.Outcome,
			rec.Pages, rec.Findings, rec.Duration().Round(time.Millisecond), rec.BuildID)
	}
	return nil
}
