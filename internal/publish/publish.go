// Package publish deploys built sites onto a git branch, one directory
// per version, with alias redirects and a versions.json manifest for
// the theme's version selector.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/docsite/internal/config"
)

const versionsFile = "versions.json"

// Version is one entry in the versions manifest, newest first.
type Version struct {
	Version string   `json:"version"`
	Title   string   `json:"title"`
	Aliases []string `json:"aliases"`
}

// Publisher commits site snapshots to the publish branch of the
// project repository and pushes them to the configured remote.
type Publisher struct {
	repoPath string
	branch   string
	remote   string
	logger   *slog.Logger

	// now is replaceable for deterministic commits in tests.
	now func() time.Time
}

// New creates a publisher for the repository at repoPath.
func New(cfg *config.PublishConfig, repoPath string) *Publisher {
	branch := config.DefaultPublishBranch
	remote := config.DefaultPublishRemote
	if cfg != nil {
		if cfg.Branch != "" {
			branch = cfg.Branch
		}
		if cfg.Remote != "" {
			remote = cfg.Remote
		}
	}
	return &Publisher{
		repoPath: repoPath,
		branch:   branch,
		remote:   remote,
		logger:   slog.Default(),
		now:      time.Now,
	}
}

// checkout clones the publish branch into a scratch directory. When
// the branch does not exist yet it is created from the default branch
// with an emptied tree.
func (p *Publisher) checkout(ctx context.Context) (string, *git.Repository, error) {
	dir, err := os.MkdirTemp("", "docsite-publish-*")
	if err != nil {
		return "", nil, fmt.Errorf("create scratch directory: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(p.branch)
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           p.repoPath,
		ReferenceName: ref,
		SingleBranch:  true,
	})
	if err == nil {
		return dir, repo, nil
	}

	// First deployment: the publish branch does not exist yet.
	p.logger.Debug("Publish branch missing, creating it", "branch", p.branch, "error", err)
	_ = os.RemoveAll(dir)
	if dir, err = os.MkdirTemp("", "docsite-publish-*"); err != nil {
		return "", nil, fmt.Errorf("create scratch directory: %w", err)
	}
	repo, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{URL: p.repoPath})
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, fmt.Errorf("clone %s: %w", p.repoPath, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: ref, Create: true}); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, fmt.Errorf("create branch %s: %w", p.branch, err)
	}
	if err := clearWorktree(dir); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}
	return dir, repo, nil
}

// Deploy copies the built site into the version's directory on the
// publish branch, points the aliases at it, updates the manifest, and
// pushes.
func (p *Publisher) Deploy(ctx context.Context, siteDir, version string, aliases ...string) error {
	if err := validName(version); err != nil {
		return err
	}
	for _, a := range aliases {
		if err := validName(a); err != nil {
			return err
		}
	}

	dir, repo, err := p.checkout(ctx)
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	target := filepath.Join(dir, version)
	if err := os.RemoveAll(target); err != nil {
		return err
	}
	if err := copyTree(siteDir, target); err != nil {
		return fmt.Errorf("copy site into %s: %w", version, err)
	}
	for _, alias := range aliases {
		if err := writeAliasRedirect(dir, alias, version); err != nil {
			return err
		}
	}

	versions, err := readVersions(dir)
	if err != nil {
		return err
	}
	versions = upsertVersion(versions, version, aliases)
	if err := writeVersions(dir, versions); err != nil {
		return err
	}

	msg := fmt.Sprintf("Deployed %s to %s", version, p.branch)
	if len(aliases) > 0 {
		msg = fmt.Sprintf("Deployed %s (%s) to %s", version, strings.Join(aliases, ", "), p.branch)
	}
	if err := p.commitAndPush(ctx, repo, msg); err != nil {
		return err
	}
	p.logger.Info("Deployed site version", "version", version, "aliases", aliases, "branch", p.branch)
	return nil
}

// SetDefault makes the root of the published site redirect to the
// given version or alias.
func (p *Publisher) SetDefault(ctx context.Context, target string) error {
	if err := validName(target); err != nil {
		return err
	}
	dir, repo, err := p.checkout(ctx)
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "index.html"), redirectHTML(target), 0o644); err != nil {
		return err
	}
	return p.commitAndPush(ctx, repo, fmt.Sprintf("Set default version to %s", target))
}

// List returns the deployed versions, newest first.
func (p *Publisher) List(ctx context.Context) ([]Version, error) {
	dir, _, err := p.checkout(ctx)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	return readVersions(dir)
}

// Delete removes versions and any aliases pointing at them.
func (p *Publisher) Delete(ctx context.Context, versions ...string) error {
	dir, repo, err := p.checkout(ctx)
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	manifest, err := readVersions(dir)
	if err != nil {
		return err
	}
	for _, v := range versions {
		idx := slices.IndexFunc(manifest, func(entry Version) bool { return entry.Version == v })
		if idx < 0 {
			return fmt.Errorf("version %q is not deployed", v)
		}
		for _, alias := range manifest[idx].Aliases {
			if err := os.RemoveAll(filepath.Join(dir, alias)); err != nil {
				return err
			}
		}
		if err := os.RemoveAll(filepath.Join(dir, v)); err != nil {
			return err
		}
		manifest = slices.Delete(manifest, idx, idx+1)
	}
	if err := writeVersions(dir, manifest); err != nil {
		return err
	}
	return p.commitAndPush(ctx, repo, fmt.Sprintf("Removed %s", strings.Join(versions, ", ")))
}

func (p *Publisher) commitAndPush(ctx context.Context, repo *git.Repository, msg string) error {
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}
	_, err = wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "docsite", Email: "docsite@localhost", When: p.now()},
	})
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	spec := gitcfg.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", p.branch, p.branch))
	err = repo.PushContext(ctx, &git.PushOptions{RemoteName: git.DefaultRemoteName, RefSpecs: []gitcfg.RefSpec{spec}})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("push %s: %w", p.branch, err)
	}
	return p.pushUpstream(ctx, spec)
}

// pushUpstream forwards the publish branch from the project repository
// to its configured remote. A repository without that remote publishes
// locally only.
func (p *Publisher) pushUpstream(ctx context.Context, spec gitcfg.RefSpec) error {
	project, err := git.PlainOpen(p.repoPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.repoPath, err)
	}
	if _, err := project.Remote(p.remote); err == git.ErrRemoteNotFound {
		p.logger.Debug("Publish remote not configured, branch kept local", "remote", p.remote)
		return nil
	} else if err != nil {
		return err
	}
	err = project.PushContext(ctx, &git.PushOptions{RemoteName: p.remote, RefSpecs: []gitcfg.RefSpec{spec}})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("push %s to %s: %w", p.branch, p.remote, err)
	}
	return nil
}

// validName rejects version and alias names that would escape the
// branch root or collide with the manifest.
func validName(name string) error {
	switch {
	case name == "", name == ".", name == "..", name == versionsFile:
		return fmt.Errorf("invalid version name %q", name)
	case strings.ContainsAny(name, "/\\"):
		return fmt.Errorf("invalid version name %q: must not contain path separators", name)
	}
	return nil
}

func upsertVersion(versions []Version, version string, aliases []string) []Version {
	// An alias moves to the newly deployed version.
	for i := range versions {
		versions[i].Aliases = slices.DeleteFunc(versions[i].Aliases, func(a string) bool {
			return slices.Contains(aliases, a)
		})
	}
	idx := slices.IndexFunc(versions, func(v Version) bool { return v.Version == version })
	if idx >= 0 {
		versions[idx].Aliases = aliases
		return versions
	}
	return append([]Version{{Version: version, Title: version, Aliases: aliases}}, versions...)
}

func readVersions(dir string) ([]Version, error) {
	data, err := os.ReadFile(filepath.Join(dir, versionsFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var versions []Version
	if err := json.Unmarshal(data, &versions); err != nil {
		return nil, fmt.Errorf("parse %s: %w", versionsFile, err)
	}
	return versions, nil
}

func writeVersions(dir string, versions []Version) error {
	if versions == nil {
		versions = []Version{}
	}
	data, err := json.MarshalIndent(versions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, versionsFile), data, 0o644)
}

func writeAliasRedirect(dir, alias, version string) error {
	aliasDir := filepath.Join(dir, alias)
	if err := os.RemoveAll(aliasDir); err != nil {
		return err
	}
	if err := os.MkdirAll(aliasDir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(aliasDir, "index.html"), redirectHTML("../"+version), 0o644)
}

func redirectHTML(target string) []byte {
	esc := html.EscapeString(target)
	return []byte(fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="0; url=%s/">
<link rel="canonical" href="%s/">
</head>
<body>Redirecting to <a href="%s/">%s</a>...</body>
</html>
`, esc, esc, esc, esc))
}

func clearWorktree(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(out, 0o755)
		}
		data, err := os.ReadFile(p) // #nosec G304 - path produced by WalkDir under src
		if err != nil {
			return err
		}
		return os.WriteFile(out, data, 0o644)
	})
}
