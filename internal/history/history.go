// Package history persists build records in a SQLite database so
// repeated builds of unchanged inputs can be skipped and past outcomes
// queried from the command line.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docsite/internal/frontmatter"
)

// Record is one persisted build.
type Record struct {
	ID         int64
	BuildID    string
	Outcome    string
	ConfigHash string
	DocsHash   string
	Pages      int
	Findings   int
	Start      time.Time
	End        time.Time
}

// Duration returns the recorded wall-clock build time.
func (r Record) Duration() time.Duration { return r.End.Sub(r.Start) }

// Store is a SQLite-backed build history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens the history database. Use ":memory:" for an
// in-memory store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		config_hash TEXT NOT NULL,
		docs_hash TEXT NOT NULL,
		pages INTEGER NOT NULL,
		findings INTEGER NOT NULL,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started ON builds(started);
	CREATE INDEX IF NOT EXISTS idx_builds_hashes ON builds(config_hash, docs_hash);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Append records a finished build.
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (build_id, outcome, config_hash, docs_hash, pages, findings, started, finished)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.BuildID, rec.Outcome, rec.ConfigHash, rec.DocsHash,
		rec.Pages, rec.Findings, rec.Start.Unix(), rec.End.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert build record: %w", err)
	}
	return nil
}

// Recent returns the newest records, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, build_id, outcome, config_hash, docs_hash, pages, findings, started, finished
		 FROM builds ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var started, finished int64
		if err := rows.Scan(&rec.ID, &rec.BuildID, &rec.Outcome, &rec.ConfigHash,
			&rec.DocsHash, &rec.Pages, &rec.Findings, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan build record: %w", err)
		}
		rec.Start = time.Unix(started, 0)
		rec.End = time.Unix(finished, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CanSkip reports whether the most recent build succeeded with the
// same configuration and docs content.
func (s *Store) CanSkip(ctx context.Context, configHash, docsHash string) (bool, error) {
	if configHash == "" || docsHash == "" {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var outcome, cfgHash, dHash string
	err := s.db.QueryRowContext(ctx,
		`SELECT outcome, config_hash, docs_hash FROM builds ORDER BY id DESC LIMIT 1`,
	).Scan(&outcome, &cfgHash, &dHash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query last build: %w", err)
	}
	return outcome == "success" && cfgHash == configHash && dHash == docsHash, nil
}

// HashDocs digests every file under docsDir by relative path and
// content, so any rename, edit, addition, or removal changes the hash.
// Markdown files contribute their canonical fingerprint, so edits to
// bookkeeping frontmatter fields alone do not force a rebuild.
func HashDocs(docsDir string) (string, error) {
	var paths []string
	err := filepath.WalkDir(docsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != docsDir {
				return filepath.SkipDir
			}
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan docs for hashing: %w", err)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		rel, err := filepath.Rel(docsDir, p)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(h, "%s\n", filepath.ToSlash(rel))
		data, err := os.ReadFile(p) // #nosec G304 - path produced by WalkDir under docsDir
		if err != nil {
			return "", err
		}
		if fp, ok := markdownFingerprint(rel, data); ok {
			fmt.Fprintf(h, "%s\n", fp)
			continue
		}
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// markdownFingerprint returns the canonical fingerprint for markdown
// sources. Files that fail to parse fall back to raw content hashing.
func markdownFingerprint(rel string, data []byte) (string, bool) {
	if !strings.HasSuffix(rel, ".md") {
		return "", false
	}
	doc, err := frontmatter.Parse(data)
	if err != nil {
		return "", false
	}
	fp, err := frontmatter.Fingerprint(doc)
	if err != nil {
		return "", false
	}
	return fp, true
}
