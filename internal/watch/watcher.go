// Package watch triggers rebuilds in serve mode: a filesystem watcher
// with a quiet-window debounce over the config file and docs tree, and
// a scheduler for periodic full rebuilds.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Trigger is invoked after changes settle. reason names the path that
// caused the rebuild.
type Trigger func(reason string)

// Watcher coalesces filesystem events into rebuild triggers. Rapid
// save bursts produce a single trigger after the debounce window.
type Watcher struct {
	paths    []string
	trigger  Trigger
	debounce time.Duration

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

// NewWatcher watches the given files and directories. Directories are
// watched recursively.
func NewWatcher(paths []string, trigger Trigger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	return &Watcher{
		paths:    paths,
		trigger:  trigger,
		debounce: 500 * time.Millisecond,
		watcher:  fsw,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// SetDebounce overrides the quiet window.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Start registers the watch paths and begins the event loop.
func (w *Watcher) Start(ctx context.Context) error {
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve watch path %s: %w", p, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return fmt.Errorf("watch path %s: %w", p, err)
		}
		if info.IsDir() {
			if err := w.addRecursive(abs); err != nil {
				return err
			}
		} else {
			// Editors replace files, so watch the directory.
			if err := w.watcher.Add(filepath.Dir(abs)); err != nil {
				return fmt.Errorf("watch %s: %w", p, err)
			}
		}
	}
	slog.Info("Watching for changes", "paths", w.paths, "debounce", w.debounce)
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.loop(ctx)
	return nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if base := filepath.Base(p); p != root && len(base) > 1 && base[0] == '.' {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

// Stop shuts the watcher down and waits for the loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	started := w.started
	w.mu.Unlock()
	err := w.watcher.Close()
	if started {
		<-w.done
	}
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	var timer *time.Timer
	var timerC <-chan time.Time
	var reason string

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			// New directories join the watch set as they appear.
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}
			reason = event.Name
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			slog.Debug("Change settled, triggering rebuild", "reason", reason)
			w.trigger(reason)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("File watcher error", "error", err)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	// Editor swap files and hidden state are noise.
	if len(base) > 0 && base[0] == '.' {
		return false
	}
	if len(base) > 0 && base[len(base)-1] == '~' {
		return false
	}
	return true
}
