// Package preview serves a built site over HTTP in serve mode, with a
// build status page shown while the working tree does not render.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsite/internal/metrics"
)

// Status tracks the latest build result for error display.
type Status struct {
	mu           sync.RWMutex
	lastError    error
	hasGoodBuild bool
}

// SetError records a failed rebuild.
func (s *Status) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
}

// SetSuccess records a successful rebuild.
func (s *Status) SetSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = nil
	s.hasGoodBuild = true
}

// Snapshot returns the last error and whether any build has succeeded.
func (s *Status) Snapshot() (error, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError, s.hasGoodBuild
}

// Server serves the site directory with the build status overlaid.
type Server struct {
	siteDir  string
	status   *Status
	registry *prom.Registry

	srv      *http.Server
	listener net.Listener
}

// NewServer creates a preview server over siteDir. status may be nil
// when no rebuild loop is attached.
func NewServer(siteDir string, status *Status) *Server {
	return &Server{siteDir: siteDir, status: status}
}

// WithMetrics exposes the registry on /metrics.
func (s *Server) WithMetrics(reg *prom.Registry) *Server {
	s.registry = reg
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		var lastErr error
		ok := true
		if s.status != nil {
			lastErr, _ = s.status.Snapshot()
			ok = lastErr == nil
		}
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":    ok,
			"error": errString(lastErr),
		})
	})
	if s.registry != nil {
		mux.Handle("/metrics", metrics.HTTPHandler(s.registry))
	}

	files := http.FileServer(http.Dir(s.siteDir))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if s.status != nil {
			if err, good := s.status.Snapshot(); err != nil && !good {
				s.writeErrorPage(w, err)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
	return mux
}

func (s *Server) writeErrorPage(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Build failed</title></head>
<body>
<h1>Build failed</h1>
<pre>%s</pre>
<p>Fix the error and save; the site rebuilds automatically.</p>
</body>
</html>
`, html.EscapeString(err.Error()))
}

// Start listens on addr and serves in the background. Use port 0 to
// pick a free port; Addr reports the bound address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.srv = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Preview server stopped", "error", err)
		}
	}()
	slog.Info("Preview server listening", "addr", s.Addr())
	return nil
}

// Addr returns the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
