// Package server exposes editor sessions over an HTTP API.
//
// Interfaces are addressed by ID or lookup. The first request for an
// interface opens its session; sessions stay open until the server stops or
// the client deletes them. Change events are streamed at /api/events.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapview/internal/server/notifier"
	"github.com/leapstack-labs/leapview/internal/session"
	"github.com/leapstack-labs/leapview/internal/workspace"
)

// DefaultPort is the port the server listens on when none is configured.
const DefaultPort = 8790

const watchDebounce = 100 * time.Millisecond

// Config holds configuration for the server.
type Config struct {
	Manager   *session.Manager
	Workspace *workspace.Workspace
	Notifier  *notifier.Notifier
	// Gatherer serves /metrics. When nil the endpoint is not mounted.
	Gatherer prometheus.Gatherer
	Port     int
	Watch    bool
	Logger   *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	manager   *session.Manager
	workspace *workspace.Workspace
	notifier  *notifier.Notifier
	gatherer  prometheus.Gatherer
	port      int
	watch     bool
	logger    *slog.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	s := &Server{
		manager:   cfg.Manager,
		workspace: cfg.Workspace,
		notifier:  cfg.Notifier,
		gatherer:  cfg.Gatherer,
		port:      cfg.Port,
		watch:     cfg.Watch,
		logger:    cfg.Logger,
	}
	if s.notifier == nil {
		s.notifier = notifier.New(8)
	}
	if s.port == 0 {
		s.port = DefaultPort
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Notifier returns the notifier that feeds /api/events.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		s.requestLogger,
		middleware.Recoverer,
	)
	s.routes(r)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.workspace != nil && s.workspace.Root() != "" {
		eg.Go(func() error {
			return s.watchFiles(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server")
		err := srv.Shutdown(shutdownCtx)
		if cerr := s.manager.CloseAll(shutdownCtx); cerr != nil {
			s.logger.Error("failed to close sessions", "error", cerr)
		}
		return err
	})

	return eg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// watchFiles reloads the workspace when one of its documents changes and
// recompiles every open session.
func (s *Server) watchFiles(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	root := s.workspace.Root()
	if err := watchDirRecursive(watcher, root); err != nil {
		s.logger.Error("failed to watch workspace", "error", err)
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchDirRecursive(watcher, event.Name)
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			rel, err := filepath.Rel(root, event.Name)
			if err != nil || !s.workspace.Matches(filepath.ToSlash(rel)) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				s.logger.Debug("workspace changed", "file", rel)
				s.reload(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// reload re-reads the workspace and recompiles open sessions. A workspace
// that fails to load keeps serving the previous state.
func (s *Server) reload(ctx context.Context) {
	if err := s.workspace.Reload(); err != nil {
		s.logger.Error("workspace reload failed", "error", err)
		return
	}
	if err := s.manager.RecompileAll(ctx); err != nil {
		s.logger.Error("recompile failed", "error", err)
	}
	s.notifier.Broadcast(notifier.Event{Kind: notifier.KindWorkspace})
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}
