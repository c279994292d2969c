// Package exports analyzes the modules an interface page imports and lists
// their exported names for import autocompletion.
//
// Modules given as URLs are fetched as-is; bare specifiers are resolved
// against a CDN base URL. A failed analysis is reported on the entry itself
// and never affects other entries. Analyses are not retried.
package exports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapview/pkg/core"
)

// Defaults used when no option overrides them.
const (
	DefaultBaseURL     = "https://esm.sh/"
	DefaultTimeout     = 10 * time.Second
	DefaultConcurrency = 4

	maxModuleBytes = 4 << 20
	maxStarDepth   = 2
)

// ErrLocalModule is returned for relative or absolute-path imports, which
// cannot be fetched.
var ErrLocalModule = errors.New("local modules are not analyzed")

// Recorder observes finished analyses.
type Recorder interface {
	ObserveExport(status string)
}

// Analyzer fetches modules and extracts their exports.
type Analyzer struct {
	client      *http.Client
	baseURL     string
	concurrency int
	logger      *slog.Logger
	recorder    Recorder
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithBaseURL sets the CDN that bare specifiers resolve against.
func WithBaseURL(base string) Option {
	return func(a *Analyzer) {
		if base != "" {
			if !strings.HasSuffix(base, "/") {
				base += "/"
			}
			a.baseURL = base
		}
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Analyzer) {
		if c != nil {
			a.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.client = &http.Client{Timeout: d}
		}
	}
}

// WithConcurrency bounds how many modules are fetched at once.
func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRecorder reports finished analyses to r.
func WithRecorder(r Recorder) Option {
	return func(a *Analyzer) { a.recorder = r }
}

// New creates an analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		client:      &http.Client{Timeout: DefaultTimeout},
		baseURL:     DefaultBaseURL,
		concurrency: DefaultConcurrency,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ResolveURL returns the URL a module specifier is fetched from.
func (a *Analyzer) ResolveURL(module string) (string, error) {
	module = strings.TrimSpace(module)
	switch {
	case module == "":
		return "", errors.New("empty module specifier")
	case strings.HasPrefix(module, "http://"), strings.HasPrefix(module, "https://"):
		return module, nil
	case strings.HasPrefix(module, "."), strings.HasPrefix(module, "/"):
		return "", ErrLocalModule
	}
	return a.baseURL + strings.TrimPrefix(module, "npm:"), nil
}

// Analyze fetches a module and returns its exported names. `export * from`
// re-exports are followed a bounded number of levels.
func (a *Analyzer) Analyze(ctx context.Context, module string) ([]string, error) {
	u, err := a.ResolveURL(module)
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool)
	if err := a.collect(ctx, u, 0, names, map[string]bool{}); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	slices.Sort(out)
	return out, nil
}

func (a *Analyzer) collect(ctx context.Context, u string, depth int, names, seen map[string]bool) error {
	if seen[u] {
		return nil
	}
	seen[u] = true

	body, err := a.fetch(ctx, u)
	if err != nil {
		return err
	}
	ex, err := Extract(ctx, body)
	if err != nil {
		return err
	}
	for _, n := range ex.Names {
		// `export *` never forwards the default export.
		if depth > 0 && n == "default" {
			continue
		}
		names[n] = true
	}

	if depth >= maxStarDepth {
		return nil
	}
	base, err := url.Parse(u)
	if err != nil {
		return fmt.Errorf("invalid module url %q: %w", u, err)
	}
	for _, spec := range ex.StarFrom {
		ref, err := url.Parse(spec)
		if err != nil {
			a.logger.Debug("skipping re-export", "module", u, "from", spec, "error", err)
			continue
		}
		next := base.ResolveReference(ref).String()
		if err := a.collect(ctx, next, depth+1, names, seen); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/javascript, text/javascript, */*")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %d", u, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxModuleBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", u, err)
	}
	return body, nil
}

// AnalyzeAll analyzes every entry concurrently and returns updated copies in
// the same order. Each entry ends up ready or in error.
func (a *Analyzer) AnalyzeAll(ctx context.Context, entries []core.ImportEntry) []core.ImportEntry {
	out := make([]core.ImportEntry, len(entries))
	for i, e := range entries {
		out[i] = a.pending(e)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range out {
		g.Go(func() error {
			out[i] = a.AnalyzeEntry(gctx, out[i])
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// AnalyzeEntry analyzes one entry and returns it with its status set.
func (a *Analyzer) AnalyzeEntry(ctx context.Context, e core.ImportEntry) core.ImportEntry {
	e = a.pending(e)
	names, err := a.Analyze(ctx, e.Module)
	if err != nil {
		e.Status = core.ImportError
		e.Error = err.Error()
		a.logger.Debug("export analysis failed", "module", e.Module, "error", err)
	} else {
		e.Status = core.ImportReady
		e.Exports = names
	}
	if a.recorder != nil {
		a.recorder.ObserveExport(e.Status)
	}
	return e
}

func (a *Analyzer) pending(e core.ImportEntry) core.ImportEntry {
	e.Status = core.ImportPending
	e.Error = ""
	e.Exports = nil
	e.Names = slices.Clone(e.Names)
	return e
}

// Tracker hands out generations per key so that a later analysis supersedes
// one still in flight. It is safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	gens map[string]uint64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{gens: make(map[string]uint64)}
}

// Begin starts a new generation for key and returns it.
func (t *Tracker) Begin(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gens[key]++
	return t.gens[key]
}

// Current reports whether gen is still the latest generation for key.
func (t *Tracker) Current(key string, gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gens[key] == gen
}
