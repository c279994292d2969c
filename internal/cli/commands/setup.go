package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapview/internal/cli/output"
	"github.com/leapstack-labs/leapview/internal/config"
	"github.com/leapstack-labs/leapview/internal/emit"
	"github.com/leapstack-labs/leapview/internal/exports"
	"github.com/leapstack-labs/leapview/internal/metrics"
	"github.com/leapstack-labs/leapview/internal/persist"
	"github.com/leapstack-labs/leapview/internal/session"
	"github.com/leapstack-labs/leapview/internal/state"
	"github.com/leapstack-labs/leapview/internal/workspace"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg       *config.Config
	Logger    *slog.Logger
	Workspace *workspace.Workspace
	Store     *state.Store
	Scheduler *persist.Scheduler
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
	Manager   *session.Manager
	Renderer  *output.Renderer
}

// NewCommandContext loads the workspace, opens the state store and builds
// the session manager. The cleanup function closes every open session and
// the store, and must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	ctx := cmd.Context()
	cfg := GetConfig(ctx)
	logger := GetLogger(ctx)

	ws, err := workspace.Load(cfg.ProjectRoot,
		workspace.WithPatterns(cfg.Workspace...),
		workspace.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load workspace: %w", err)
	}

	if cfg.StatePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store, err := state.Open(ctx, cfg.StatePath, state.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New()
	m.MustRegister(registry)

	sched := persist.NewScheduler(store,
		persist.WithDelay(cfg.Debounce()),
		persist.WithLogger(logger),
		persist.WithRecorder(m))

	analyzer := exports.New(
		exports.WithBaseURL(cfg.Exports.BaseURL),
		exports.WithTimeout(cfg.Exports.Timeout()),
		exports.WithConcurrency(cfg.Exports.Concurrency),
		exports.WithLogger(logger),
		exports.WithRecorder(m))

	mgr := session.NewManager(session.Config{
		Surface:   cfg.Surface,
		Workspace: ws,
		Store:     store,
		Emitter:   emit.New(emit.WithCheck(cfg.Check), emit.WithLogger(logger)),
		Analyzer:  analyzer,
		Scheduler: sched,
		Metrics:   m,
		Logger:    logger,
	})

	cc := &CommandContext{
		Cfg:       cfg,
		Logger:    logger,
		Workspace: ws,
		Store:     store,
		Scheduler: sched,
		Metrics:   m,
		Registry:  registry,
		Manager:   mgr,
		Renderer:  output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}

	cleanup := func() {
		closeCtx := context.WithoutCancel(ctx)
		err := mgr.CloseAll(closeCtx)
		if ferr := sched.FlushAll(closeCtx); ferr != nil {
			err = errors.Join(err, ferr)
		}
		sched.Close()
		if cerr := store.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		if err != nil {
			logger.Error("cleanup failed", "error", err)
		}
	}
	return cc, cleanup, nil
}

// NewRendererOnly creates a renderer for commands that need no workspace.
func NewRendererOnly(cmd *cobra.Command) *output.Renderer {
	cfg := GetConfig(cmd.Context())
	return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
}

// openSession resolves an interface by ID or lookup and opens its session.
func (cc *CommandContext) openSession(ctx context.Context, ref string) (*session.Session, error) {
	id, err := cc.Workspace.ResolveInterface(ref)
	if err != nil {
		return nil, err
	}
	return cc.Manager.Open(ctx, id)
}

// completeInterfaces completes interface IDs for positional arguments.
func completeInterfaces(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	cfg := GetConfig(cmd.Context())
	ws, err := workspace.Load(cfg.ProjectRoot, workspace.WithPatterns(cfg.Workspace...))
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	return ws.Interfaces(), cobra.ShellCompDirectiveNoFileComp
}
