// Package session holds the editing context of one open interface.
//
// A session owns the interface draft and runs the compile pipeline over it:
// slice reconciliation, action surface resolution, handler plan
// reconciliation and artifact emission, in that order. Every edit goes
// through the session and triggers a full pass. Sessions are opened and
// closed explicitly; closing flushes the pending details write.
package session

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapview/internal/dag"
	"github.com/leapstack-labs/leapview/internal/emit"
	"github.com/leapstack-labs/leapview/internal/exports"
	"github.com/leapstack-labs/leapview/internal/historic"
	"github.com/leapstack-labs/leapview/internal/metrics"
	"github.com/leapstack-labs/leapview/internal/persist"
	"github.com/leapstack-labs/leapview/internal/plan"
	"github.com/leapstack-labs/leapview/internal/reconcile"
	"github.com/leapstack-labs/leapview/internal/state"
	"github.com/leapstack-labs/leapview/internal/surface"
	"github.com/leapstack-labs/leapview/internal/validate"
	"github.com/leapstack-labs/leapview/pkg/core"
)

// DefaultSurface is the settings surface used when none is configured.
const DefaultSurface = "web"

// Session errors.
var (
	ErrClosed        = errors.New("session closed")
	ErrUnknownSlice  = errors.New("unknown slice")
	ErrUnknownAction = errors.New("unknown action")
	ErrInvalidEdit   = errors.New("invalid edit")
)

// Workspace is the read side of the workspace a session compiles against.
type Workspace interface {
	core.GraphQuerier
	core.UpstreamResolver
	core.SettingsStore
	Interface(id string) (*core.InterfaceNode, error)
	Graph() *dag.Graph
}

// Store persists what a session produces. Details, including the generated
// values of the authored blocks, reach it through the persistence scheduler;
// settings and plans are written directly when they change.
type Store interface {
	core.SettingsStore
	core.DetailsSink
	SaveSettings(ctx context.Context, surface, interfaceID string, settings *core.InterfaceSettings) error
	GetDetails(ctx context.Context, interfaceID string) (core.Details, error)
	GetPlan(ctx context.Context, interfaceID string) ([]core.HandlerPlanStep, error)
	SavePlan(ctx context.Context, interfaceID string, steps []core.HandlerPlanStep) error
}

// Config wires a session to its collaborators. Workspace and Store are
// required.
type Config struct {
	Surface   string
	Workspace Workspace
	Store     Store
	Emitter   *emit.Emitter
	Analyzer  *exports.Analyzer
	// Scheduler is shared between sessions. When nil each session creates
	// and closes its own.
	Scheduler *persist.Scheduler
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	// OnChange is called after a compile pass that changed what Snapshot
	// returns, outside the session lock.
	OnChange func(interfaceID string)
}

func (c Config) withDefaults() Config {
	if c.Surface == "" {
		c.Surface = DefaultSurface
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Emitter == nil {
		c.Emitter = emit.New(emit.WithLogger(c.Logger))
	}
	return c
}

// View is a read-only copy of the session state after the last pass.
type View struct {
	SessionID   string                  `json:"session_id"`
	Interface   *core.InterfaceNode     `json:"interface"`
	Settings    *core.InterfaceSettings `json:"settings"`
	Slices      core.SliceMap           `json:"slices"`
	Unresolved  []string                `json:"unresolved,omitempty"`
	Detached    []string                `json:"detached,omitempty"`
	Files       []emit.Artifact         `json:"files"`
	Entry       emit.RegistryEntry      `json:"entry"`
	Diagnostics []core.Diagnostic       `json:"diagnostics,omitempty"`
	Validation  core.ValidationResult   `json:"validation"`
}

// Session is one open interface.
type Session struct {
	id          string
	interfaceID string
	cfg         Config
	logger      *slog.Logger
	reconciler  *reconcile.Reconciler
	scheduler   *persist.Scheduler
	ownSched    bool
	tracker     *exports.Tracker

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	node       *core.InterfaceNode
	settings   *core.InterfaceSettings
	slices     core.SliceMap
	unresolved []string
	detached   []string
	output     *emit.Output
	validation core.ValidationResult

	savedSettings []byte
	savedPlan     []core.HandlerPlanStep
	lastSum       [sha256.Size]byte
}

// Open loads an interface and its stored state and runs the first pass.
func Open(ctx context.Context, cfg Config, interfaceID string) (*Session, error) {
	cfg = cfg.withDefaults()
	if cfg.Workspace == nil || cfg.Store == nil {
		return nil, errors.New("session: workspace and store are required")
	}

	node, err := cfg.Workspace.Interface(interfaceID)
	if err != nil {
		return nil, err
	}

	details, err := cfg.Store.GetDetails(ctx, interfaceID)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("failed to load details: %w", err)
	}
	steps, err := cfg.Store.GetPlan(ctx, interfaceID)
	if err != nil && !errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("failed to load handler plan: %w", err)
	}
	settings, fromStore, err := loadSettings(cfg, interfaceID)
	if err != nil {
		return nil, err
	}

	node.Details = details
	node.Plan = steps
	node.Handler = core.Fragment{Value: details.PageHandler, Generated: details.HandlerGenerated}
	node.Page = core.Fragment{Value: details.Page, Generated: details.PageGenerated}

	s := &Session{
		id:          uuid.NewString(),
		interfaceID: interfaceID,
		cfg:         cfg,
		logger:      cfg.Logger.With("interface", interfaceID),
		reconciler:  reconcile.New(cfg.Workspace, cfg.Logger),
		scheduler:   cfg.Scheduler,
		tracker:     exports.NewTracker(),
		node:        node,
		settings:    settings,
		savedPlan:   slices.Clone(steps),
	}
	if s.scheduler == nil {
		s.scheduler = persist.NewScheduler(cfg.Store, persist.WithLogger(cfg.Logger), persist.WithRecorder(cfg.Metrics))
		s.ownSched = true
	}
	if fromStore {
		s.savedSettings, _ = json.Marshal(settings)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.scheduler.Track(interfaceID, details)

	s.mu.Lock()
	_, err = s.compile(ctx)
	s.mu.Unlock()
	if err != nil {
		s.shutdown()
		return nil, err
	}
	cfg.Metrics.SessionOpened()
	s.logger.Debug("session opened", "session", s.id)
	s.notify()
	return s, nil
}

// loadSettings prefers the store and falls back to settings declared in the
// workspace.
func loadSettings(cfg Config, interfaceID string) (settings *core.InterfaceSettings, fromStore bool, err error) {
	stored, err := cfg.Store.GetSettings(cfg.Surface, interfaceID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load settings: %w", err)
	}
	if stored != nil {
		return stored, true, nil
	}
	declared, err := cfg.Workspace.GetSettings(cfg.Surface, interfaceID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load workspace settings: %w", err)
	}
	return declared, false, nil
}

// ID returns the session ID.
func (s *Session) ID() string { return s.id }

// InterfaceID returns the ID of the interface being edited.
func (s *Session) InterfaceID() string { return s.interfaceID }

// Recompile runs a full pass, for example after the workspace changed. The
// declared parts of the interface are re-read from the workspace first.
func (s *Session) Recompile(ctx context.Context) error {
	fresh, err := s.cfg.Workspace.Interface(s.interfaceID)
	if err != nil {
		return err
	}
	return s.edit(ctx, func() error {
		s.node.Name = fresh.Name
		s.node.Lookup = fresh.Lookup
		s.node.WebPath = fresh.WebPath
		s.node.PageData = fresh.PageData
		s.node.Guidance = fresh.Guidance
		return nil
	})
}

// edit applies fn to the draft under the lock and recompiles. Observers are
// notified only when the pass changed something.
func (s *Session) edit(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	changed, err := s.compile(ctx)
	s.mu.Unlock()
	if err == nil && changed {
		s.notify()
	}
	return err
}

func (s *Session) notify() {
	if s.cfg.OnChange != nil {
		s.cfg.OnChange(s.interfaceID)
	}
}

// compile runs the pipeline and reports whether its result differs from the
// previous pass. Each stage reads only the output of the stage before it.
// Must be called with s.mu held.
func (s *Session) compile(ctx context.Context) (bool, error) {
	start := time.Now()

	res := s.reconciler.Reconcile(s.interfaceID, s.cfg.Workspace.GetEdgesInto(s.interfaceID), s.settings)
	s.settings = res.Settings
	s.slices = res.Slices
	s.unresolved = res.Unresolved
	s.detached = res.Detached

	s.node.Plan = plan.Reconcile(s.node.Plan, plan.BuildBase(s.slices))

	out, err := s.cfg.Emitter.Emit(emit.Input{
		Node:     s.node,
		Settings: s.settings,
		Slices:   s.slices,
		Plan:     s.node.Plan,
	})
	if err != nil {
		s.cfg.Metrics.ObserveCompile(time.Since(start), err)
		return false, fmt.Errorf("failed to emit %s: %w", s.interfaceID, err)
	}
	s.output = out
	s.node.Handler = out.Handler
	s.node.Page = out.Page
	s.node.Details.PageDataType = out.PageDataType
	s.node.Details.PageHandler = out.Handler.Value
	s.node.Details.Page = out.Page.Value
	s.node.Details.HandlerGenerated = out.Handler.Generated
	s.node.Details.PageGenerated = out.Page.Generated

	s.validation = validate.Validate(validate.Draft{Node: s.node, Slices: s.slices})

	changed := true
	if sum, err := s.passSum(); err == nil {
		changed = sum != s.lastSum
		s.lastSum = sum
	}

	if err := s.save(ctx); err != nil {
		// Pipeline results stand; the next pass retries the write.
		s.logger.Warn("failed to save interface state", "error", err)
	}
	s.scheduler.Schedule(s.interfaceID, persist.Snapshot(s.node.Details.Imports, out.PageDataType, out.Handler, out.Page))

	s.cfg.Metrics.ObserveCompile(time.Since(start), nil)
	s.cfg.Metrics.AddFiles(len(out.Files))
	for _, d := range out.Diagnostics {
		s.cfg.Metrics.ObserveDiagnostic(d.Severity.String())
	}
	s.logger.Debug("compiled interface",
		"slices", len(s.slices),
		"steps", len(s.node.Plan),
		"unresolved", len(s.unresolved),
		"valid", s.validation.Valid,
		"changed", changed,
		"duration", time.Since(start))
	return changed, nil
}

// passSum fingerprints the state a Snapshot exposes.
func (s *Session) passSum() ([sha256.Size]byte, error) {
	data, err := json.Marshal(struct {
		Node        *core.InterfaceNode
		Settings    *core.InterfaceSettings
		Slices      core.SliceMap
		Unresolved  []string
		Detached    []string
		Files       []emit.Artifact
		Entry       emit.RegistryEntry
		Diagnostics []core.Diagnostic
		Validation  core.ValidationResult
	}{s.node, s.settings, s.slices, s.unresolved, s.detached, s.output.Files, s.output.Entry, s.output.Diagnostics, s.validation})
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// save writes settings and plan when they changed since they were last
// saved. Details go through the scheduler.
func (s *Session) save(ctx context.Context) error {
	var errs []error

	if data, err := json.Marshal(s.settings); err != nil {
		errs = append(errs, fmt.Errorf("failed to encode settings: %w", err))
	} else if !bytes.Equal(data, s.savedSettings) {
		if err := s.cfg.Store.SaveSettings(ctx, s.cfg.Surface, s.interfaceID, s.settings); err != nil {
			errs = append(errs, err)
		} else {
			s.savedSettings = data
		}
	}

	if !plan.Equal(s.savedPlan, s.node.Plan) {
		if err := s.cfg.Store.SavePlan(ctx, s.interfaceID, s.node.Plan); err != nil {
			errs = append(errs, err)
		} else {
			s.savedPlan = slices.Clone(s.node.Plan)
		}
	}

	return errors.Join(errs...)
}

// --- Slice edits ---

// sliceEdit applies fn to a copy of the slice with key and stores the copy
// as the prior value of the next pass.
func (s *Session) sliceEdit(ctx context.Context, key string, fn func(sl *core.GeneratedDataSlice) (*core.GeneratedDataSlice, error)) error {
	return s.edit(ctx, func() error {
		cur, ok := s.slices[key]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSlice, key)
		}
		next, err := fn(cur.Clone())
		if err != nil {
			return err
		}
		if s.settings == nil {
			s.settings = &core.InterfaceSettings{}
		}
		if s.settings.Slices == nil {
			s.settings.Slices = make(core.SliceMap)
		}
		s.settings.Slices[key] = next
		return nil
	})
}

func (s *Session) actionEdit(ctx context.Context, sliceKey, actionKey string, fn func(sl *core.GeneratedDataSlice, a *core.Action) error) error {
	return s.sliceEdit(ctx, sliceKey, func(sl *core.GeneratedDataSlice) (*core.GeneratedDataSlice, error) {
		a, ok := sl.Action(actionKey)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAction, sliceKey, actionKey)
		}
		if err := fn(sl, a); err != nil {
			return nil, err
		}
		return sl, nil
	})
}

// SetAccessMode changes a slice's access mode. Action modes and hydration
// that the new mode excludes are downgraded in the same pass.
func (s *Session) SetAccessMode(ctx context.Context, sliceKey string, access core.AccessMode) error {
	if !access.Valid() {
		return fmt.Errorf("%w: access mode %q", ErrInvalidEdit, access)
	}
	return s.sliceEdit(ctx, sliceKey, func(sl *core.GeneratedDataSlice) (*core.GeneratedDataSlice, error) {
		return surface.SetAccessMode(sl, access), nil
	})
}

// SetHydration replaces a slice's hydration, clamped to its access mode.
func (s *Session) SetHydration(ctx context.Context, sliceKey string, h core.Hydration) error {
	return s.sliceEdit(ctx, sliceKey, func(sl *core.GeneratedDataSlice) (*core.GeneratedDataSlice, error) {
		sl.Hydration = surface.ClampHydration(h, sl.AccessMode)
		return sl, nil
	})
}

// SetDataConnection replaces the data connection features of a slice after
// normalizing them.
func (s *Session) SetDataConnection(ctx context.Context, sliceKey string, f *core.DataConnectionFeatures) error {
	return s.sliceEdit(ctx, sliceKey, func(sl *core.GeneratedDataSlice) (*core.GeneratedDataSlice, error) {
		if sl.Kind() != core.KindDataConnection {
			return nil, fmt.Errorf("%w: slice %s is not backed by a data connection", ErrInvalidEdit, sliceKey)
		}
		sl.DataConnection = historic.Normalize(f)
		return sl, nil
	})
}

// ToggleSurface flips one surface of an action and returns the new mode.
func (s *Session) ToggleSurface(ctx context.Context, sliceKey, actionKey string, sf core.Surface) (core.InvocationMode, error) {
	var mode core.InvocationMode
	err := s.actionEdit(ctx, sliceKey, actionKey, func(sl *core.GeneratedDataSlice, a *core.Action) error {
		m, err := surface.Toggle(a, sl.AccessMode, sf)
		mode = m
		return err
	})
	return mode, err
}

// SetActionEnabled disables an action or re-enables it with its best
// available mode.
func (s *Session) SetActionEnabled(ctx context.Context, sliceKey, actionKey string, enabled bool) (core.InvocationMode, error) {
	var mode core.InvocationMode
	err := s.actionEdit(ctx, sliceKey, actionKey, func(sl *core.GeneratedDataSlice, a *core.Action) error {
		mode = surface.SetEnabled(a, sl.AccessMode, enabled)
		return nil
	})
	return mode, err
}

// SetActionMode requests a mode for an action. The stored mode is the
// request narrowed to what the action can use.
func (s *Session) SetActionMode(ctx context.Context, sliceKey, actionKey string, requested core.InvocationMode) (core.InvocationMode, error) {
	if !requested.Valid() {
		return core.ModeDisabled, fmt.Errorf("%w: invocation mode %q", ErrInvalidEdit, requested)
	}
	var mode core.InvocationMode
	err := s.actionEdit(ctx, sliceKey, actionKey, func(sl *core.GeneratedDataSlice, a *core.Action) error {
		mode = surface.SetMode(a, sl.AccessMode, requested)
		return nil
	})
	return mode, err
}

// SetLookups replaces the stored lookups of one kind. Lookups derived from
// graph edges come back on the next pass; this is how detached lookups are
// removed.
func (s *Session) SetLookups(ctx context.Context, kind core.CapabilityKind, lookups []string) error {
	if !slices.Contains(core.CapabilityKinds, kind) {
		return fmt.Errorf("%w: capability kind %q", ErrInvalidEdit, kind)
	}
	return s.edit(ctx, func() error {
		if s.settings == nil {
			s.settings = &core.InterfaceSettings{}
		}
		s.settings.SetLookups(kind, reconcile.MergeLookups(nil, lookups))
		return nil
	})
}

// --- Plan edits ---

// EditStep changes the editable fields of one handler plan step.
func (s *Session) EditStep(ctx context.Context, stepID string, e plan.StepEdit) error {
	return s.edit(ctx, func() error {
		steps, err := plan.Edit(s.node.Plan, stepID, e)
		if err != nil {
			return err
		}
		s.node.Plan = steps
		return nil
	})
}

// MoveStep moves a handler plan step to a new position.
func (s *Session) MoveStep(ctx context.Context, stepID string, to int) error {
	return s.edit(ctx, func() error {
		steps, err := plan.Move(s.node.Plan, stepID, to)
		if err != nil {
			return err
		}
		s.node.Plan = steps
		return nil
	})
}

// --- Authored fragments ---

// SetHandler stores the user's handler body. Any value other than the last
// generated one takes the handler over from the generator.
func (s *Session) SetHandler(ctx context.Context, value string) error {
	return s.edit(ctx, func() error {
		s.node.Handler.Value = value
		return nil
	})
}

// SetPage stores the user's page body.
func (s *Session) SetPage(ctx context.Context, value string) error {
	return s.edit(ctx, func() error {
		s.node.Page.Value = value
		return nil
	})
}

// ResetHandler hands the handler back to the generator.
func (s *Session) ResetHandler(ctx context.Context) error {
	return s.edit(ctx, func() error {
		s.node.Handler = emit.Reset()
		return nil
	})
}

// ResetPage hands the page back to the generator.
func (s *Session) ResetPage(ctx context.Context) error {
	return s.edit(ctx, func() error {
		s.node.Page = emit.Reset()
		return nil
	})
}

// --- Imports ---

// SetImports replaces the page imports and starts export analysis for every
// entry whose module is new or changed. Analysis results arrive
// asynchronously; a later SetImports supersedes analyses still in flight.
func (s *Session) SetImports(ctx context.Context, entries []core.ImportEntry) error {
	var queued []core.ImportEntry
	err := s.edit(ctx, func() error {
		prev := make(map[string]core.ImportEntry, len(s.node.Details.Imports))
		for _, e := range s.node.Details.Imports {
			prev[e.Module] = e
		}
		next := make([]core.ImportEntry, len(entries))
		for i, e := range entries {
			e.Names = slices.Clone(e.Names)
			if old, ok := prev[e.Module]; ok && old.Status != core.ImportPending {
				e.Status, e.Error, e.Exports = old.Status, old.Error, old.Exports
			} else if s.cfg.Analyzer != nil {
				e.Status, e.Error, e.Exports = core.ImportPending, "", nil
				queued = append(queued, e)
			}
			next[i] = e
		}
		s.node.Details.Imports = next
		return nil
	})
	if err != nil {
		return err
	}
	for _, e := range queued {
		s.analyze(e)
	}
	return nil
}

// Reanalyze discards the analysis of one module and runs it again.
func (s *Session) Reanalyze(module string) error {
	if s.cfg.Analyzer == nil {
		return errors.New("export analysis is disabled")
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	var entry *core.ImportEntry
	for i := range s.node.Details.Imports {
		if s.node.Details.Imports[i].Module == module {
			entry = &s.node.Details.Imports[i]
			break
		}
	}
	if entry == nil {
		s.mu.Unlock()
		return fmt.Errorf("no import of %q", module)
	}
	entry.Status, entry.Error, entry.Exports = core.ImportPending, "", nil
	e := *entry
	s.mu.Unlock()

	s.analyze(e)
	return nil
}

func (s *Session) analyze(e core.ImportEntry) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	gen := s.tracker.Begin(e.Module)
	go func() {
		defer s.wg.Done()
		done := s.cfg.Analyzer.AnalyzeEntry(s.ctx, e)
		if !s.tracker.Current(e.Module, gen) {
			return
		}
		err := s.edit(s.ctx, func() error {
			for i := range s.node.Details.Imports {
				imp := &s.node.Details.Imports[i]
				if imp.Module == e.Module {
					imp.Status, imp.Error, imp.Exports = done.Status, done.Error, done.Exports
				}
			}
			return nil
		})
		if err != nil && !errors.Is(err, ErrClosed) {
			s.logger.Warn("failed to apply export analysis", "module", e.Module, "error", err)
		}
	}()
}

// Wait blocks until every export analysis in flight has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// --- Read side ---

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		SessionID:  s.id,
		Interface:  cloneNode(s.node),
		Settings:   s.settings.Clone(),
		Slices:     s.slices.Clone(),
		Unresolved: slices.Clone(s.unresolved),
		Detached:   slices.Clone(s.detached),
		Validation: s.validation,
	}
	if s.output != nil {
		v.Files = slices.Clone(s.output.Files)
		v.Entry = s.output.Entry
		v.Diagnostics = slices.Clone(s.output.Diagnostics)
	}
	return v
}

// Validation returns the result of the last pass's validation.
func (s *Session) Validation() core.ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validation
}

// --- Lifecycle ---

// Flush writes the pending details patch now.
func (s *Session) Flush(ctx context.Context) error {
	return s.scheduler.Flush(ctx, s.interfaceID)
}

// Close stops export analysis, flushes the pending details write and
// releases the session. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	err := s.scheduler.Flush(ctx, s.interfaceID)
	s.shutdown()
	s.cfg.Metrics.SessionClosed()
	s.logger.Debug("session closed", "session", s.id)
	if err != nil {
		return fmt.Errorf("failed to flush details: %w", err)
	}
	return nil
}

func (s *Session) shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.ownSched {
		s.scheduler.Close()
	} else {
		s.scheduler.Cancel(s.interfaceID)
	}
}

func cloneNode(n *core.InterfaceNode) *core.InterfaceNode {
	if n == nil {
		return nil
	}
	out := *n
	out.PageData = slices.Clone(n.PageData)
	out.Guidance = slices.Clone(n.Guidance)
	out.Plan = slices.Clone(n.Plan)
	out.Details.Imports = make([]core.ImportEntry, len(n.Details.Imports))
	for i, e := range n.Details.Imports {
		e.Names = slices.Clone(e.Names)
		e.Exports = slices.Clone(e.Exports)
		out.Details.Imports[i] = e
	}
	if n.Details.Imports == nil {
		out.Details.Imports = nil
	}
	return &out
}
