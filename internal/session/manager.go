package session

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"sync"

	"github.com/leapstack-labs/leapview/internal/dag"
	"github.com/leapstack-labs/leapview/internal/emit"
	"github.com/leapstack-labs/leapview/pkg/core"
)

// Manager keeps at most one open session per interface.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*Session // by interface ID
}

// NewManager creates a manager that opens sessions with cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:      cfg.withDefaults(),
		sessions: make(map[string]*Session),
	}
}

// SetOnChange sets the hook passed to sessions opened from now on.
func (m *Manager) SetOnChange(fn func(interfaceID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg.OnChange = fn
}

// Open returns the session of an interface, opening it if needed.
func (m *Manager) Open(ctx context.Context, interfaceID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[interfaceID]; ok {
		return s, nil
	}
	s, err := Open(ctx, m.cfg, interfaceID)
	if err != nil {
		return nil, err
	}
	m.sessions[interfaceID] = s
	return s, nil
}

// Get returns an open session by session ID.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.ID() == sessionID {
			return s, true
		}
	}
	return nil, false
}

// ForInterface returns the open session of an interface.
func (m *Manager) ForInterface(interfaceID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[interfaceID]
	return s, ok
}

// OpenInterfaces returns the IDs of interfaces with an open session, sorted.
func (m *Manager) OpenInterfaces() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close closes the session of an interface, if open.
func (m *Manager) Close(ctx context.Context, interfaceID string) error {
	m.mu.Lock()
	s, ok := m.sessions[interfaceID]
	delete(m.sessions, interfaceID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.Close(ctx)
}

// CloseAll closes every open session.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	open := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range open {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.InterfaceID(), err))
		}
	}
	return errors.Join(errs...)
}

// RecompileAffected recompiles every open session downstream of the changed
// nodes. It returns the interfaces it recompiled.
func (m *Manager) RecompileAffected(ctx context.Context, changedIDs []string) ([]string, error) {
	affected := m.cfg.Workspace.Graph().GetAffectedNodes(changedIDs)

	var done []string
	var errs []error
	for _, id := range affected {
		s, ok := m.ForInterface(id)
		if !ok {
			continue
		}
		if err := s.Recompile(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		done = append(done, id)
	}
	return done, errors.Join(errs...)
}

// RecompileAll recompiles every open session.
func (m *Manager) RecompileAll(ctx context.Context) error {
	var errs []error
	for _, id := range m.OpenInterfaces() {
		s, ok := m.ForInterface(id)
		if !ok {
			continue
		}
		if err := s.Recompile(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Build is the result of compiling a set of interfaces.
type Build struct {
	// Order is the registry order, child interfaces first.
	Order []string `json:"order"`
	// Views holds one view per compiled interface, in Order.
	Views       []View            `json:"views"`
	Registry    emit.Artifact     `json:"registry"`
	Diagnostics []core.Diagnostic `json:"diagnostics,omitempty"`
}

// Files returns every artifact of the build, registry last.
func (b *Build) Files() []emit.Artifact {
	var files []emit.Artifact
	for _, v := range b.Views {
		files = append(files, v.Files...)
	}
	return append(files, b.Registry)
}

// Valid reports whether every compiled interface passed validation.
func (b *Build) Valid() bool {
	for _, v := range b.Views {
		if !v.Validation.Valid {
			return false
		}
	}
	return true
}

// reject drops the files of a compiled interface and marks it invalid.
func (b *Build) reject(id, msg string) {
	for i := range b.Views {
		v := &b.Views[i]
		if v.Interface.ID != id {
			continue
		}
		v.Files = nil
		v.Validation.Valid = false
		v.Validation.Errors = append(slices.Clone(v.Validation.Errors), core.FieldError{Field: "lookup", Message: msg})
	}
}

// CompileAll compiles the given interfaces, or all of them when ids is
// empty, and emits the workspace registry over every interface. Sessions it
// opens are closed again, which flushes their details.
func (m *Manager) CompileAll(ctx context.Context, ids []string) (*Build, error) {
	order, cycleErr := m.cfg.Workspace.Graph().InterfaceOrder()

	b := &Build{Order: order}
	if cycleErr != nil {
		b.Diagnostics = append(b.Diagnostics, core.Diagnostic{
			Path:     emit.RegistryPath,
			Severity: core.SeverityWarning,
			Message:  cycleErr.Error() + "; registry falls back to lexical order",
		})
		if !errors.Is(cycleErr, dag.ErrCycle) {
			return nil, cycleErr
		}
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !slices.Contains(order, id) {
			return nil, fmt.Errorf("not an interface: %s", id)
		}
		want[id] = true
	}

	entries := make([]emit.RegistryEntry, 0, len(order))
	for _, id := range order {
		if len(ids) > 0 && !want[id] {
			node, err := m.cfg.Workspace.Interface(id)
			if err != nil {
				return nil, err
			}
			entries = append(entries, emit.RegistryEntry{ID: node.ID, Lookup: node.Lookup, WebPath: node.WebPath})
			continue
		}

		_, wasOpen := m.ForInterface(id)
		s, err := m.Open(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s: %w", id, err)
		}
		if wasOpen {
			if err := s.Recompile(ctx); err != nil {
				return nil, fmt.Errorf("failed to compile %s: %w", id, err)
			}
		}
		v := s.Snapshot()
		b.Views = append(b.Views, v)
		b.Diagnostics = append(b.Diagnostics, v.Diagnostics...)
		entries = append(entries, v.Entry)

		if !wasOpen {
			if err := m.Close(ctx, id); err != nil {
				return nil, err
			}
		}
	}

	_, conflicts := emit.ClaimDirs(entries)
	for _, c := range conflicts {
		msg := fmt.Sprintf("lookup %q shares artifact directory %q with %s (lookup %q); its files are not emitted",
			c.Entry.Lookup, c.Dir, c.Owner.ID, c.Owner.Lookup)
		b.Diagnostics = append(b.Diagnostics, core.Diagnostic{
			Interface: c.Entry.ID,
			Path:      path.Join(emit.Root, c.Dir),
			Severity:  core.SeverityError,
			Message:   msg,
		})
		b.reject(c.Entry.ID, msg)
	}

	reg, err := m.cfg.Emitter.EmitRegistry(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to emit registry: %w", err)
	}
	b.Registry = reg
	return b, nil
}
