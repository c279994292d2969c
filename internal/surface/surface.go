// Package surface resolves which runtime surfaces may invoke a slice action.
//
// An action is capable of running on a surface either because it records its
// own support or because its invocation type says so. A slice's access mode
// narrows that further. Every invocation mode stored on an action must stay
// within what is possible, so the resolver is re-run whenever the access mode
// changes.
package surface

import (
	"errors"
	"strings"

	"github.com/leapstack-labs/leapview/pkg/core"
)

// Toggle errors.
var (
	ErrSurfaceUnavailable = errors.New("surface not available for this action")
	ErrEmptySelection     = errors.New("at least one surface must stay selected")
)

// Capabilities returns where an action is capable of running, ignoring the
// slice's access mode. Explicit support wins over the type table.
func Capabilities(a *core.Action) core.Surfaces {
	if a == nil {
		return core.Surfaces{}
	}
	if a.Supports != nil {
		return *a.Supports
	}
	return CapabilitiesForType(a.Type())
}

// CapabilitiesForType is the default capability table keyed by invocation type.
// Only the part before the first ':' is significant.
func CapabilitiesForType(invocationType string) core.Surfaces {
	kind, _, _ := strings.Cut(invocationType, ":")
	switch core.CapabilityKind(kind) {
	case core.KindWarmQuery, core.KindInterface:
		return core.Surfaces{Client: true}
	case core.KindDataConnection:
		return core.Surfaces{Handler: true}
	}
	return core.Surfaces{Handler: true, Client: true}
}

// Possible returns the surfaces an action can legally use under an access mode.
func Possible(a *core.Action, access core.AccessMode) core.Surfaces {
	return Capabilities(a).Intersect(core.SurfacesForAccess(access))
}

// DefaultMode is the best mode available: both when both surfaces are
// possible, else whichever one is, else disabled.
func DefaultMode(possible core.Surfaces) core.InvocationMode {
	return possible.Mode()
}

// Reconcile narrows a requested mode to the possible surfaces. A request
// that keeps no surface resolves to disabled.
func Reconcile(requested core.InvocationMode, possible core.Surfaces) core.InvocationMode {
	return core.SurfacesForMode(requested).Intersect(possible).Mode()
}

// Toggle flips one surface of an action's selection and returns the new mode.
// It fails when the surface is not possible or when the flip would leave no
// surface selected; disabling goes through SetEnabled instead.
func Toggle(a *core.Action, access core.AccessMode, s core.Surface) (core.InvocationMode, error) {
	possible := Possible(a, access)
	if !possible.Has(s) {
		return a.Mode(), ErrSurfaceUnavailable
	}

	selected := core.SurfacesForMode(a.Mode()).Intersect(possible)
	switch s {
	case core.SurfaceHandler:
		selected.Handler = !selected.Handler
	case core.SurfaceClient:
		selected.Client = !selected.Client
	}
	if !selected.Any() {
		return a.Mode(), ErrEmptySelection
	}

	mode := selected.Mode()
	setMode(a, mode)
	return mode, nil
}

// SetEnabled disables an action, or re-enables it with the best available
// default. Enabling an already enabled action only reconciles its mode.
func SetEnabled(a *core.Action, access core.AccessMode, enabled bool) core.InvocationMode {
	if !enabled {
		setMode(a, core.ModeDisabled)
		return core.ModeDisabled
	}
	possible := Possible(a, access)
	mode := Reconcile(a.Mode(), possible)
	if !mode.Enabled() {
		mode = DefaultMode(possible)
	}
	setMode(a, mode)
	return mode
}

// SetMode stores the requested mode narrowed to what is possible.
func SetMode(a *core.Action, access core.AccessMode, requested core.InvocationMode) core.InvocationMode {
	mode := Reconcile(requested, Possible(a, access))
	setMode(a, mode)
	return mode
}

// ResolveSlice returns a copy of s in which every action mode is legal under
// the slice's access mode and hydration is clamped to it.
func ResolveSlice(s *core.GeneratedDataSlice) *core.GeneratedDataSlice {
	if s == nil {
		return nil
	}
	out := s.Clone()
	out.AccessMode = out.AccessMode.OrDefault()
	for i := range out.Actions {
		a := &out.Actions[i]
		if a.Invocation == nil {
			continue
		}
		a.Invocation.Mode = Reconcile(a.Invocation.Mode, Possible(a, out.AccessMode))
	}
	out.Hydration = ClampHydration(out.Hydration, out.AccessMode)
	return out
}

// ResolveAll applies ResolveSlice to every slice of m.
func ResolveAll(m core.SliceMap) core.SliceMap {
	if m == nil {
		return nil
	}
	out := make(core.SliceMap, len(m))
	for k, s := range m {
		out[k] = ResolveSlice(s)
	}
	return out
}

// SetAccessMode returns a copy of s under a new access mode, with action modes
// downgraded or cleared where they became impossible.
func SetAccessMode(s *core.GeneratedDataSlice, access core.AccessMode) *core.GeneratedDataSlice {
	if s == nil {
		return nil
	}
	out := s.Clone()
	out.AccessMode = access.OrDefault()
	return ResolveSlice(out)
}

// ClampHydration turns off hydration for surfaces the access mode excludes.
func ClampHydration(h core.Hydration, access core.AccessMode) core.Hydration {
	allowed := core.SurfacesForAccess(access)
	if !allowed.Handler {
		h.Server = false
	}
	if !allowed.Client {
		h.Client = false
		h.ClientRefreshMs = 0
	}
	return h
}

// Violations lists "<slice>:<action>" for every action whose mode requires a
// surface that is not possible. It is empty after ResolveSlice.
func Violations(m core.SliceMap) []string {
	var out []string
	for _, s := range m.Sorted() {
		for i := range s.Actions {
			a := &s.Actions[i]
			selected := core.SurfacesForMode(a.Mode())
			possible := Possible(a, s.AccessMode)
			if selected.Intersect(possible) != selected {
				out = append(out, core.StepID(s.Key, a.Key))
			}
		}
	}
	return out
}

func setMode(a *core.Action, mode core.InvocationMode) {
	if a.Invocation == nil {
		if mode == core.ModeDisabled {
			return
		}
		a.Invocation = &core.Invocation{}
	}
	a.Invocation.Mode = mode
}
