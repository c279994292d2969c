// Package reconcile merges graph-derived upstream lookups with stored interface
// settings into the canonical set of generated data slices.
//
// Lookups are unioned, never replaced, so a graph recompute cannot drop a
// lookup the user added in settings. For every lookup a slice is built or
// refreshed: structural fields come from the upstream, while access mode,
// hydration, data connection features and action modes are carried over from
// the previous slice with the same source capability.
package reconcile

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/leapstack-labs/leapview/internal/historic"
	"github.com/leapstack-labs/leapview/internal/surface"
	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/leapstack-labs/leapview/pkg/schema"
)

// Reconciler builds generated slices for interfaces.
type Reconciler struct {
	upstream core.UpstreamResolver
	logger   *slog.Logger
}

// New creates a reconciler. upstream may be nil, in which case every slice is
// built without a schema.
func New(upstream core.UpstreamResolver, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{upstream: upstream, logger: logger}
}

// Result is the output of one reconciliation pass.
type Result struct {
	// Settings is the stored settings with merged lookups and the new slices.
	Settings *core.InterfaceSettings
	// Slices is the canonical generated-slice map.
	Slices core.SliceMap
	// Unresolved lists capabilities whose upstream could not be resolved.
	Unresolved []string
	// Detached lists stored capabilities no graph edge points at anymore.
	Detached []string
}

// Reconcile runs one pass for interfaceID. It never fails: unresolvable
// upstreams still yield a slice with no schema.
func (r *Reconciler) Reconcile(interfaceID string, edges []core.Edge, stored *core.InterfaceSettings) Result {
	settings := MergeSettings(interfaceID, edges, stored)
	prior := settings.Slices.ByCapability()

	res := Result{
		Settings: settings,
		Slices:   make(core.SliceMap),
		Detached: Detached(interfaceID, edges, settings),
	}

	keys := newKeyAllocator()
	for _, kind := range core.CapabilityKinds {
		for _, lookup := range settings.Lookups(kind) {
			capability := core.Capability(kind, lookup)
			src, ok := r.resolve(kind, lookup)
			if !ok {
				r.logger.Debug("upstream not resolvable", "interface", interfaceID, "capability", capability)
				res.Unresolved = append(res.Unresolved, capability)
			}
			s := buildSlice(keys.claim(kind, lookup), kind, lookup, src, prior[capability], settings.RefreshMs)
			res.Slices[s.Key] = surface.ResolveSlice(s)
		}
	}

	res.Settings.Slices = res.Slices.Clone()
	r.logger.Debug("reconciled slices", "interface", interfaceID, "slices", len(res.Slices), "unresolved", len(res.Unresolved))
	return res
}

func (r *Reconciler) resolve(kind core.CapabilityKind, lookup string) (*core.UpstreamSource, bool) {
	if r.upstream == nil {
		return nil, false
	}
	src, ok := r.upstream.ResolveUpstream(kind, lookup)
	if !ok || src == nil {
		return nil, false
	}
	return src, true
}

func buildSlice(key string, kind core.CapabilityKind, lookup string, src *core.UpstreamSource, prior *core.GeneratedDataSlice, refreshMs int) *core.GeneratedDataSlice {
	s := &core.GeneratedDataSlice{
		Key:              key,
		Label:            lookup,
		SourceCapability: core.Capability(kind, lookup),
		AccessMode:       core.AccessBoth,
	}
	if src != nil {
		if src.Label != "" {
			s.Label = src.Label
		}
		s.Description = src.Description
		s.Schema = src.Schema
	}

	if prior != nil {
		s.AccessMode = prior.AccessMode.OrDefault()
		s.Hydration = prior.Hydration
	} else {
		s.Hydration = DefaultHydration(s.AccessMode, refreshMs)
	}

	if kind == core.KindDataConnection && prior != nil {
		s.DataConnection = historic.Normalize(prior.DataConnection)
	}

	var declared []core.Action
	if src != nil {
		declared = src.Actions
	}
	if len(declared) == 0 {
		declared = DefaultActions(kind, s.DataConnection, s.Schema)
	}
	s.Actions = mergeActions(kind, declared, prior, s.AccessMode)
	return s
}

// mergeActions clones the declared actions, filling in the invocation type and
// carrying over the mode of the prior action with the same key, disabled
// included. New actions start from their declared mode, or the best available
// default when none is declared.
func mergeActions(kind core.CapabilityKind, declared []core.Action, prior *core.GeneratedDataSlice, access core.AccessMode) []core.Action {
	out := make([]core.Action, 0, len(declared))
	seen := make(map[string]bool, len(declared))
	for _, d := range declared {
		if d.Key == "" || seen[d.Key] {
			continue
		}
		seen[d.Key] = true

		a := d.Clone()
		if a.Label == "" {
			a.Label = d.Key
		}
		if a.Invocation == nil {
			a.Invocation = &core.Invocation{}
		}
		if a.Invocation.Type == "" {
			a.Invocation.Type = string(kind)
		}

		var prev *core.Action
		if prior != nil {
			prev, _ = prior.Action(a.Key)
		}
		switch {
		case prev != nil:
			a.Invocation.Mode = prev.Mode()
		case !d.Mode().Enabled():
			a.Invocation.Mode = surface.DefaultMode(surface.Possible(&a, access))
		}
		out = append(out, a)
	}
	return out
}

// DefaultHydration is the hydration of a new slice under an access mode.
func DefaultHydration(access core.AccessMode, refreshMs int) core.Hydration {
	allowed := core.SurfacesForAccess(access)
	h := core.Hydration{Server: allowed.Handler, Client: allowed.Client}
	if allowed.Client && refreshMs > 0 {
		h.ClientRefreshMs = refreshMs
	}
	return h
}

// Default action keys.
const (
	ActionRun          = "run"
	ActionFetchLatest  = "fetchLatest"
	ActionFetchHistory = "fetchHistory"
)

// DefaultActions returns the actions a slice gets when its upstream declares none.
func DefaultActions(kind core.CapabilityKind, features *core.DataConnectionFeatures, output core.RawSchema) []core.Action {
	inv := func() *core.Invocation { return &core.Invocation{Type: string(kind)} }
	switch kind {
	case core.KindWarmQuery:
		return []core.Action{{
			Key:         ActionRun,
			Label:       "Run",
			Description: "Execute the warm query and return its rows.",
			Invocation:  inv(),
			Output:      output,
		}}
	case core.KindDataConnection:
		actions := []core.Action{{
			Key:         ActionFetchLatest,
			Label:       "Fetch latest",
			Description: "Fetch the most recent data from the connection.",
			Invocation:  inv(),
			Output:      output,
		}}
		if features != nil && features.AllowHistoricDownload {
			actions = append(actions, core.Action{
				Key:         ActionFetchHistory,
				Label:       "Fetch history",
				Description: "Download a historic window of data.",
				Invocation:  inv(),
				Input:       historyInput(features.HistoricDownloadFormats),
				Output:      output,
			})
		}
		return actions
	}
	return nil
}

func historyInput(formats []string) core.RawSchema {
	enum := make([]any, 0, len(formats))
	for _, f := range formats {
		enum = append(enum, f)
	}
	props := map[string]any{
		"start": map[string]any{"type": "string", "description": "Window start (date-time)"},
		"end":   map[string]any{"type": "string", "description": "Window end (date-time)"},
	}
	if len(enum) > 0 {
		props["format"] = map[string]any{"enum": enum, "default": enum[0]}
	}
	return core.RawSchema{
		"type":       "object",
		"properties": props,
		"required":   []any{"start"},
	}
}

// keyAllocator hands out unique slice keys. Kinds claim keys in priority
// order; a colliding lookup gets its kind as prefix, then a numeric suffix.
type keyAllocator struct {
	taken map[string]bool
}

func newKeyAllocator() *keyAllocator {
	return &keyAllocator{taken: make(map[string]bool)}
}

func (k *keyAllocator) claim(kind core.CapabilityKind, lookup string) string {
	candidates := []string{
		schema.LowerCamel(lookup),
		string(kind) + schema.Pascal(lookup),
	}
	for _, c := range candidates {
		if !k.taken[c] {
			k.taken[c] = true
			return c
		}
	}
	base := candidates[1]
	for i := 2; ; i++ {
		c := base + strconv.Itoa(i)
		if !k.taken[c] {
			k.taken[c] = true
			return c
		}
	}
}

// SliceKey returns the key a lookup gets when nothing collides with it.
func SliceKey(lookup string) string {
	return schema.LowerCamel(lookup)
}

// String renders a short summary for logs.
func (r Result) String() string {
	return fmt.Sprintf("%d slices, %d unresolved, %d detached", len(r.Slices), len(r.Unresolved), len(r.Detached))
}
