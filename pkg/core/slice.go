package core

import (
	"sort"
	"strings"
)

// RawSchema is a JSON-Schema-shaped document as received from an upstream source.
// It is treated as immutable once attached to a slice.
type RawSchema = map[string]any

// CapabilityKind identifies the kind of producer behind a slice.
type CapabilityKind string

// Capability kinds, in key-claiming priority order.
const (
	KindSchema         CapabilityKind = "schema"
	KindWarmQuery      CapabilityKind = "warmQuery"
	KindDataConnection CapabilityKind = "dataConnection"
	KindInterface      CapabilityKind = "interface"
)

// CapabilityKinds lists every kind in priority order.
var CapabilityKinds = []CapabilityKind{KindSchema, KindWarmQuery, KindDataConnection, KindInterface}

// Capability builds a source capability tag such as "dataConnection:orders".
func Capability(kind CapabilityKind, lookup string) string {
	return string(kind) + ":" + lookup
}

// ParseCapability splits a capability tag into its kind and lookup.
func ParseCapability(tag string) (CapabilityKind, string) {
	kind, lookup, ok := strings.Cut(tag, ":")
	if !ok {
		return CapabilityKind(tag), ""
	}
	return CapabilityKind(kind), lookup
}

// Hydration controls when slice data is loaded on each surface.
type Hydration struct {
	Server          bool `json:"server"`
	Client          bool `json:"client"`
	ClientRefreshMs int  `json:"client_refresh_ms,omitempty"`
}

// Invocation records how an action is invoked.
type Invocation struct {
	Type string         `json:"type,omitempty"`
	Mode InvocationMode `json:"mode,omitempty"`
}

// Action is one invocable operation exposed by a slice.
type Action struct {
	Key         string      `json:"key"`
	Label       string      `json:"label"`
	Description string      `json:"description,omitempty"`
	Invocation  *Invocation `json:"invocation,omitempty"`
	// Supports overrides the type-based capability table when set.
	Supports *Surfaces `json:"supports,omitempty"`
	Input    RawSchema `json:"input,omitempty"`
	Output   RawSchema `json:"output,omitempty"`
}

// Mode returns the action's invocation mode, ModeDisabled when unset.
func (a *Action) Mode() InvocationMode {
	if a == nil || a.Invocation == nil {
		return ModeDisabled
	}
	return a.Invocation.Mode
}

// Type returns the action's invocation type, empty when unset.
func (a *Action) Type() string {
	if a == nil || a.Invocation == nil {
		return ""
	}
	return a.Invocation.Type
}

// Clone returns a copy of the action that can be mutated independently.
func (a Action) Clone() Action {
	if a.Invocation != nil {
		inv := *a.Invocation
		a.Invocation = &inv
	}
	if a.Supports != nil {
		sup := *a.Supports
		a.Supports = &sup
	}
	return a
}

// GeneratedDataSlice is one upstream data source projected into an interface's data namespace.
type GeneratedDataSlice struct {
	Key              string                  `json:"key"`
	Label            string                  `json:"label"`
	Description      string                  `json:"description,omitempty"`
	SourceCapability string                  `json:"source_capability"`
	AccessMode       AccessMode              `json:"access_mode,omitempty"`
	Hydration        Hydration               `json:"hydration"`
	Schema           RawSchema               `json:"schema,omitempty"`
	DataConnection   *DataConnectionFeatures `json:"data_connection,omitempty"`
	Actions          []Action                `json:"actions,omitempty"`
}

// Kind returns the capability kind encoded in SourceCapability.
func (s *GeneratedDataSlice) Kind() CapabilityKind {
	kind, _ := ParseCapability(s.SourceCapability)
	return kind
}

// Lookup returns the upstream lookup encoded in SourceCapability.
func (s *GeneratedDataSlice) Lookup() string {
	_, lookup := ParseCapability(s.SourceCapability)
	return lookup
}

// Action returns the action with the given key.
func (s *GeneratedDataSlice) Action(key string) (*Action, bool) {
	for i := range s.Actions {
		if s.Actions[i].Key == key {
			return &s.Actions[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the mutable parts of the slice.
// Schemas are shared since they are never mutated.
func (s *GeneratedDataSlice) Clone() *GeneratedDataSlice {
	if s == nil {
		return nil
	}
	out := *s
	out.DataConnection = s.DataConnection.Clone()
	if s.Actions != nil {
		out.Actions = make([]Action, len(s.Actions))
		for i, a := range s.Actions {
			out.Actions[i] = a.Clone()
		}
	}
	return &out
}

// SliceMap maps slice keys to slices.
type SliceMap map[string]*GeneratedDataSlice

// Keys returns the slice keys in sorted order.
func (m SliceMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Sorted returns the slices ordered by key.
func (m SliceMap) Sorted() []*GeneratedDataSlice {
	out := make([]*GeneratedDataSlice, 0, len(m))
	for _, k := range m.Keys() {
		out = append(out, m[k])
	}
	return out
}

// ByCapability indexes the slices by SourceCapability.
func (m SliceMap) ByCapability() map[string]*GeneratedDataSlice {
	out := make(map[string]*GeneratedDataSlice, len(m))
	for _, s := range m {
		out[s.SourceCapability] = s
	}
	return out
}

// Clone returns a deep copy of the map.
func (m SliceMap) Clone() SliceMap {
	if m == nil {
		return nil
	}
	out := make(SliceMap, len(m))
	for k, s := range m {
		out[k] = s.Clone()
	}
	return out
}

// EnabledCount returns the number of slices with at least one enabled action,
// or with no actions at all (plain data slices).
func (m SliceMap) EnabledCount() int {
	n := 0
	for _, s := range m {
		if len(s.Actions) == 0 {
			n++
			continue
		}
		for i := range s.Actions {
			if s.Actions[i].Mode().Enabled() {
				n++
				break
			}
		}
	}
	return n
}
