package reconcile

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/leapview/pkg/core"
)

// GroupEdges collects the source lookups of edges into interfaceID, grouped by
// the capability kind their label maps to. Edges with unknown labels are ignored.
func GroupEdges(interfaceID string, edges []core.Edge) map[core.CapabilityKind][]string {
	out := make(map[core.CapabilityKind][]string)
	for _, e := range edges {
		if e.Target != interfaceID {
			continue
		}
		kind, ok := e.Label.Kind()
		if !ok {
			continue
		}
		out[kind] = append(out[kind], e.Source)
	}
	return out
}

// MergeLookups unions derived and stored lookups. Entries are trimmed,
// deduplicated and sorted; an empty result is nil.
func MergeLookups(derived, stored []string) []string {
	seen := make(map[string]bool, len(derived)+len(stored))
	var out []string
	for _, list := range [][]string{stored, derived} {
		for _, l := range list {
			l = strings.TrimSpace(l)
			if l == "" || seen[l] {
				continue
			}
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Strings(out)
	return out
}

// MergeSettings returns a copy of stored with every lookup list unioned with
// the lookups derived from the graph. stored may be nil.
func MergeSettings(interfaceID string, edges []core.Edge, stored *core.InterfaceSettings) *core.InterfaceSettings {
	out := stored.Clone()
	if out == nil {
		out = &core.InterfaceSettings{}
	}
	derived := GroupEdges(interfaceID, edges)
	for _, kind := range core.CapabilityKinds {
		out.SetLookups(kind, MergeLookups(derived[kind], out.Lookups(kind)))
	}
	return out
}

// Detached returns the capability tags of stored lookups no edge points at
// anymore. They are kept until removed from settings explicitly.
func Detached(interfaceID string, edges []core.Edge, settings *core.InterfaceSettings) []string {
	derived := GroupEdges(interfaceID, edges)
	var out []string
	for _, kind := range core.CapabilityKinds {
		live := make(map[string]bool)
		for _, l := range derived[kind] {
			live[strings.TrimSpace(l)] = true
		}
		for _, l := range settings.Lookups(kind) {
			if !live[l] {
				out = append(out, core.Capability(kind, l))
			}
		}
	}
	return out
}
