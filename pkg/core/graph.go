package core

import "context"

// EdgeLabel tags the relationship an edge expresses.
type EdgeLabel string

// Edge labels.
const (
	EdgeSchema     EdgeLabel = "schema"
	EdgeData       EdgeLabel = "data"
	EdgeConnection EdgeLabel = "connection"
	EdgeChild      EdgeLabel = "child"
)

// Kind maps an edge label to the capability kind of its source.
func (l EdgeLabel) Kind() (CapabilityKind, bool) {
	switch l {
	case EdgeSchema:
		return KindSchema, true
	case EdgeData:
		return KindWarmQuery, true
	case EdgeConnection:
		return KindDataConnection, true
	case EdgeChild:
		return KindInterface, true
	}
	return "", false
}

// Edge is a directed, labeled workspace graph edge.
type Edge struct {
	Source string    `json:"source"`
	Target string    `json:"target"`
	Label  EdgeLabel `json:"label"`
}

// GraphQuerier answers graph queries about the workspace.
type GraphQuerier interface {
	GetEdgesInto(nodeID string) []Edge
}

// SettingsStore returns stored per-surface settings for an interface.
// A nil result with nil error means no settings exist yet.
type SettingsStore interface {
	GetSettings(surface, interfaceID string) (*InterfaceSettings, error)
}

// UpstreamSource is the declared shape of one upstream capability.
type UpstreamSource struct {
	Kind        CapabilityKind `json:"kind"`
	Lookup      string         `json:"lookup"`
	Label       string         `json:"label,omitempty"`
	Description string         `json:"description,omitempty"`
	Schema      RawSchema      `json:"schema,omitempty"`
	Actions     []Action       `json:"actions,omitempty"`
}

// UpstreamResolver resolves an upstream lookup to its declared source.
// ok is false when the upstream cannot be resolved (yet).
type UpstreamResolver interface {
	ResolveUpstream(kind CapabilityKind, lookup string) (src *UpstreamSource, ok bool)
}

// DetailsSink receives partial details updates for an interface.
type DetailsSink interface {
	OnDetailsChanged(ctx context.Context, interfaceID string, patch DetailsPatch) error
}
