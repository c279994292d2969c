package core

// InterfaceSettings is the stored per-surface settings object of an interface.
type InterfaceSettings struct {
	SchemaLookups         []string `json:"schema_lookups,omitempty"`
	WarmQueryLookups      []string `json:"warm_query_lookups,omitempty"`
	DataConnectionLookups []string `json:"data_connection_lookups,omitempty"`
	ChildInterfaceLookups []string `json:"child_interface_lookups,omitempty"`
	Theme                 string   `json:"theme,omitempty"`
	RefreshMs             int      `json:"refresh_ms,omitempty"`

	// Slices holds previously generated slices, keyed by slice key.
	Slices SliceMap `json:"slices,omitempty"`
}

// Lookups returns the lookup list for a capability kind.
func (s *InterfaceSettings) Lookups(kind CapabilityKind) []string {
	if s == nil {
		return nil
	}
	switch kind {
	case KindSchema:
		return s.SchemaLookups
	case KindWarmQuery:
		return s.WarmQueryLookups
	case KindDataConnection:
		return s.DataConnectionLookups
	case KindInterface:
		return s.ChildInterfaceLookups
	}
	return nil
}

// SetLookups replaces the lookup list for a capability kind.
func (s *InterfaceSettings) SetLookups(kind CapabilityKind, lookups []string) {
	switch kind {
	case KindSchema:
		s.SchemaLookups = lookups
	case KindWarmQuery:
		s.WarmQueryLookups = lookups
	case KindDataConnection:
		s.DataConnectionLookups = lookups
	case KindInterface:
		s.ChildInterfaceLookups = lookups
	}
}

// Clone returns a deep copy of the settings.
func (s *InterfaceSettings) Clone() *InterfaceSettings {
	if s == nil {
		return nil
	}
	out := *s
	for _, kind := range CapabilityKinds {
		if l := s.Lookups(kind); l != nil {
			out.SetLookups(kind, append([]string(nil), l...))
		}
	}
	out.Slices = s.Slices.Clone()
	return &out
}

// PageDataField is a user-declared field of the page data shape.
type PageDataField struct {
	Name   string    `json:"name"`
	Schema RawSchema `json:"schema,omitempty"`
}

// GuidanceGroup is a titled group of guidance messages shown on a page
// that has no code yet.
type GuidanceGroup struct {
	Title    string   `json:"title,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// InterfaceNode is an authored interface as seen by the compiler.
type InterfaceNode struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Lookup  string `json:"lookup"`
	WebPath string `json:"web_path,omitempty"`

	PageData []PageDataField `json:"page_data,omitempty"`
	Guidance []GuidanceGroup `json:"guidance,omitempty"`

	Details Details           `json:"details"`
	Plan    []HandlerPlanStep `json:"plan,omitempty"`
	Handler Fragment          `json:"handler"`
	Page    Fragment          `json:"page"`
}
