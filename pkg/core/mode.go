package core

// AccessMode restricts which runtime surfaces may read a slice at all.
type AccessMode string

// Access modes.
const (
	AccessServer AccessMode = "server"
	AccessClient AccessMode = "client"
	AccessBoth   AccessMode = "both"
)

// Valid reports whether m is one of the known access modes.
func (m AccessMode) Valid() bool {
	switch m {
	case AccessServer, AccessClient, AccessBoth:
		return true
	}
	return false
}

// OrDefault returns m, or AccessBoth when m is empty or unknown.
func (m AccessMode) OrDefault() AccessMode {
	if m.Valid() {
		return m
	}
	return AccessBoth
}

// InvocationMode selects which surfaces execute an action.
// The zero value (ModeDisabled) means the action is disabled.
type InvocationMode string

// Invocation modes.
const (
	ModeDisabled InvocationMode = ""
	ModeServer   InvocationMode = "server"
	ModeClient   InvocationMode = "client"
	ModeBoth     InvocationMode = "both"
)

// Valid reports whether m is a known mode. ModeDisabled is valid.
func (m InvocationMode) Valid() bool {
	switch m {
	case ModeDisabled, ModeServer, ModeClient, ModeBoth:
		return true
	}
	return false
}

// Enabled reports whether the mode selects at least one surface.
func (m InvocationMode) Enabled() bool {
	return m == ModeServer || m == ModeClient || m == ModeBoth
}

// Surface is a runtime surface an action can run on.
type Surface string

// Runtime surfaces.
const (
	SurfaceHandler Surface = "handler"
	SurfaceClient  Surface = "client"
)

// Surfaces is a pair of flags, one per runtime surface.
type Surfaces struct {
	Handler bool `json:"handler"`
	Client  bool `json:"client"`
}

// Intersect returns the surfaces present in both s and o.
func (s Surfaces) Intersect(o Surfaces) Surfaces {
	return Surfaces{Handler: s.Handler && o.Handler, Client: s.Client && o.Client}
}

// Any reports whether at least one surface is set.
func (s Surfaces) Any() bool {
	return s.Handler || s.Client
}

// Has reports whether the given surface is set.
func (s Surfaces) Has(surface Surface) bool {
	switch surface {
	case SurfaceHandler:
		return s.Handler
	case SurfaceClient:
		return s.Client
	}
	return false
}

// Mode converts a surface selection to the matching invocation mode.
func (s Surfaces) Mode() InvocationMode {
	switch {
	case s.Handler && s.Client:
		return ModeBoth
	case s.Handler:
		return ModeServer
	case s.Client:
		return ModeClient
	}
	return ModeDisabled
}

// SurfacesForMode returns the surfaces selected by an invocation mode.
func SurfacesForMode(m InvocationMode) Surfaces {
	switch m {
	case ModeBoth:
		return Surfaces{Handler: true, Client: true}
	case ModeServer:
		return Surfaces{Handler: true}
	case ModeClient:
		return Surfaces{Client: true}
	}
	return Surfaces{}
}

// SurfacesForAccess returns the surfaces an access mode allows.
func SurfacesForAccess(m AccessMode) Surfaces {
	switch m.OrDefault() {
	case AccessServer:
		return Surfaces{Handler: true}
	case AccessClient:
		return Surfaces{Client: true}
	}
	return Surfaces{Handler: true, Client: true}
}
