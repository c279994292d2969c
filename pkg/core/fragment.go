package core

// Fragment is a user-owned block of authored code (handler body or page body).
//
// Generated holds the last value the emitter produced for the fragment. The
// emitter may only overwrite Value while Value still equals Generated.
type Fragment struct {
	Value     string `json:"value"`
	Generated string `json:"generated,omitempty"`
}

// Dirty reports whether the user has edited the fragment since the last generation.
func (f Fragment) Dirty() bool {
	return f.Value != f.Generated
}

// Custom reports whether the fragment holds user-owned code.
func (f Fragment) Custom() bool {
	return f.Dirty() && f.Value != ""
}
