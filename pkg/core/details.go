package core

// Import analysis statuses.
const (
	ImportPending = "pending"
	ImportReady   = "ready"
	ImportError   = "error"
)

// ImportEntry is one module import of an interface page.
type ImportEntry struct {
	Module  string   `json:"module"`
	Default string   `json:"default,omitempty"`
	Names   []string `json:"names,omitempty"`

	// Populated by export analysis.
	Exports []string `json:"exports,omitempty"`
	Status  string   `json:"status,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Details is the stored, independently patchable content of an interface node.
type Details struct {
	Imports      []ImportEntry `json:"imports,omitempty"`
	PageDataType string        `json:"page_data_type,omitempty"`
	PageHandler  string        `json:"page_handler,omitempty"`
	Page         string        `json:"page,omitempty"`

	// Values the emitter last produced for PageHandler and Page. They are
	// stored with the blocks themselves so dirty tracking survives a reopen.
	HandlerGenerated string `json:"handler_generated,omitempty"`
	PageGenerated    string `json:"page_generated,omitempty"`
}

// DetailsPatch is a partial update to Details. Nil fields are unchanged.
type DetailsPatch struct {
	Imports      *[]ImportEntry `json:"imports,omitempty"`
	PageDataType *string        `json:"page_data_type,omitempty"`
	PageHandler  *string        `json:"page_handler,omitempty"`
	Page         *string        `json:"page,omitempty"`

	HandlerGenerated *string `json:"handler_generated,omitempty"`
	PageGenerated    *string `json:"page_generated,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p DetailsPatch) Empty() bool {
	return p.Imports == nil && p.PageDataType == nil && p.PageHandler == nil && p.Page == nil &&
		p.HandlerGenerated == nil && p.PageGenerated == nil
}

// Apply returns d with the patch applied.
func (p DetailsPatch) Apply(d Details) Details {
	if p.Imports != nil {
		d.Imports = append([]ImportEntry(nil), (*p.Imports)...)
	}
	if p.PageDataType != nil {
		d.PageDataType = *p.PageDataType
	}
	if p.PageHandler != nil {
		d.PageHandler = *p.PageHandler
	}
	if p.Page != nil {
		d.Page = *p.Page
	}
	if p.HandlerGenerated != nil {
		d.HandlerGenerated = *p.HandlerGenerated
	}
	if p.PageGenerated != nil {
		d.PageGenerated = *p.PageGenerated
	}
	return d
}
