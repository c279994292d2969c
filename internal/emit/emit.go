// Package emit assembles the generated source artifacts of an interface.
//
// From the slices, the handler plan and the authored fragments it emits a
// fixed file set per interface (types, services, module, index and handler)
// plus the workspace registry. Emission is deterministic. Authored fragments
// are refreshed with new generated code only while the user has not taken
// them over.
package emit

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"text/template"

	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/leapstack-labs/leapview/pkg/schema"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("emit").Funcs(template.FuncMap{
	"js":   jsString,
	"prop": schema.PropertyName,
}).ParseFS(templateFS, "templates/*.tmpl"))

// Input is everything emission needs for one interface.
type Input struct {
	Node     *core.InterfaceNode
	Settings *core.InterfaceSettings
	Slices   core.SliceMap
	Plan     []core.HandlerPlanStep
}

// Artifact is one emitted text file keyed by virtual path.
type Artifact struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Output is the result of emitting one interface.
type Output struct {
	Files []Artifact `json:"files"`
	// Handler and Page are the fragments after refresh; callers store them.
	Handler core.Fragment `json:"handler"`
	Page    core.Fragment `json:"page"`
	// PageDataType is the data-shape module, also stored in the node details.
	PageDataType string            `json:"page_data_type"`
	Entry        RegistryEntry     `json:"entry"`
	Diagnostics  []core.Diagnostic `json:"diagnostics,omitempty"`
}

// File returns the artifact with the given file name, if emitted.
func (o *Output) File(name string) (Artifact, bool) {
	want := ArtifactPath(o.Entry.Lookup, name)
	for _, f := range o.Files {
		if f.Path == want {
			return f, true
		}
	}
	return Artifact{}, false
}

// Emitter renders artifacts.
type Emitter struct {
	check  bool
	logger *slog.Logger
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithCheck enables the syntax check of every emitted file.
func WithCheck(enabled bool) Option {
	return func(e *Emitter) { e.check = enabled }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an emitter.
func New(opts ...Option) *Emitter {
	e := &Emitter{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit renders the artifact set of one interface. The input is not modified.
func (e *Emitter) Emit(in Input) (*Output, error) {
	if in.Node == nil {
		return nil, fmt.Errorf("emit: nil interface node")
	}
	v := buildView(in)
	lookup := firstNonEmpty(in.Node.Lookup, in.Node.ID)
	handlerGen, pageGen := handlerStub(v), pageStub(v)

	out := &Output{
		Handler: Refresh(in.Node.Handler, handlerGen),
		Page:    Refresh(in.Node.Page, pageGen),
		Entry: RegistryEntry{
			ID:      in.Node.ID,
			Lookup:  lookup,
			WebPath: in.Node.WebPath,
		},
	}

	types, err := render("types.ts.tmpl", v)
	if err != nil {
		return nil, err
	}
	services, err := render("services.ts.tmpl", v)
	if err != nil {
		return nil, err
	}
	handler, err := wrap("handler", v, body(out.Handler, handlerGen))
	if err != nil {
		return nil, err
	}
	module, err := wrap("module", v, body(out.Page, pageGen))
	if err != nil {
		return nil, err
	}
	index, err := render("index.tsx.tmpl", struct {
		View    *interfaceView
		Refresh string
	}{v, refreshBody(v)})
	if err != nil {
		return nil, err
	}
	out.PageDataType = types

	out.Files = []Artifact{
		{Path: ArtifactPath(lookup, FileTypes), Content: types},
		{Path: ArtifactPath(lookup, FileServices), Content: services},
		{Path: ArtifactPath(lookup, FileModule), Content: module},
		{Path: ArtifactPath(lookup, FileIndex), Content: index},
		{Path: ArtifactPath(lookup, FileHandler), Content: handler},
	}
	sort.Slice(out.Files, func(i, j int) bool { return out.Files[i].Path < out.Files[j].Path })

	if e.check {
		for _, d := range Check(out.Files) {
			d.Interface = in.Node.ID
			out.Diagnostics = append(out.Diagnostics, d)
		}
	}

	e.logger.Debug("emitted interface",
		"interface", in.Node.ID,
		"files", len(out.Files),
		"steps", len(in.Plan),
		"custom_handler", out.Handler.Custom(),
		"custom_page", out.Page.Custom(),
		"diagnostics", len(out.Diagnostics))
	return out, nil
}

// Refresh returns the fragment after a generation pass. The value follows the
// freshly generated one only while it still equals the last generated value;
// any edit, including clearing it, leaves the fragment untouched.
func Refresh(f core.Fragment, generated string) core.Fragment {
	if f.Dirty() {
		return f
	}
	return core.Fragment{Value: generated, Generated: generated}
}

// Reset clears a fragment so the next generation pass takes it over again.
func Reset() core.Fragment {
	return core.Fragment{}
}

// body is the fragment text placed in the scaffold. A fragment without
// custom code falls back to the generated stub.
func body(f core.Fragment, generated string) string {
	if f.Custom() {
		return f.Value
	}
	return generated
}

func wrap(name string, v *interfaceView, text string) (string, error) {
	prefix, err := render(name+"_prefix.tmpl", v)
	if err != nil {
		return "", err
	}
	suffix, err := render(name+"_suffix.tmpl", v)
	if err != nil {
		return "", err
	}
	return prefix + ensureTrailingNewline(text) + suffix, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
