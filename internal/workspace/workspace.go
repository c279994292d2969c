// Package workspace loads a workspace from YAML documents and answers the
// graph, settings and upstream queries the compiler consumes.
//
// A workspace is a set of YAML files selected by doublestar globs. Each file
// may declare nodes, edges and per-surface interface settings:
//
//	nodes:
//	  - id: w1
//	    kind: warmQuery
//	    lookup: ticks
//	    schema: {type: array, items: {type: number}}
//	  - id: dash
//	    kind: interface
//	    name: Dashboard
//	    web_path: /dash
//	edges:
//	  - {source: w1, target: dash, label: data}
//	settings:
//	  web:
//	    dash:
//	      refresh_ms: "5000"
//
// Documents are decoded weakly, so numbers and booleans written as strings
// are accepted.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapview/internal/dag"
	"github.com/leapstack-labs/leapview/pkg/core"
	"github.com/leapstack-labs/leapview/pkg/schema"
)

// ErrUnknownNode is returned when a node ID does not exist in the workspace.
var ErrUnknownNode = errors.New("unknown node")

// DefaultPatterns selects workspace documents when none are configured.
var DefaultPatterns = []string{"workspace/**/*.yaml", "workspace/**/*.yml"}

// NodeSpec is one node as declared in a workspace document.
type NodeSpec struct {
	ID          string              `json:"id"`
	Kind        core.CapabilityKind `json:"kind"`
	Lookup      string              `json:"lookup,omitempty"`
	Label       string              `json:"label,omitempty"`
	Description string              `json:"description,omitempty"`
	Schema      core.RawSchema      `json:"schema,omitempty"`
	Actions     []core.Action       `json:"actions,omitempty"`

	// Interface nodes only.
	Name     string               `json:"name,omitempty"`
	WebPath  string               `json:"web_path,omitempty"`
	PageData []core.PageDataField `json:"page_data,omitempty"`
	Guidance []core.GuidanceGroup `json:"guidance,omitempty"`

	// File is the document the node was declared in.
	File string `json:"-"`
}

// Document is the decoded form of one workspace file.
type Document struct {
	Nodes    []NodeSpec                                     `json:"nodes,omitempty"`
	Edges    []core.Edge                                    `json:"edges,omitempty"`
	Settings map[string]map[string]*core.InterfaceSettings `json:"settings,omitempty"`
}

// Workspace is a loaded workspace. It is safe for concurrent use.
type Workspace struct {
	root     string
	patterns []string
	logger   *slog.Logger

	mu       sync.RWMutex
	graph    *dag.Graph
	nodes    map[string]*NodeSpec
	settings map[string]map[string]*core.InterfaceSettings
	files    []string
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithPatterns sets the globs selecting workspace documents, relative to root.
func WithPatterns(patterns ...string) Option {
	return func(w *Workspace) {
		if len(patterns) > 0 {
			w.patterns = patterns
		}
	}
}

// Load reads every document under root matched by the configured patterns.
func Load(root string, opts ...Option) (*Workspace, error) {
	w := &Workspace{
		root:     root,
		patterns: DefaultPatterns,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.Reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// New builds a workspace from already decoded documents.
func New(docs []Document, opts ...Option) (*Workspace, error) {
	w := &Workspace{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.build(docs); err != nil {
		return nil, err
	}
	return w, nil
}

// Root returns the directory the workspace was loaded from.
func (w *Workspace) Root() string {
	return w.root
}

// Patterns returns the globs selecting workspace documents.
func (w *Workspace) Patterns() []string {
	return w.patterns
}

// Reload re-reads every document. On error the previous state is kept.
func (w *Workspace) Reload() error {
	files, err := w.match()
	if err != nil {
		return err
	}

	docs := make([]Document, 0, len(files))
	for _, f := range files {
		doc, err := ReadDocument(filepath.Join(w.root, f))
		if err != nil {
			return err
		}
		for i := range doc.Nodes {
			doc.Nodes[i].File = f
		}
		docs = append(docs, *doc)
	}

	if err := w.build(docs); err != nil {
		return err
	}
	w.mu.Lock()
	w.files = files
	w.mu.Unlock()
	w.logger.Debug("workspace loaded", "root", w.root, "files", len(files))
	return nil
}

// Matches reports whether a path relative to the root selects a document.
func (w *Workspace) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range w.patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (w *Workspace) match() ([]string, error) {
	fsys := os.DirFS(w.root)
	seen := make(map[string]bool)
	var files []string
	for _, p := range w.patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid workspace pattern %q", p)
		}
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to match %q: %w", p, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// ReadDocument reads and decodes one workspace document.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// ParseDocument decodes a YAML workspace document.
func ParseDocument(data []byte) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	var doc Document
	if err := decode(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func decode(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func (w *Workspace) build(docs []Document) error {
	g := dag.NewGraph()
	nodes := make(map[string]*NodeSpec)
	settings := make(map[string]map[string]*core.InterfaceSettings)

	for _, doc := range docs {
		for i := range doc.Nodes {
			n := doc.Nodes[i]
			if n.ID == "" {
				return fmt.Errorf("node without id in %s", n.File)
			}
			if _, dup := nodes[n.ID]; dup {
				return fmt.Errorf("duplicate node %q in %s", n.ID, n.File)
			}
			if !validKind(n.Kind) {
				return fmt.Errorf("node %q has unknown kind %q", n.ID, n.Kind)
			}
			if n.Lookup == "" {
				n.Lookup = defaultLookup(n)
			}
			nodes[n.ID] = &n
			g.AddNode(dag.Node{ID: n.ID, Kind: n.Kind, Lookup: n.Lookup, Data: &n})
		}
	}

	for _, doc := range docs {
		for _, e := range doc.Edges {
			if err := g.AddEdge(e.Source, e.Target, e.Label); err != nil {
				return fmt.Errorf("invalid edge %s -> %s: %w", e.Source, e.Target, err)
			}
		}
		for surface, byID := range doc.Settings {
			if settings[surface] == nil {
				settings[surface] = make(map[string]*core.InterfaceSettings)
			}
			for id, s := range byID {
				settings[surface][id] = s
			}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.graph = g
	w.nodes = nodes
	w.settings = settings
	return nil
}

func validKind(k core.CapabilityKind) bool {
	for _, kind := range core.CapabilityKinds {
		if k == kind {
			return true
		}
	}
	return false
}

func defaultLookup(n NodeSpec) string {
	if n.Kind == core.KindInterface && n.Name != "" {
		return strings.ToLower(strings.Join(strings.Fields(n.Name), "-"))
	}
	return n.ID
}

// Files returns the documents of the last successful load, relative to root.
func (w *Workspace) Files() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.files...)
}

// Graph returns the workspace graph.
func (w *Workspace) Graph() *dag.Graph {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.graph
}

// GetEdgesInto implements core.GraphQuerier. Sources are reported by lookup,
// the name settings and upstream resolution refer to them by.
func (w *Workspace) GetEdgesInto(nodeID string) []core.Edge {
	g := w.Graph()
	edges := g.GetEdgesInto(nodeID)
	for i, e := range edges {
		if n, ok := g.GetNode(e.Source); ok && n.Lookup != "" {
			edges[i].Source = n.Lookup
		}
	}
	return edges
}

// GetSettings implements core.SettingsStore. Settings are returned as a copy.
func (w *Workspace) GetSettings(surface, interfaceID string) (*core.InterfaceSettings, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if _, ok := w.nodes[interfaceID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, interfaceID)
	}
	return w.settings[surface][interfaceID].Clone(), nil
}

// ResolveUpstream implements core.UpstreamResolver. Interface nodes resolve to
// the shape of their page data.
func (w *Workspace) ResolveUpstream(kind core.CapabilityKind, lookup string) (*core.UpstreamSource, bool) {
	n, ok := w.Graph().FindByLookup(kind, lookup)
	if !ok {
		return nil, false
	}
	spec := n.Data.(*NodeSpec)

	src := &core.UpstreamSource{
		Kind:        spec.Kind,
		Lookup:      spec.Lookup,
		Label:       spec.Label,
		Description: spec.Description,
		Schema:      spec.Schema,
	}
	for _, a := range spec.Actions {
		src.Actions = append(src.Actions, a.Clone())
	}
	if spec.Kind == core.KindInterface {
		if src.Label == "" {
			src.Label = spec.Name
		}
		if src.Schema == nil {
			src.Schema = pageDataSchema(spec.PageData)
		}
	}
	if src.Label == "" {
		src.Label = schema.Title(spec.Lookup)
	}
	return src, true
}

func pageDataSchema(fields []core.PageDataField) core.RawSchema {
	if len(fields) == 0 {
		return nil
	}
	props := make(map[string]any, len(fields))
	required := make([]any, 0, len(fields))
	for _, f := range fields {
		s := f.Schema
		if s == nil {
			s = core.RawSchema{}
		}
		props[f.Name] = s
		required = append(required, f.Name)
	}
	return core.RawSchema{"type": "object", "properties": props, "required": required}
}

// Interface returns the compiler view of an interface node.
func (w *Workspace) Interface(id string) (*core.InterfaceNode, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n, ok := w.nodes[id]
	if !ok || n.Kind != core.KindInterface {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return &core.InterfaceNode{
		ID:       n.ID,
		Name:     n.Name,
		Lookup:   n.Lookup,
		WebPath:  n.WebPath,
		PageData: append([]core.PageDataField(nil), n.PageData...),
		Guidance: append([]core.GuidanceGroup(nil), n.Guidance...),
	}, nil
}

// Interfaces returns the IDs of every interface node, sorted.
func (w *Workspace) Interfaces() []string {
	var ids []string
	for _, n := range w.Graph().NodesOfKind(core.KindInterface) {
		ids = append(ids, n.ID)
	}
	return ids
}

// ResolveInterface accepts an interface ID or lookup.
func (w *Workspace) ResolveInterface(ref string) (string, error) {
	g := w.Graph()
	if n, ok := g.GetNode(ref); ok && n.Kind == core.KindInterface {
		return n.ID, nil
	}
	if n, ok := g.FindByLookup(core.KindInterface, ref); ok {
		return n.ID, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownNode, ref)
}
