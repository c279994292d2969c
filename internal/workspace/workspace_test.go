package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapview/internal/testutil"
	"github.com/leapstack-labs/leapview/pkg/core"
)

const sourcesDoc = `
nodes:
  - id: w1
    kind: warmQuery
    lookup: ticks
    label: Ticks
    schema:
      type: array
      items: {type: number}
  - id: c1
    kind: dataConnection
    lookup: daily_orders
    actions:
      - key: fetchLatest
        label: Fetch latest
        invocation: {type: dataConnection, mode: server}
`

const interfacesDoc = `
nodes:
  - id: dash
    kind: interface
    name: Sales Dashboard
    web_path: /sales
    guidance:
      - title: Start here
        messages: [Pick a chart]
  - id: panel
    kind: interface
    lookup: panel
    name: Panel
    page_data:
      - name: title
        schema: {type: string}
edges:
  - {source: w1, target: dash, label: data}
  - {source: c1, target: dash, label: connection}
  - {source: panel, target: dash, label: child}
settings:
  web:
    dash:
      warm_query_lookups: [ticks, legacy]
      refresh_ms: "5000"
      theme: dark
`

func loadFixture(t *testing.T) *Workspace {
	t.Helper()
	root := t.TempDir()
	testutil.WriteFile(t, root, "workspace/sources.yaml", sourcesDoc)
	testutil.WriteFile(t, root, "workspace/ui/interfaces.yml", interfacesDoc)
	testutil.WriteFile(t, root, "workspace/notes.txt", "not yaml: [")

	ws, err := Load(root, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	return ws
}

func TestLoad(t *testing.T) {
	ws := loadFixture(t)

	assert.Equal(t, []string{"workspace/sources.yaml", "workspace/ui/interfaces.yml"}, ws.Files())
	assert.Equal(t, []string{"dash", "panel"}, ws.Interfaces())
	assert.Equal(t, 5, ws.Graph().NodeCount())
	assert.Equal(t, 3, ws.Graph().EdgeCount())
}

func TestWorkspace_GetEdgesInto(t *testing.T) {
	ws := loadFixture(t)

	assert.Equal(t, []core.Edge{
		{Source: "daily_orders", Target: "dash", Label: core.EdgeConnection},
		{Source: "panel", Target: "dash", Label: core.EdgeChild},
		{Source: "ticks", Target: "dash", Label: core.EdgeData},
	}, ws.GetEdgesInto("dash"))
}

func TestWorkspace_GetSettings(t *testing.T) {
	ws := loadFixture(t)

	s, err := ws.GetSettings("web", "dash")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 5000, s.RefreshMs, "weakly typed decode")
	assert.Equal(t, []string{"ticks", "legacy"}, s.WarmQueryLookups)

	s.Theme = "light"
	again, err := ws.GetSettings("web", "dash")
	require.NoError(t, err)
	assert.Equal(t, "dark", again.Theme, "callers get copies")

	none, err := ws.GetSettings("web", "panel")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = ws.GetSettings("web", "missing")
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestWorkspace_ResolveUpstream(t *testing.T) {
	ws := loadFixture(t)

	src, ok := ws.ResolveUpstream(core.KindWarmQuery, "ticks")
	require.True(t, ok)
	assert.Equal(t, "Ticks", src.Label)
	assert.Equal(t, "array", src.Schema["type"])

	src, ok = ws.ResolveUpstream(core.KindDataConnection, "daily_orders")
	require.True(t, ok)
	assert.Equal(t, "Daily Orders", src.Label)
	require.Len(t, src.Actions, 1)
	assert.Equal(t, core.ModeServer, src.Actions[0].Mode())

	src, ok = ws.ResolveUpstream(core.KindInterface, "panel")
	require.True(t, ok)
	assert.Equal(t, "Panel", src.Label)
	assert.Equal(t, "object", src.Schema["type"])
	assert.Equal(t, []any{"title"}, src.Schema["required"])

	_, ok = ws.ResolveUpstream(core.KindWarmQuery, "legacy")
	assert.False(t, ok)
}

func TestWorkspace_Interface(t *testing.T) {
	ws := loadFixture(t)

	n, err := ws.Interface("dash")
	require.NoError(t, err)
	assert.Equal(t, "sales-dashboard", n.Lookup)
	assert.Equal(t, "/sales", n.WebPath)
	assert.Equal(t, []core.GuidanceGroup{{Title: "Start here", Messages: []string{"Pick a chart"}}}, n.Guidance)

	_, err = ws.Interface("w1")
	assert.ErrorIs(t, err, ErrUnknownNode)

	id, err := ws.ResolveInterface("sales-dashboard")
	require.NoError(t, err)
	assert.Equal(t, "dash", id)
}

func TestWorkspace_Matches(t *testing.T) {
	ws := loadFixture(t)
	assert.True(t, ws.Matches("workspace/a/b/c.yaml"))
	assert.False(t, ws.Matches("workspace/notes.txt"))
	assert.False(t, ws.Matches("other/x.yaml"))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		docs map[string]string
	}{
		{
			name: "duplicate node",
			docs: map[string]string{
				"workspace/a.yaml": "nodes: [{id: x, kind: schema}]",
				"workspace/b.yaml": "nodes: [{id: x, kind: schema}]",
			},
		},
		{
			name: "unknown kind",
			docs: map[string]string{"workspace/a.yaml": "nodes: [{id: x, kind: table}]"},
		},
		{
			name: "dangling edge",
			docs: map[string]string{"workspace/a.yaml": "edges: [{source: a, target: b, label: data}]"},
		},
		{
			name: "unknown field",
			docs: map[string]string{"workspace/a.yaml": "nodes: [{id: x, kind: schema, colour: red}]"},
		},
		{
			name: "malformed yaml",
			docs: map[string]string{"workspace/a.yaml": "nodes: [{id: x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			for rel, content := range tt.docs {
				testutil.WriteFile(t, root, rel, content)
			}
			_, err := Load(root)
			assert.Error(t, err)
		})
	}
}

func TestReload_KeepsStateOnError(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "workspace/a.yaml", "nodes: [{id: x, kind: interface, name: X}]")
	ws, err := Load(root)
	require.NoError(t, err)

	testutil.WriteFile(t, root, "workspace/a.yaml", "nodes: [{id: x, kind: nope}]")
	require.Error(t, ws.Reload())
	assert.Equal(t, []string{"x"}, ws.Interfaces())
}

func TestNew(t *testing.T) {
	ws, err := New([]Document{{
		Nodes: []NodeSpec{{ID: "s", Kind: core.KindSchema}, {ID: "i", Kind: core.KindInterface, Name: "I"}},
		Edges: []core.Edge{{Source: "s", Target: "i", Label: core.EdgeSchema}},
	}})
	require.NoError(t, err)
	assert.Len(t, ws.GetEdgesInto("i"), 1)
	src, ok := ws.ResolveUpstream(core.KindSchema, "s")
	require.True(t, ok)
	assert.Equal(t, "S", src.Label)
}
