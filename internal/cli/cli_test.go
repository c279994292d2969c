package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if errOut.Len() > 0 {
		t.Log(errOut.String())
	}
	return out.String(), err
}

// newProject scaffolds a project with init and returns its config path.
func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	_, err := run(t, "init", dir)
	require.NoError(t, err)
	return filepath.Join(dir, "leapview.yaml")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "leapview v"+Version)
}

func TestHelpCommand(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"compile", "validate", "slices", "plan", "exports", "graph", "serve", "init"} {
		assert.Contains(t, out, name)
	}
}

func TestInit(t *testing.T) {
	cfgPath := newProject(t)
	dir := filepath.Dir(cfgPath)

	assert.FileExists(t, cfgPath)
	assert.FileExists(t, filepath.Join(dir, "workspace", "example.yaml"))

	_, err := run(t, "init", dir)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "init", dir, "--force")
	assert.NoError(t, err)
}

func TestGraphCommand(t *testing.T) {
	cfgPath := newProject(t)

	out, err := run(t, "graph", "--config", cfgPath, "--output", "json")
	require.NoError(t, err)

	var got struct {
		RegistryOrder []string `json:"registry_order"`
		TotalNodes    int      `json:"total_nodes"`
		TotalEdges    int      `json:"total_edges"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"overview"}, got.RegistryOrder)
	assert.Equal(t, 3, got.TotalNodes)
	assert.Equal(t, 2, got.TotalEdges)
}

func TestCompileCommand(t *testing.T) {
	cfgPath := newProject(t)
	dir := filepath.Dir(cfgPath)

	out, err := run(t, "compile", "--config", cfgPath, "--output", "json")
	require.NoError(t, err)

	var got struct {
		Order   []string `json:"order"`
		Files   []string `json:"files"`
		Written int      `json:"written"`
		Valid   bool     `json:"valid"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"overview"}, got.Order)
	assert.True(t, got.Valid)
	require.NotEmpty(t, got.Files)
	assert.Equal(t, len(got.Files), got.Written)
	for _, f := range got.Files {
		assert.FileExists(t, filepath.Join(dir, "generated", f))
	}

	// A second run rewrites nothing.
	out, err = run(t, "compile", "--config", cfgPath, "--output", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Zero(t, got.Written)
}

func TestCompileCommand_DryRun(t *testing.T) {
	cfgPath := newProject(t)

	out, err := run(t, "compile", "--config", cfgPath, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")
	assert.NoDirExists(t, filepath.Join(filepath.Dir(cfgPath), "generated"))
}

func TestCompileCommand_UnknownInterface(t *testing.T) {
	cfgPath := newProject(t)
	_, err := run(t, "compile", "--config", cfgPath, "nope")
	assert.ErrorContains(t, err, "nope")
}

func TestSlicesAndPlanCommands(t *testing.T) {
	cfgPath := newProject(t)

	out, err := run(t, "slices", "overview", "--config", cfgPath, "--output", "json")
	require.NoError(t, err)
	var slices struct {
		Slices []struct {
			Key string `json:"key"`
		} `json:"slices"`
		Detached []string `json:"detached"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &slices))
	var keys []string
	for _, s := range slices.Slices {
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{"dailyOrders", "latestPrices"}, keys)
	assert.Empty(t, slices.Detached)

	out, err = run(t, "plan", "overview", "--config", cfgPath, "--output", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "dailyOrders:fetchLatest")
}

func TestValidateCommand(t *testing.T) {
	cfgPath := newProject(t)

	out, err := run(t, "validate", "--config", cfgPath, "--output", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "overview")
}

func TestExportsCommand_NoImports(t *testing.T) {
	cfgPath := newProject(t)

	out, err := run(t, "exports", "overview", "--config", cfgPath, "--output", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestEnvOverridesOutDir(t *testing.T) {
	cfgPath := newProject(t)
	outDir := filepath.Join(t.TempDir(), "elsewhere")
	t.Setenv("LEAPVIEW_OUT_DIR", outDir)

	_, err := run(t, "compile", "--config", cfgPath)
	require.NoError(t, err)
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
