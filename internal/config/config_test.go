package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapview/internal/testutil"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	return testutil.WriteFile(t, t.TempDir(), FileName, content)
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{DefaultWorkspace}, cfg.Workspace)
	assert.Equal(t, DefaultSurface, cfg.Surface)
	assert.Equal(t, DefaultDebounceMs, cfg.DebounceMs)
	assert.True(t, cfg.Check)
	assert.Equal(t, DefaultBaseURL, cfg.Exports.BaseURL)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.True(t, cfg.Server.Watch)
	assert.True(t, filepath.IsAbs(cfg.OutDir))
	assert.Equal(t, DefaultOutDir, filepath.Base(cfg.OutDir))
	assert.Empty(t, cfg.File)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
workspace: [docs/*.yaml]
out_dir: build
debounce_ms: 50
exports:
  base_url: http://cdn.local/
server:
  port: 9000
  watch: false
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	root := filepath.Dir(path)
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, []string{"docs/*.yaml"}, cfg.Workspace)
	assert.Equal(t, filepath.Join(root, "build"), cfg.OutDir)
	assert.Equal(t, filepath.Join(root, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, 50, cfg.DebounceMs)
	assert.Equal(t, "http://cdn.local/", cfg.Exports.BaseURL)
	assert.Equal(t, DefaultConcurrency, cfg.Exports.Concurrency)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.Server.Watch)
}

func TestLoad_SearchesUpward(t *testing.T) {
	path := writeConfig(t, "surface: mobile\n")
	root := filepath.Dir(path)
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0750))
	t.Chdir(sub)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "mobile", cfg.Surface)
	assert.Equal(t, root, cfg.ProjectRoot)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, "surface: from_file\nserver:\n  port: 9000\n")

	tests := []struct {
		name     string
		env      map[string]string
		flag     string
		wantSurf string
		wantPort int
	}{
		{
			name:     "file only",
			wantSurf: "from_file",
			wantPort: 9000,
		},
		{
			name:     "env overrides file",
			env:      map[string]string{"LEAPVIEW_SURFACE": "from_env", "LEAPVIEW_SERVER__PORT": "9100"},
			wantSurf: "from_env",
			wantPort: 9100,
		},
		{
			name:     "flag overrides env",
			env:      map[string]string{"LEAPVIEW_SURFACE": "from_env"},
			flag:     "from_flag",
			wantSurf: "from_flag",
			wantPort: 9000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
			flags.String("surface", "", "")
			flags.Int("port", 0, "")
			if tt.flag != "" {
				require.NoError(t, flags.Set("surface", tt.flag))
			}

			cfg, err := Load(path, flags)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSurf, cfg.Surface)
			assert.Equal(t, tt.wantPort, cfg.Server.Port, "unset flag must not override")
		})
	}
}

func TestLoad_MappedFlags(t *testing.T) {
	path := writeConfig(t, "")
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("state", "", "")
	flags.Bool("watch", true, "")
	flags.StringSlice("workspace", nil, "")
	require.NoError(t, flags.Set("state", ":memory:"))
	require.NoError(t, flags.Set("watch", "false"))
	require.NoError(t, flags.Set("workspace", "a/*.yaml,b/*.yaml"))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, ":memory:", cfg.StatePath)
	assert.False(t, cfg.Server.Watch)
	assert.Equal(t, []string{"a/*.yaml", "b/*.yaml"}, cfg.Workspace)
}

func TestLoad_EnvWorkspaceList(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("LEAPVIEW_WORKSPACE", "x/*.yaml, y/*.yml")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x/*.yaml", "y/*.yml"}, cfg.Workspace)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, "output: xml\n")
	_, err := Load(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR_ONE}", "value_one"},
		{"/path/${TEST_VAR_ONE}/file", "/path/value_one/file"},
		{"${UNSET_VARIABLE}", "${UNSET_VARIABLE}"},
		{"plain string", "plain string"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.Workspace = nil
	assert.ErrorContains(t, cfg.Validate(), "workspace")

	cfg = Default()
	cfg.Exports.Concurrency = 0
	assert.ErrorContains(t, cfg.Validate(), "concurrency")
}
