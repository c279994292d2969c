package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leapview/internal/cli/output"
	"github.com/leapstack-labs/leapview/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new leapview project",
		Long: `Initialize a leapview project with a configuration file and an example
workspace document.

This creates:
  - leapview.yaml configuration file
  - workspace/example.yaml with a warm query, a data connection and an
    interface wired to both`,
		Example: `  # Initialize in current directory
  leapview init

  # Initialize in a new directory
  leapview init my-project

  # Force overwrite existing files
  leapview init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(NewRendererOnly(cmd), dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

type scaffoldConfig struct {
	Workspace  []string `yaml:"workspace"`
	OutDir     string   `yaml:"out_dir"`
	StatePath  string   `yaml:"state_path"`
	Surface    string   `yaml:"surface"`
	DebounceMs int      `yaml:"debounce_ms"`
	Exports    struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"exports"`
}

func scaffoldWorkspace() map[string]any {
	return map[string]any{
		"nodes": []map[string]any{
			{
				"id":     "prices",
				"kind":   "warmQuery",
				"lookup": "latest_prices",
				"schema": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "number"},
				},
			},
			{
				"id":     "orders",
				"kind":   "dataConnection",
				"lookup": "daily_orders",
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"total": map[string]any{"type": "number"},
						"count": map[string]any{"type": "integer"},
					},
				},
			},
			{
				"id":       "overview",
				"kind":     "interface",
				"name":     "Overview",
				"web_path": "/overview",
			},
		},
		"edges": []map[string]any{
			{"source": "prices", "target": "overview", "label": "data"},
			{"source": "orders", "target": "overview", "label": "connection"},
		},
	}
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.FileName)
	}

	cfg := scaffoldConfig{
		Workspace:  []string{config.DefaultWorkspace},
		OutDir:     config.DefaultOutDir,
		StatePath:  config.DefaultStateFile,
		Surface:    config.DefaultSurface,
		DebounceMs: config.DefaultDebounceMs,
	}
	cfg.Exports.BaseURL = config.DefaultBaseURL

	files := []struct {
		path string
		v    any
	}{
		{config.FileName, cfg},
		{filepath.Join("workspace", "example.yaml"), scaffoldWorkspace()},
	}
	for _, f := range files {
		target := filepath.Join(dir, f.path)
		if _, err := os.Stat(target); err == nil && !force {
			r.StatusLine(f.path, "skipped", "exists")
			continue
		}
		data, err := yaml.Marshal(f.v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f.path, err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", f.path, err)
		}
		if err := os.WriteFile(target, data, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
		r.StatusLine(f.path, "success", "")
	}

	r.Println("")
	r.Success("leapview project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Describe your capabilities and interfaces in workspace/")
	r.Println("  2. Run 'leapview graph' to check the wiring")
	r.Println("  3. Run 'leapview compile' to generate sources")
	r.Println("  4. Run 'leapview serve' to edit interfaces from the editor")

	return nil
}
