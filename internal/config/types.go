// Package config loads leapview configuration.
//
// Values come from built-in defaults, a leapview.yaml file found in or above
// the working directory, LEAPVIEW_ environment variables and command-line
// flags, in increasing order of precedence.
package config

import (
	"fmt"
	"time"
)

// ExportsConfig configures import export analysis.
type ExportsConfig struct {
	BaseURL     string `koanf:"base_url"`
	TimeoutMs   int    `koanf:"timeout_ms"`
	Concurrency int    `koanf:"concurrency"`
}

// Timeout returns the per-request fetch timeout.
func (e ExportsConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMs) * time.Millisecond
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port  int  `koanf:"port"`
	Watch bool `koanf:"watch"`
}

// Config holds all leapview configuration options.
type Config struct {
	// Workspace lists doublestar globs of workspace documents, relative to
	// the project root.
	Workspace    []string      `koanf:"workspace"`
	OutDir       string        `koanf:"out_dir"`
	StatePath    string        `koanf:"state_path"`
	Surface      string        `koanf:"surface"`
	DebounceMs   int           `koanf:"debounce_ms"`
	Check        bool          `koanf:"check"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
	Exports      ExportsConfig `koanf:"exports"`
	Server       ServerConfig  `koanf:"server"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// Debounce returns the details write delay.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Workspace) == 0 {
		return fmt.Errorf("workspace requires at least one pattern")
	}
	if c.OutDir == "" {
		return fmt.Errorf("out_dir is required")
	}
	if c.Surface == "" {
		return fmt.Errorf("surface is required")
	}
	if c.DebounceMs < 0 {
		return fmt.Errorf("debounce_ms must not be negative")
	}
	if c.Exports.Concurrency < 1 {
		return fmt.Errorf("exports.concurrency must be at least 1")
	}
	switch c.OutputFormat {
	case "", "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("unknown output format %q (want auto, text, markdown or json)", c.OutputFormat)
	}
	return nil
}
