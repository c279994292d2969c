package config

// Default configuration values.
const (
	DefaultWorkspace   = "workspace/**/*.yaml"
	DefaultOutDir      = "generated"
	DefaultStateFile   = ".leapview/state.db"
	DefaultSurface     = "web"
	DefaultDebounceMs  = 400
	DefaultBaseURL     = "https://esm.sh/"
	DefaultTimeoutMs   = 10000
	DefaultConcurrency = 4
	DefaultPort        = 8790
	DefaultOutput      = "auto" // TTY=text, otherwise markdown
)

func defaults() map[string]any {
	return map[string]any{
		"workspace":           []string{DefaultWorkspace},
		"out_dir":             DefaultOutDir,
		"state_path":          DefaultStateFile,
		"surface":             DefaultSurface,
		"debounce_ms":         DefaultDebounceMs,
		"check":               true,
		"verbose":             false,
		"output":              DefaultOutput,
		"exports.base_url":    DefaultBaseURL,
		"exports.timeout_ms":  DefaultTimeoutMs,
		"exports.concurrency": DefaultConcurrency,
		"server.port":         DefaultPort,
		"server.watch":        true,
	}
}

// Default returns the configuration used when nothing is loaded.
func Default() *Config {
	return &Config{
		Workspace:    []string{DefaultWorkspace},
		OutDir:       DefaultOutDir,
		StatePath:    DefaultStateFile,
		Surface:      DefaultSurface,
		DebounceMs:   DefaultDebounceMs,
		Check:        true,
		OutputFormat: DefaultOutput,
		Exports: ExportsConfig{
			BaseURL:     DefaultBaseURL,
			TimeoutMs:   DefaultTimeoutMs,
			Concurrency: DefaultConcurrency,
		},
		Server: ServerConfig{Port: DefaultPort, Watch: true},
	}
}
