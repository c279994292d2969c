package emit

import (
	"path"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/leapstack-labs/leapview/pkg/core"
)

// Check runs every artifact through esbuild's TypeScript transform and returns
// syntax errors and warnings as diagnostics. It never stops at the first file.
func Check(files []Artifact) []core.Diagnostic {
	var out []core.Diagnostic
	for _, f := range files {
		out = append(out, CheckFile(f)...)
	}
	return out
}

// CheckFile checks a single artifact. Files that are neither .ts nor .tsx
// are skipped.
func CheckFile(f Artifact) []core.Diagnostic {
	loader, ok := loaderFor(f.Path)
	if !ok {
		return nil
	}

	result := api.Transform(f.Content, api.TransformOptions{
		Loader:     loader,
		Sourcefile: f.Path,
		Format:     api.FormatESModule,
		Target:     api.ES2020,
		JSX:        api.JSXAutomatic,
		LogLevel:   api.LogLevelSilent,
	})

	var out []core.Diagnostic
	for _, m := range result.Errors {
		out = append(out, diagnostic(f.Path, core.SeverityError, m))
	}
	for _, m := range result.Warnings {
		out = append(out, diagnostic(f.Path, core.SeverityWarning, m))
	}
	return out
}

func loaderFor(p string) (api.Loader, bool) {
	switch path.Ext(p) {
	case ".ts":
		return api.LoaderTS, true
	case ".tsx":
		return api.LoaderTSX, true
	}
	return api.LoaderNone, false
}

func diagnostic(p string, sev core.Severity, m api.Message) core.Diagnostic {
	d := core.Diagnostic{Path: p, Severity: sev, Message: m.Text}
	if m.Location != nil {
		d.Line = m.Location.Line
		d.Column = m.Location.Column
	}
	return d
}
