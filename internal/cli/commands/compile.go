package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapview/internal/cli/output"
	"github.com/leapstack-labs/leapview/internal/emit"
	"github.com/leapstack-labs/leapview/internal/session"
	"github.com/leapstack-labs/leapview/pkg/core"
)

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "compile [interface...]",
		Short: "Generate interface source artifacts",
		Long: `Compile interfaces into their generated source files and write them to out_dir.

Each interface gets its slice types, page data type, server handler and page
files. The workspace registry is regenerated over every interface, so
compiling a subset still produces a complete registry.

Files whose content did not change are not rewritten.`,
		Example: `  # Compile every interface
  leapview compile

  # Compile one interface by ID or lookup
  leapview compile sales-dashboard

  # Show what would be written
  leapview compile --dry-run --output json`,
		ValidArgsFunction: completeInterfaces,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compile without writing files")

	return cmd
}

type compileOutput struct {
	Order       []string          `json:"order"`
	Files       []string          `json:"files"`
	Written     int               `json:"written"`
	Diagnostics []core.Diagnostic `json:"diagnostics"`
	Valid       bool              `json:"valid"`
	DurationMs  int64             `json:"duration_ms"`
}

func runCompile(cmd *cobra.Command, args []string, dryRun bool) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	start := time.Now()

	ids, err := resolveAll(cc, args)
	if err != nil {
		return err
	}
	build, err := cc.Manager.CompileAll(ctx, ids)
	if err != nil {
		return err
	}

	files := build.Files()
	written := 0
	if !dryRun {
		written, err = emit.WriteArtifacts(cc.Cfg.OutDir, files)
		if err != nil {
			return err
		}
	}
	cc.Logger.Debug("compile finished", "interfaces", len(build.Views), "files", len(files), "written", written)

	out := compileOutput{
		Order:       build.Order,
		Written:     written,
		Diagnostics: nonNil(build.Diagnostics),
		Valid:       build.Valid(),
		DurationMs:  time.Since(start).Milliseconds(),
	}
	for _, f := range files {
		out.Files = append(out.Files, f.Path)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("Compiled %d interfaces", len(build.Views)))
	for _, v := range build.Views {
		status := "success"
		if !v.Validation.Valid {
			status = "failed"
		}
		r.StatusLine(v.Interface.ID, status, fmt.Sprintf("%d files", len(v.Files)))
	}
	r.Println("")
	renderDiagnostics(r, build.Diagnostics)

	summary := fmt.Sprintf("%d files, %d written to %s in %s", len(files), written, cc.Cfg.OutDir, time.Since(start).Round(time.Millisecond))
	if dryRun {
		summary = fmt.Sprintf("%d files (dry run)", len(files))
	}
	r.Success(summary)
	return nil
}

// resolveAll maps interface references to IDs.
func resolveAll(cc *CommandContext, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		id, err := cc.Workspace.ResolveInterface(ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func renderDiagnostics(r *output.Renderer, diags []core.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	r.Header(2, "Diagnostics")
	rows := make([][]string, 0, len(diags))
	for _, d := range diags {
		loc := d.Path
		if d.Line > 0 {
			loc += ":" + strconv.Itoa(d.Line)
		}
		rows = append(rows, []string{d.Severity.String(), d.Interface, loc, d.Message})
	}
	r.Table([]string{"Severity", "Interface", "Location", "Message"}, rows)
	r.Println("")
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [interface...]",
		Short: "Check interfaces without writing files",
		Long: `Compile interfaces in memory and report validation errors and artifact
diagnostics. Exits with an error when any interface is invalid.`,
		Example: `  leapview validate
  leapview validate dash --output json`,
		ValidArgsFunction: completeInterfaces,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args)
		},
	}
}

type validateResult struct {
	Interface  string            `json:"interface"`
	Valid      bool              `json:"valid"`
	Errors     []core.FieldError `json:"errors"`
	Files      int               `json:"files"`
	Slices     int               `json:"slices"`
	Detached   []string          `json:"detached,omitempty"`
	Unresolved []string          `json:"unresolved,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ids, err := resolveAll(cc, args)
	if err != nil {
		return err
	}
	build, err := cc.Manager.CompileAll(cmd.Context(), ids)
	if err != nil {
		return err
	}

	results := make([]validateResult, 0, len(build.Views))
	for _, v := range build.Views {
		results = append(results, viewResult(v))
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(map[string]any{"interfaces": results, "diagnostics": nonNil(build.Diagnostics)}); err != nil {
			return err
		}
	} else {
		r.Header(1, "Validation")
		for _, res := range results {
			status := "success"
			if !res.Valid {
				status = "failed"
			}
			r.StatusLine(res.Interface, status, "")
			for _, fe := range res.Errors {
				r.Printf("      %s %s\n", r.Styles().Bold.Render(fe.Field+":"), fe.Message)
			}
		}
		r.Println("")
		renderDiagnostics(r, build.Diagnostics)
	}

	if !build.Valid() {
		return fmt.Errorf("validation failed")
	}
	return nil
}

func viewResult(v session.View) validateResult {
	return validateResult{
		Interface:  v.Interface.ID,
		Valid:      v.Validation.Valid,
		Errors:     nonNil(v.Validation.Errors),
		Files:      len(v.Files),
		Slices:     len(v.Slices),
		Detached:   v.Detached,
		Unresolved: v.Unresolved,
	}
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
