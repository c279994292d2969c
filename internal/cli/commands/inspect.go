package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapview/internal/cli/output"
	"github.com/leapstack-labs/leapview/pkg/core"
)

// NewSlicesCommand creates the slices command.
func NewSlicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "slices <interface>",
		Short: "Show the generated data slices of an interface",
		Long: `Show every data slice of an interface with its access mode, hydration and
action invocation modes.

Lookups kept in settings whose upstream no longer exists are listed as
detached. They are never removed automatically.`,
		Example: `  leapview slices dash
  leapview slices sales-dashboard --output json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeInterfaces,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlices(cmd, args[0])
		},
	}
}

func runSlices(cmd *cobra.Command, ref string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := cc.openSession(cmd.Context(), ref)
	if err != nil {
		return err
	}
	v := s.Snapshot()

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"interface":  v.Interface.ID,
			"slices":     v.Slices.Sorted(),
			"unresolved": nonNil(v.Unresolved),
			"detached":   nonNil(v.Detached),
		})
	}

	r.Header(1, fmt.Sprintf("Slices of %s (%d)", v.Interface.Name, len(v.Slices)))
	rows := make([][]string, 0, len(v.Slices))
	for _, sl := range v.Slices.Sorted() {
		rows = append(rows, []string{
			sl.Key,
			sl.SourceCapability,
			string(sl.AccessMode),
			hydrationString(sl.Hydration),
			actionsString(sl.Actions),
		})
	}
	r.Table([]string{"Key", "Source", "Access", "Hydration", "Actions"}, rows)

	if len(v.Detached) > 0 {
		r.Println("")
		r.Header(2, "Detached lookups")
		for _, tag := range v.Detached {
			r.StatusLine(tag, "failed", "no longer in the workspace graph")
		}
	}
	return nil
}

func hydrationString(h core.Hydration) string {
	var parts []string
	if h.Server {
		parts = append(parts, "server")
	}
	if h.Client {
		c := "client"
		if h.ClientRefreshMs > 0 {
			c += fmt.Sprintf(" every %dms", h.ClientRefreshMs)
		}
		parts = append(parts, c)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func actionsString(actions []core.Action) string {
	parts := make([]string, 0, len(actions))
	for i := range actions {
		mode := string(actions[i].Mode())
		if mode == "" {
			mode = "disabled"
		}
		parts = append(parts, actions[i].Key+"="+mode)
	}
	return strings.Join(parts, " ")
}

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <interface>",
		Short: "Show the handler plan of an interface",
		Long: `Show the ordered server-side handler plan: one step per action that can run
in the page handler, with its result name and execution flags.`,
		Example: `  leapview plan dash`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeInterfaces,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0])
		},
	}
}

func runPlan(cmd *cobra.Command, ref string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := cc.openSession(cmd.Context(), ref)
	if err != nil {
		return err
	}
	v := s.Snapshot()
	steps := v.Interface.Plan

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(nonNil(steps))
	}

	r.Header(1, fmt.Sprintf("Handler plan of %s (%d steps)", v.Interface.Name, len(steps)))
	if len(steps) == 0 {
		r.Muted("No actions run in the page handler.")
		return nil
	}
	rows := make([][]string, 0, len(steps))
	for i, st := range steps {
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			st.ID,
			st.ResultName,
			yesNo(st.AutoExecute),
			yesNo(st.IncludeInResponse),
			st.InputExpression,
		})
	}
	r.Table([]string{"#", "Step", "Result", "Auto", "In response", "Input"}, rows)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// NewExportsCommand creates the exports command.
func NewExportsCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "exports <interface>",
		Short: "Show the analyzed exports of an interface's imports",
		Long: `Show each module imported by an interface page with its analysis status and
the names it exports. With --refresh every module is fetched and analyzed
again before printing.`,
		Example: `  leapview exports dash
  leapview exports dash --refresh`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeInterfaces,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExports(cmd, args[0], refresh)
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Re-analyze every import")

	return cmd
}

func runExports(cmd *cobra.Command, ref string, refresh bool) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := cc.openSession(cmd.Context(), ref)
	if err != nil {
		return err
	}
	if refresh {
		for _, e := range s.Snapshot().Interface.Details.Imports {
			if err := s.Reanalyze(e.Module); err != nil {
				return err
			}
		}
		s.Wait()
	}
	imports := s.Snapshot().Interface.Details.Imports

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(nonNil(imports))
	}

	r.Header(1, fmt.Sprintf("Imports (%d)", len(imports)))
	for _, e := range imports {
		detail := e.Error
		if e.Status == core.ImportReady {
			names := slices.Clone(e.Exports)
			slices.Sort(names)
			detail = strings.Join(names, ", ")
		}
		r.StatusLine(e.Module, e.Status, detail)
	}
	return nil
}
