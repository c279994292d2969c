package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapview/internal/cli/output"
	"github.com/leapstack-labs/leapview/internal/dag"
	"github.com/leapstack-labs/leapview/internal/workspace"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Show the workspace graph",
		Long: `Display every workspace node with its capability kind and lookup, the labeled
edges feeding it, and the order interfaces appear in the registry.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  leapview graph
  leapview graph --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGraph(cmd)
		},
	}
}

type graphEdge struct {
	Source string `json:"source"`
	Label  string `json:"label"`
}

type graphNode struct {
	ID       string      `json:"id"`
	Kind     string      `json:"kind,omitempty"`
	Lookup   string      `json:"lookup,omitempty"`
	Upstream []graphEdge `json:"upstream,omitempty"`
	UsedBy   []string    `json:"used_by,omitempty"`
}

type graphOutput struct {
	Nodes         []graphNode `json:"nodes"`
	RegistryOrder []string    `json:"registry_order"`
	Cycle         string      `json:"cycle,omitempty"`
	TotalNodes    int         `json:"total_nodes"`
	TotalEdges    int         `json:"total_edges"`
}

func runGraph(cmd *cobra.Command) error {
	cfg := GetConfig(cmd.Context())
	ws, err := workspace.Load(cfg.ProjectRoot,
		workspace.WithPatterns(cfg.Workspace...),
		workspace.WithLogger(GetLogger(cmd.Context())))
	if err != nil {
		return fmt.Errorf("failed to load workspace: %w", err)
	}
	g := ws.Graph()

	out := graphOutput{TotalNodes: g.NodeCount(), TotalEdges: g.EdgeCount()}
	order, err := g.InterfaceOrder()
	if err != nil {
		if !errors.Is(err, dag.ErrCycle) {
			return err
		}
		out.Cycle = err.Error()
	}
	out.RegistryOrder = nonNil(order)

	for _, n := range g.GetAllNodes() {
		gn := graphNode{ID: n.ID, Kind: string(n.Kind), Lookup: n.Lookup, UsedBy: g.GetChildren(n.ID)}
		for _, e := range g.GetEdgesInto(n.ID) {
			gn.Upstream = append(gn.Upstream, graphEdge{Source: e.Source, Label: string(e.Label)})
		}
		out.Nodes = append(out.Nodes, gn)
	}

	r := NewRendererOnly(cmd)
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		graphMarkdown(r, out)
	default:
		graphText(r, out)
	}
	return nil
}

func graphText(r *output.Renderer, out graphOutput) {
	styles := r.Styles()

	r.Header(1, "Workspace Graph")
	for _, n := range out.Nodes {
		r.Printf("  %s %s\n", r.ID(n.ID), styles.Muted.Render(nodeKind(n)))
		for _, e := range n.Upstream {
			r.Printf("    %s %s\n", styles.Muted.Render("<- "+e.Label+":"), e.Source)
		}
	}
	r.Println("")

	r.Println(styles.Header2.Render("Registry order"))
	r.Printf("  %s\n", strings.Join(out.RegistryOrder, " -> "))
	if out.Cycle != "" {
		r.Warning(out.Cycle)
	}
	r.Println("")
	r.Println(styles.Muted.Render(fmt.Sprintf("Total: %d nodes, %d edges", out.TotalNodes, out.TotalEdges)))
}

func graphMarkdown(r *output.Renderer, out graphOutput) {
	r.Println(output.FormatHeader(1, "Workspace Graph"))
	r.Println("")
	for _, n := range out.Nodes {
		r.Printf("- %s %s\n", n.ID, nodeKind(n))
		for _, e := range n.Upstream {
			r.Printf("  - %s from %s\n", e.Label, e.Source)
		}
	}
	r.Println("")

	r.Println(output.FormatHeader(2, "Summary"))
	r.Println(output.FormatKeyValue("Registry Order", strings.Join(out.RegistryOrder, ", ")))
	if out.Cycle != "" {
		r.Println(output.FormatKeyValue("Cycle", out.Cycle))
	}
	r.Println(output.FormatKeyValue("Total Nodes", fmt.Sprintf("%d", out.TotalNodes)))
	r.Println(output.FormatKeyValue("Total Edges", fmt.Sprintf("%d", out.TotalEdges)))
}

func nodeKind(n graphNode) string {
	if n.Kind == "" {
		return "(plain)"
	}
	if n.Lookup != "" {
		return fmt.Sprintf("(%s %s)", n.Kind, n.Lookup)
	}
	return "(" + n.Kind + ")"
}
