// Package dag provides the labeled workspace graph. Edges point from an
// upstream node (a schema, warm query, data connection or child interface) to
// the interface that consumes it. It supports edge queries by target, cycle
// detection, topological ordering and downstream change propagation.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/leapstack-labs/leapview/pkg/core"
)

// ErrCycle is returned when an ordering is requested over a cyclic graph.
var ErrCycle = errors.New("cycle detected")

// Node represents a node in the graph.
type Node struct {
	// ID is the unique node identifier.
	ID string
	// Kind is the capability the node provides, empty for plain nodes.
	Kind core.CapabilityKind
	// Lookup is the stable key upstream references use.
	Lookup string
	// Data holds arbitrary node data.
	Data any
}

// Graph is a directed graph with labeled edges.
type Graph struct {
	nodes    map[string]*Node
	outgoing map[string][]core.Edge // source -> edges
	incoming map[string][]core.Edge // target -> edges
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]core.Edge),
		incoming: make(map[string][]core.Edge),
	}
}

// Clear removes all nodes and edges from the graph.
func (g *Graph) Clear() {
	g.nodes = make(map[string]*Node)
	g.outgoing = make(map[string][]core.Edge)
	g.incoming = make(map[string][]core.Edge)
}

// AddNode adds a node to the graph, replacing the data of an existing one.
func (g *Graph) AddNode(n Node) {
	if existing, ok := g.nodes[n.ID]; ok {
		*existing = n
		return
	}
	node := n
	g.nodes[n.ID] = &node
}

// AddEdge adds a labeled edge from source to target.
func (g *Graph) AddEdge(source, target string, label core.EdgeLabel) error {
	if _, ok := g.nodes[source]; !ok {
		return fmt.Errorf("source node %q does not exist", source)
	}
	if _, ok := g.nodes[target]; !ok {
		return fmt.Errorf("target node %q does not exist", target)
	}
	if source == target {
		return fmt.Errorf("self-loop detected: %s", source)
	}
	if _, ok := label.Kind(); !ok {
		return fmt.Errorf("unknown edge label %q", label)
	}

	e := core.Edge{Source: source, Target: target, Label: label}
	if slices.Contains(g.outgoing[source], e) {
		return nil
	}
	g.outgoing[source] = append(g.outgoing[source], e)
	g.incoming[target] = append(g.incoming[target], e)
	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// FindByLookup returns the node of the given kind with the given lookup.
func (g *Graph) FindByLookup(kind core.CapabilityKind, lookup string) (*Node, bool) {
	for _, n := range g.nodes {
		if n.Kind == kind && n.Lookup == lookup {
			return n, true
		}
	}
	return nil, false
}

// GetEdgesInto returns the edges pointing at a node, ordered by source.
func (g *Graph) GetEdgesInto(nodeID string) []core.Edge {
	edges := slices.Clone(g.incoming[nodeID])
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Label < edges[j].Label
	})
	return edges
}

// GetParents returns the sources of the edges pointing at a node.
func (g *Graph) GetParents(id string) []string {
	return g.sources(g.incoming[id], nil)
}

// GetChildren returns the targets of the edges leaving a node.
func (g *Graph) GetChildren(id string) []string {
	out := make([]string, 0, len(g.outgoing[id]))
	for _, e := range g.outgoing[id] {
		if !slices.Contains(out, e.Target) {
			out = append(out, e.Target)
		}
	}
	sort.Strings(out)
	return out
}

func (g *Graph) sources(edges []core.Edge, keep func(core.Edge) bool) []string {
	out := make([]string, 0, len(edges))
	for _, e := range edges {
		if keep != nil && !keep(e) {
			continue
		}
		if !slices.Contains(out, e.Source) {
			out = append(out, e.Source)
		}
	}
	sort.Strings(out)
	return out
}

// GetAllNodes returns all nodes sorted by ID.
func (g *Graph) GetAllNodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// NodesOfKind returns the nodes of one capability kind sorted by ID.
func (g *Graph) NodesOfKind(kind core.CapabilityKind) []*Node {
	var out []*Node
	for _, n := range g.GetAllNodes() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, edges := range g.outgoing {
		count += len(edges)
	}
	return count
}

// HasCycle reports whether the edges accepted by keep form a cycle, along
// with the cycle path. A nil keep accepts every edge.
func (g *Graph) HasCycle(keep func(core.Edge) bool) (bool, []string) {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true

		for _, e := range g.outgoing[id] {
			if keep != nil && !keep(e) {
				continue
			}
			next := e.Target
			if !visited[next] {
				path[next] = id
				if dfs(next) {
					return true
				}
			} else if onStack[next] {
				cyclePath = []string{next}
				for curr := id; curr != next; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{next}, cyclePath...)
				return true
			}
		}

		onStack[id] = false
		return false
	}

	for _, n := range g.GetAllNodes() {
		if !visited[n.ID] && dfs(n.ID) {
			return true, cyclePath
		}
	}
	return false, nil
}

// TopologicalSort returns the given nodes with every source before its
// targets, considering only edges accepted by keep. Ties break by ID.
func (g *Graph) TopologicalSort(ids []string, keep func(core.Edge) bool) ([]string, error) {
	if hasCycle, cyclePath := g.HasCycle(keep); hasCycle {
		return nil, fmt.Errorf("%w: %v", ErrCycle, cyclePath)
	}

	include := make(map[string]bool, len(ids))
	for _, id := range ids {
		include[id] = true
	}

	visited := make(map[string]bool)
	var result []string

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, parent := range g.sources(g.incoming[id], keep) {
			visit(parent)
		}
		if include[id] {
			result = append(result, id)
		}
	}

	sorted := slices.Clone(ids)
	sort.Strings(sorted)
	for _, id := range sorted {
		if _, ok := g.nodes[id]; ok {
			visit(id)
		}
	}
	return result, nil
}

// InterfaceOrder returns every interface node with child interfaces before
// the interfaces that embed them. On a cycle it falls back to lexical order
// and returns an error wrapping ErrCycle alongside the order.
func (g *Graph) InterfaceOrder() ([]string, error) {
	var ids []string
	for _, n := range g.NodesOfKind(core.KindInterface) {
		ids = append(ids, n.ID)
	}
	order, err := g.TopologicalSort(ids, childEdges)
	if err != nil {
		return ids, err
	}
	return order, nil
}

func childEdges(e core.Edge) bool {
	return e.Label == core.EdgeChild
}

// GetAffectedNodes returns the changed nodes and everything downstream of them.
func (g *Graph) GetAffectedNodes(changedIDs []string) []string {
	affected := make(map[string]bool)

	var mark func(id string)
	mark = func(id string) {
		if affected[id] {
			return
		}
		affected[id] = true
		for _, e := range g.outgoing[id] {
			mark(e.Target)
		}
	}

	for _, id := range changedIDs {
		if _, ok := g.nodes[id]; ok {
			mark(id)
		}
	}

	result := make([]string, 0, len(affected))
	for id := range affected {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// GetUpstreamNodes returns every node a node depends on, directly or not.
func (g *Graph) GetUpstreamNodes(id string) []string {
	upstream := make(map[string]bool)

	var mark func(nodeID string)
	mark = func(nodeID string) {
		for _, e := range g.incoming[nodeID] {
			if !upstream[e.Source] {
				upstream[e.Source] = true
				mark(e.Source)
			}
		}
	}
	mark(id)

	result := make([]string, 0, len(upstream))
	for nodeID := range upstream {
		result = append(result, nodeID)
	}
	sort.Strings(result)
	return result
}
