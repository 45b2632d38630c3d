package core

import (
	"fmt"
	"sort"
	"sync"

	"github.com/liquid-forge/forge-architecture/internal/types"
)

// Graph is a directed dependency graph. An edge from A to B means A
// depends on B. Node IDs are "module:<name>@<version>" or
// "component:<name>@<version>".
type Graph struct {
	mutex sync.RWMutex
	nodes map[string]*node
	edges []types.GraphEdge
}

type node struct {
	id         string
	kind       types.NodeKind
	deps       map[string]*node
	dependents map[string]*node
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// ModuleNodeID returns the node ID of a module version.
func ModuleNodeID(name string, version string) string {
	return fmt.Sprintf("%s:%s@%s", types.NodeModule, name, version)
}

// ComponentNodeID returns the node ID of a component version.
func ComponentNodeID(name string, version string) string {
	return fmt.Sprintf("%s:%s@%s", types.NodeComponent, name, version)
}

// AddNode adds a node. Adding an existing ID is a no-op.
func (g *Graph) AddNode(id string, kind types.NodeKind) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{
		id:         id,
		kind:       kind,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
}

// AddEdge records that from depends on to. Both nodes must exist and
// self-edges are rejected. Repeating an edge with the same kind keeps the
// first label.
func (g *Graph) AddEdge(edge types.GraphEdge) error {
	if edge.From == edge.To {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", edge.From, edge.To)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[edge.From]
	if !ok {
		return fmt.Errorf("source node not found: %s", edge.From)
	}
	toNode, ok := g.nodes[edge.To]
	if !ok {
		return fmt.Errorf("destination node not found: %s", edge.To)
	}
	for _, existing := range g.edges {
		if existing.From == edge.From && existing.To == edge.To && existing.Kind == edge.Kind {
			return nil
		}
	}
	fromNode.deps[edge.To] = toNode
	toNode.dependents[edge.From] = fromNode
	g.edges = append(g.edges, edge)
	return nil
}

// Nodes returns every node ID, sorted.
func (g *Graph) Nodes() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return sortedNodeIDs(g.nodes)
}

// Edges returns every edge sorted by from, to, kind.
func (g *Graph) Edges() []types.GraphEdge {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := append([]types.GraphEdge(nil), g.edges...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].To != out[j].To {
			return out[i].To < out[j].To
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Dependencies returns the sorted IDs the node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedNodeIDs(n.deps), nil
}

// Dependents returns the sorted IDs depending on the node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return sortedNodeIDs(n.dependents), nil
}

// DetectCycles returns every elementary cycle found by a depth-first
// search, each as a path that starts and ends on the same node. Traversal
// order is sorted so results are stable.
func (g *Graph) DetectCycles() [][]string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	permanent := make(map[string]bool)
	temporary := make(map[string]bool)
	var stack []string
	var cycles [][]string

	var visit func(n *node)
	visit = func(n *node) {
		if permanent[n.id] {
			return
		}
		if temporary[n.id] {
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i] == n.id {
					cycle := append([]string(nil), stack[i:]...)
					cycles = append(cycles, append(cycle, n.id))
					break
				}
			}
			return
		}
		temporary[n.id] = true
		stack = append(stack, n.id)
		for _, depID := range sortedNodeIDs(n.deps) {
			visit(n.deps[depID])
		}
		stack = stack[:len(stack)-1]
		delete(temporary, n.id)
		permanent[n.id] = true
	}

	for _, id := range sortedNodeIDs(g.nodes) {
		visit(g.nodes[id])
	}
	return cycles
}

// TopologicalOrder lists nodes so that every node comes after the nodes
// it depends on. Ties are broken by ID. It fails when the graph has a
// cycle.
func (g *Graph) TopologicalOrder() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	remaining := make(map[string]int, len(g.nodes))
	var ready []string
	for id, n := range g.nodes {
		remaining[id] = len(n.deps)
		if len(n.deps) == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		var released []string
		for dependentID := range g.nodes[id].dependents {
			remaining[dependentID]--
			if remaining[dependentID] == 0 {
				released = append(released, dependentID)
			}
		}
		if len(released) > 0 {
			ready = append(ready, released...)
			sort.Strings(ready)
		}
	}
	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("graph has a cycle: ordered %d of %d nodes", len(order), len(g.nodes))
	}
	return order, nil
}

// Report snapshots the graph for output.
func (g *Graph) Report() types.GraphReport {
	report := types.GraphReport{
		Nodes:  g.Nodes(),
		Edges:  g.Edges(),
		Cycles: g.DetectCycles(),
	}
	if len(report.Cycles) == 0 {
		order, err := g.TopologicalOrder()
		if err == nil {
			report.Order = order
		}
	}
	return report
}

func sortedNodeIDs(nodes map[string]*node) []string {
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
