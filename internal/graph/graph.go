// Package graph flattens a resolved addon tree into a dependency graph that the
// lifecycle engine can install from.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bayleafwalker/kiln/internal/addons"
	"github.com/bayleafwalker/kiln/internal/resolver"
)

type (
	// CycleError indicates that the graph contains a cycle, preventing an install order.
	CycleError struct {
		// Cycle contains the nodes left with unresolved dependencies.
		Cycle []addons.ID
	}

	// Edge is a dependency from one addon to another.
	Edge struct {
		From     addons.ID
		To       addons.ID
		Optional bool
		Exported bool
	}

	// DependencyGraph holds one node per addon coordinate. Edges point from a dependent
	// to its dependency.
	DependencyGraph struct {
		nodes []addons.ID
		// out maps each node to its dependencies.
		out     map[addons.ID][]Edge
		nodeSet map[addons.ID]bool
	}
)

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Cycle))
	for _, id := range e.Cycle {
		parts = append(parts, id.String())
	}
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(parts, " -> "))
}

// Is makes a graph cycle match resolver.ErrCycle.
func (e *CycleError) Is(target error) bool {
	return target == resolver.ErrCycle
}

// New creates an empty DependencyGraph.
func New() *DependencyGraph {
	return &DependencyGraph{
		out:     make(map[addons.ID][]Edge),
		nodeSet: make(map[addons.ID]bool),
	}
}

// FromInfo builds the graph of every addon reachable from root.
func FromInfo(root *resolver.Info) *DependencyGraph {
	g := New()
	g.AddInfo(root)
	return g
}

// AddInfo adds every addon reachable from root, and their edges, to g.
func (g *DependencyGraph) AddInfo(root *resolver.Info) {
	if root == nil {
		return
	}
	_ = root.Walk(func(n *resolver.Info) error {
		g.AddNode(n.ID())
		for _, e := range n.Required() {
			g.AddEdge(Edge{From: n.ID(), To: e.Info.ID(), Exported: e.Exported})
		}
		for _, e := range n.Optional() {
			g.AddEdge(Edge{From: n.ID(), To: e.Info.ID(), Optional: true, Exported: e.Exported})
		}
		return nil
	})
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *DependencyGraph) AddNode(id addons.ID) {
	if g.nodeSet[id] {
		return
	}
	g.nodeSet[id] = true
	g.nodes = append(g.nodes, id)
}

// AddEdge adds a dependency edge. Both nodes are implicitly added.
func (g *DependencyGraph) AddEdge(e Edge) {
	g.AddNode(e.From)
	g.AddNode(e.To)
	g.out[e.From] = append(g.out[e.From], e)
}

// Nodes returns the coordinates in insertion order.
func (g *DependencyGraph) Nodes() []addons.ID {
	return append([]addons.ID(nil), g.nodes...)
}

// Edges returns the dependencies of id.
func (g *DependencyGraph) Edges(id addons.ID) []Edge {
	return append([]Edge(nil), g.out[id]...)
}

// Len returns the number of nodes.
func (g *DependencyGraph) Len() int {
	return len(g.nodes)
}

// InstallOrder returns the nodes with every dependency before its dependents, using
// Kahn's algorithm. Optional dependencies are ordered too when present in the graph.
// Nodes that become ready together are emitted sorted by coordinate.
func (g *DependencyGraph) InstallOrder() ([]addons.ID, error) {
	if len(g.nodes) == 0 {
		return nil, nil
	}

	// pending counts the dependencies each node still waits for; dependents is the
	// reverse adjacency.
	pending := make(map[addons.ID]int, len(g.nodes))
	dependents := make(map[addons.ID][]addons.ID, len(g.nodes))
	for _, n := range g.nodes {
		seen := make(map[addons.ID]bool)
		for _, e := range g.out[n] {
			if seen[e.To] {
				continue
			}
			seen[e.To] = true
			pending[n]++
			dependents[e.To] = append(dependents[e.To], n)
		}
	}

	var ready []addons.ID
	for _, n := range g.nodes {
		if pending[n] == 0 {
			ready = append(ready, n)
		}
	}
	sortIDs(ready)

	result := make([]addons.ID, 0, len(g.nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		result = append(result, n)

		var next []addons.ID
		for _, d := range dependents[n] {
			pending[d]--
			if pending[d] == 0 {
				next = append(next, d)
			}
		}
		if len(next) > 0 {
			ready = append(ready, next...)
			sortIDs(ready)
		}
	}

	if len(result) != len(g.nodes) {
		var cycle []addons.ID
		for _, n := range g.nodes {
			if pending[n] > 0 {
				cycle = append(cycle, n)
			}
		}
		return nil, &CycleError{Cycle: cycle}
	}
	return result, nil
}

// Exported returns the coordinates whose exports are visible to id: its direct
// dependencies plus, recursively, the exported dependencies of those. The result is
// sorted and excludes id itself.
func (g *DependencyGraph) Exported(id addons.ID) []addons.ID {
	visible := make(map[addons.ID]bool)
	var reexports func(n addons.ID)
	reexports = func(n addons.ID) {
		for _, e := range g.out[n] {
			if !e.Exported || visible[e.To] {
				continue
			}
			visible[e.To] = true
			reexports(e.To)
		}
	}
	for _, e := range g.out[id] {
		if visible[e.To] {
			continue
		}
		visible[e.To] = true
		reexports(e.To)
	}
	delete(visible, id)

	out := make([]addons.ID, 0, len(visible))
	for v := range visible {
		out = append(out, v)
	}
	sortIDs(out)
	return out
}

func sortIDs(ids []addons.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}
