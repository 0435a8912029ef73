package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// Cycle describes a dependency cycle found by static analysis.
// Registration rejects cycles atomically at runtime; finding them here
// lets authors fix the declarations before anything registers.
type Cycle struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
}

// FindCycles performs static cycle analysis on a compiled pipeline.
//
// The algorithm:
//  1. Build a name-level precedence graph from after/before edges and
//     phase membership
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or a self-loop as a cycle
//
// A DAG (no cycles) returns an empty list.
func FindCycles(p *Pipeline) []Cycle {
	graph := buildPrecedenceGraph(p)

	sccs := tarjanSCC(graph)

	var cycles []Cycle
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}

	return cycles
}

// precedenceGraph maps unit name → names that must run after it.
type precedenceGraph map[string][]string

// buildPrecedenceGraph constructs the name-level precedence graph.
//
// Edges point from predecessor to successor:
//   - system after X     → X → system
//   - system before Y    → system → Y
//   - system in phase P  → P → system
//   - phase after Q      → Q → phase
func buildPrecedenceGraph(p *Pipeline) precedenceGraph {
	graph := make(precedenceGraph)

	node := func(name string) {
		if graph[name] == nil {
			graph[name] = []string{}
		}
	}
	edge := func(pred, succ string) {
		node(pred)
		node(succ)
		graph[pred] = append(graph[pred], succ)
	}

	for _, ph := range p.Phases {
		node(ph.Name)
		if ph.After != "" {
			edge(ph.After, ph.Name)
		}
	}
	for _, sys := range p.Systems {
		node(sys.Name)
		if sys.Phase != "" {
			edge(sys.Phase, sys.Name)
		}
		for _, other := range sys.After {
			edge(other, sys.Name)
		}
		for _, other := range sys.Before {
			edge(sys.Name, other)
		}
	}

	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph precedenceGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of unit names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph precedenceGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is the root of an SCC when its lowlink never left it
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	// Visit nodes in sorted order so reported cycles are deterministic
	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// sccToCycle converts an SCC to a Cycle.
//
// For self-loops, the path is [name, name]. For multi-node cycles, the
// path shows one traversal through the SCC back to its start.
func sccToCycle(scc []string, graph precedenceGraph) Cycle {
	if len(scc) == 1 {
		name := scc[0]
		return Cycle{
			Path:    []string{name, name},
			Message: fmt.Sprintf("unit depends on itself: %s → %s", name, name),
		}
	}

	path := reconstructCyclePath(scc, graph)
	return Cycle{
		Path:    path,
		Message: fmt.Sprintf("dependency cycle: %s", strings.Join(path, " → ")),
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Starts at the first node, follows edges to other SCC members, and
// continues until it returns to the start node.
func reconstructCyclePath(scc []string, graph precedenceGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
