package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/blocksync/internal/blocks"
)

// NestingWarning reports a cycle in block type parent constraints.
//
// Cycles are usually intentional (a list item may contain a list that
// contains list items). They only matter when no member of the cycle can
// ever be placed, in which case Level is "error".
type NestingWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["core/a", "core/b", "core/a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "error" or "info"
}

// AnalyzeNesting performs static cycle analysis on parent constraints.
//
// It builds a graph from each type to the types it may be a direct child
// of, finds strongly connected components with Tarjan's algorithm, and
// reports every component of size > 1 or with a self-loop.
//
// A graph without cycles returns an empty list.
func AnalyzeNesting(types []*blocks.BlockType) []NestingWarning {
	graph := buildParentGraph(types)
	placeable := placeableTypes(types)

	var warnings []NestingWarning
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph, placeable))
		}
	}
	slices.SortFunc(warnings, func(a, b NestingWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// UnplaceableTypes returns, sorted, the types that can never appear in a
// document: every allowed parent chain ends at an unknown type or loops
// without reaching a type that may sit at the root.
func UnplaceableTypes(types []*blocks.BlockType) []string {
	placeable := placeableTypes(types)
	var out []string
	for _, bt := range types {
		if !placeable[bt.Name] {
			out = append(out, bt.Name)
		}
	}
	slices.Sort(out)
	return out
}

// parentGraph maps a type to the types it may be a direct child of.
type parentGraph map[string][]string

func buildParentGraph(types []*blocks.BlockType) parentGraph {
	graph := make(parentGraph, len(types))
	for _, bt := range types {
		// Sorted edges keep reconstructed paths stable
		parents := slices.Clone(bt.Parent)
		slices.Sort(parents)
		graph[bt.Name] = parents
	}
	return graph
}

// placeableTypes computes, by fixed point, which types can be placed:
// types without a parent constraint can sit at the root, and a type whose
// allowed parent is placeable is placeable too.
func placeableTypes(types []*blocks.BlockType) map[string]bool {
	placeable := make(map[string]bool, len(types))
	for changed := true; changed; {
		changed = false
		for _, bt := range types {
			if placeable[bt.Name] {
				continue
			}
			ok := bt.Parent == nil || slices.ContainsFunc(bt.Parent, func(p string) bool { return placeable[p] })
			if ok {
				placeable[bt.Name] = true
				changed = true
			}
		}
	}
	return placeable
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph parentGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph parentGraph) [][]string {
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
			if _, known := graph[w]; !known {
				// Unknown parents are reported elsewhere
				continue
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

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
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a NestingWarning.
func cycleSCCToWarning(scc []string, graph parentGraph, placeable map[string]bool) NestingWarning {
	level := "error"
	if slices.ContainsFunc(scc, func(name string) bool { return placeable[name] }) {
		level = "info"
	}

	if len(scc) == 1 {
		name := scc[0]
		return NestingWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-nesting block type: %s → %s", name, name),
			Level:   level,
		}
	}

	path := reconstructCyclePath(scc, graph)
	return NestingWarning{
		Path:    path,
		Message: fmt.Sprintf("Nesting cycle: %s", strings.Join(path, " → ")),
		Level:   level,
	}
}

// reconstructCyclePath builds a cycle path from an SCC by following edges
// from its first member until it returns there.
func reconstructCyclePath(scc []string, graph parentGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
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
