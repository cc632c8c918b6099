package skills

import "fmt"

// dependencyGraph is an index-based adjacency list over skill IDs, used
// to validate the `requires` relation at registration time and to compute
// the dependency closure during selection. Grounded on the orchestration
// engine's WorkflowDAG: a DFS-with-visit-set cycle check rather than a
// pointer graph, generalized from "workflow steps" to "skill
// dependencies".
type dependencyGraph struct {
	requires map[string][]string // skillID -> IDs it requires
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{requires: map[string][]string{}}
}

func (g *dependencyGraph) add(id string, requires []string) {
	g.requires[id] = requires
}

// detectCycle runs a depth-first traversal from every node, using a
// recursion-stack set to catch cycles anywhere in the graph (not just
// self-references, which registration rejects separately and cheaply).
func (g *dependencyGraph) detectCycle() (cyclePath []string, found bool) {
	visited := map[string]bool{}
	recStack := map[string]bool{}

	var path []string
	var visit func(id string) bool
	visit = func(id string) bool {
		visited[id] = true
		recStack[id] = true
		path = append(path, id)

		for _, dep := range g.requires[id] {
			if recStack[dep] {
				path = append(path, dep)
				return true
			}
			if !visited[dep] {
				if visit(dep) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		recStack[id] = false
		return false
	}

	for id := range g.requires {
		if visited[id] {
			continue
		}
		path = nil
		if visit(id) {
			return path, true
		}
	}
	return nil, false
}

// closure returns the dependency closure of id in a depth-first,
// requirements-before-requirer order (a topological order restricted to
// id's own subgraph), suitable for direct inclusion in a selection.
func (g *dependencyGraph) closure(id string) []string {
	visited := map[string]bool{}
	var order []string

	var visit func(string)
	visit = func(cur string) {
		if visited[cur] {
			return
		}
		visited[cur] = true
		for _, dep := range g.requires[cur] {
			visit(dep)
		}
		order = append(order, cur)
	}
	visit(id)
	return order
}

// validateAcyclic is invoked at registration time; it returns an error
// naming the offending cycle so the caller can reject the registration
// outright, per spec §4.2 "Registration validation".
func (g *dependencyGraph) validateAcyclic() error {
	if path, found := g.detectCycle(); found {
		return fmt.Errorf("dependency cycle detected: %v", path)
	}
	return nil
}
