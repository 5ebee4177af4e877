package component

import "sort"

// DependencyGraph maps every component id to the ids of the components its
// template uses.
func (p *Project) DependencyGraph() map[string][]string {
	graph := make(map[string][]string, len(p.components))
	for id, c := range p.components {
		seen := make(map[string]bool)
		for _, usedName := range c.UsedComponents() {
			if decl, ok := c.registered[usedName]; ok {
				seen[decl.ID()] = true
			}
		}
		graph[id] = sortedKeys(seen)
	}
	return graph
}

// GetDependents returns the components whose templates use the given component.
func (p *Project) GetDependents(id string) []string {
	var dependents []string
	for from, deps := range p.DependencyGraph() {
		for _, dep := range deps {
			if dep == id {
				dependents = append(dependents, from)
				break
			}
		}
	}
	sort.Strings(dependents)
	return dependents
}

// DetectCircularDependencies returns every cycle found in the dependency graph, each
// closed by repeating its first element.
func (p *Project) DetectCircularDependencies() [][]string {
	var cycles [][]string
	graph := p.DependencyGraph()

	ids := make([]string, 0, len(graph))
	for id := range graph {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	for _, id := range ids {
		if !visited[id] {
			if cycle := detectCycleDFS(id, graph, visited, recStack, nil); cycle != nil {
				cycles = append(cycles, cycle)
			}
		}
	}

	return cycles
}

func detectCycleDFS(id string, graph map[string][]string, visited, recStack map[string]bool, path []string) []string {
	visited[id] = true
	recStack[id] = true
	path = append(path, id)

	for _, dep := range graph[id] {
		if !visited[dep] {
			if cycle := detectCycleDFS(dep, graph, visited, recStack, path); cycle != nil {
				return cycle
			}
		} else if recStack[dep] {
			for i, p := range path {
				if p == dep {
					cycle := make([]string, len(path)-i+1)
					copy(cycle, path[i:])
					cycle[len(cycle)-1] = dep
					return cycle
				}
			}
		}
	}

	recStack[id] = false
	return nil
}
