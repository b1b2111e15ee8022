// Package scheduler computes deterministic topological visit orders for
// submitted graphs. It defends against cycles: nodes stuck in or behind a
// cycle are reported as unreachable data, never as an error, so the
// acyclic portion of a graph still executes.
package scheduler

import "github.com/aretw0/arbor/pkg/domain"

// ComputeOrder derives a visiting order for g via Kahn's algorithm: an
// in-degree count is built per node, a FIFO frontier is seeded with all
// zero-in-degree nodes in declaration order, and a successor is admitted
// exactly when its in-degree reaches zero. Ties break by discovery order,
// so the result is reproducible for a fixed graph encoding.
//
// Nodes never admitted sit in, or depend transitively on, a cycle; they
// are returned as unreachable in declaration order. Edges referencing
// unknown node ids are ignored.
func ComputeOrder(g *domain.Graph) (visitOrder []string, unreachable []string) {
	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}

	indegree := make(map[string]int, len(g.Nodes))
	successors := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		if !known[e.Source] || !known[e.Target] {
			continue
		}
		indegree[e.Target]++
		successors[e.Source] = append(successors[e.Source], e.Target)
	}

	frontier := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if indegree[n.ID] == 0 {
			frontier = append(frontier, n.ID)
		}
	}

	visitOrder = make([]string, 0, len(g.Nodes))
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		visitOrder = append(visitOrder, id)

		for _, succ := range successors[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				frontier = append(frontier, succ)
			}
		}
	}

	if len(visitOrder) < len(g.Nodes) {
		admitted := make(map[string]bool, len(visitOrder))
		for _, id := range visitOrder {
			admitted[id] = true
		}
		for _, n := range g.Nodes {
			if !admitted[n.ID] {
				unreachable = append(unreachable, n.ID)
			}
		}
	}

	return visitOrder, unreachable
}
