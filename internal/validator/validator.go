// Package validator checks submitted graphs for structural problems
// before they reach the scheduler.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// ValidateGraph checks the structural integrity of a graph payload:
// presence of nodes, non-blank unique ids, and edges with both endpoints
// named. Edges pointing at nodes the graph does not declare are left
// alone; the scheduler ignores them.
func ValidateGraph(g *domain.Graph) error {
	if g == nil || len(g.Nodes) == 0 {
		return fmt.Errorf("graph has no nodes")
	}

	var errors []string

	seen := make(map[string]bool, len(g.Nodes))
	for i, node := range g.Nodes {
		if strings.TrimSpace(node.ID) == "" {
			errors = append(errors, fmt.Sprintf("node %d has a blank id", i))
			continue
		}
		if seen[node.ID] {
			errors = append(errors, fmt.Sprintf("duplicate node id: '%s'", node.ID))
		}
		seen[node.ID] = true
	}

	for i, edge := range g.Edges {
		if strings.TrimSpace(edge.Source) == "" || strings.TrimSpace(edge.Target) == "" {
			errors = append(errors, fmt.Sprintf("edge %d is missing an endpoint", i))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}

	return nil
}
