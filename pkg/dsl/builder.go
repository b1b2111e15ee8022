package dsl

import (
	"fmt"

	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
)

// Builder manages the graph construction. Nodes keep insertion order and
// edges keep call order, so the built graph executes deterministically.
type Builder struct {
	nodes map[string]*NodeBuilder
	order []string
	edges []domain.Edge
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID: id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Connect adds a directed edge between two nodes.
func (b *Builder) Connect(source, target string) *Builder {
	b.edges = append(b.edges, domain.Edge{Source: source, Target: target})
	return b
}

// Build compiles and validates the graph.
func (b *Builder) Build() (*domain.Graph, error) {
	nodes := make([]domain.Node, 0, len(b.order))
	for _, id := range b.order {
		nodes = append(nodes, b.nodes[id].node)
	}

	g := &domain.Graph{Nodes: nodes, Edges: b.edges}
	if err := validator.ValidateGraph(g); err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return g, nil
}
