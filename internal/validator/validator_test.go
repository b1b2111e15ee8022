package validator_test

import (
	"testing"

	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidateGraph(t *testing.T) {
	tests := []struct {
		name    string
		graph   *domain.Graph
		wantErr string
	}{
		{
			name:    "nil graph",
			graph:   nil,
			wantErr: "graph has no nodes",
		},
		{
			name:    "empty graph",
			graph:   &domain.Graph{},
			wantErr: "graph has no nodes",
		},
		{
			name: "valid single node",
			graph: &domain.Graph{
				Nodes: []domain.Node{{ID: "a", Kind: domain.KindInput}},
			},
		},
		{
			name: "blank node id",
			graph: &domain.Graph{
				Nodes: []domain.Node{{ID: "  ", Kind: domain.KindInput}},
			},
			wantErr: "blank id",
		},
		{
			name: "duplicate node id",
			graph: &domain.Graph{
				Nodes: []domain.Node{
					{ID: "a", Kind: domain.KindInput},
					{ID: "a", Kind: domain.KindOutput},
				},
			},
			wantErr: "duplicate node id: 'a'",
		},
		{
			name: "edge missing endpoint",
			graph: &domain.Graph{
				Nodes: []domain.Node{{ID: "a", Kind: domain.KindInput}},
				Edges: []domain.Edge{{Source: "a", Target: ""}},
			},
			wantErr: "missing an endpoint",
		},
		{
			name: "edge to undeclared node tolerated",
			graph: &domain.Graph{
				Nodes: []domain.Node{{ID: "a", Kind: domain.KindInput}},
				Edges: []domain.Edge{{Source: "a", Target: "phantom"}},
			},
		},
		{
			name: "multiple problems reported together",
			graph: &domain.Graph{
				Nodes: []domain.Node{
					{ID: "", Kind: domain.KindInput},
					{ID: "b", Kind: domain.KindLLM},
					{ID: "b", Kind: domain.KindLLM},
				},
				Edges: []domain.Edge{{Source: "", Target: "b"}},
			},
			wantErr: "found 3 errors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateGraph(tt.graph)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
