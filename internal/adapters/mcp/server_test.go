package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	created  int
	finals   map[string]domain.StatePatch
	events   []domain.Event
	lastSess string
	lastRun  *domain.Graph
}

func (f *fakeEngine) CreateSession(ctx context.Context) (string, error) {
	f.created++
	return "sess-1", nil
}

func (f *fakeEngine) Run(ctx context.Context, sessionID string, g *domain.Graph) (map[string]domain.StatePatch, error) {
	f.lastSess = sessionID
	f.lastRun = g
	return f.finals, nil
}

func (f *fakeEngine) Drain(ctx context.Context, sessionID string, max int) ([]domain.Event, error) {
	batch := f.events
	f.events = nil
	return batch, nil
}

func newTestServer(t *testing.T) (*Server, *fakeEngine) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, tools.RegisterBuiltins(reg))

	engine := &fakeEngine{
		finals: map[string]domain.StatePatch{"out": {Status: domain.StatusSkipped}},
		events: []domain.Event{domain.NewDone(domain.RunMetrics{Nodes: 2, Visited: 2})},
	}
	return NewServer(engine, reg), engine
}

func graphJSON(t *testing.T) string {
	t.Helper()
	g := domain.Graph{
		Nodes: []domain.Node{
			{ID: "in", Kind: domain.KindInput, Params: map[string]any{"query": "hi"}},
			{ID: "out", Kind: domain.KindOutput},
		},
		Edges: []domain.Edge{{Source: "in", Target: "out"}},
	}
	raw, err := json.Marshal(g)
	require.NoError(t, err)
	return string(raw)
}

func TestHandleRunGraph_CreatesSessionAndRuns(t *testing.T) {
	s, engine := newTestServer(t)

	resp, err := s.handleRunGraph(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"graph": graphJSON(t),
	})
	require.NoError(t, err)

	assert.Equal(t, "sess-1", resp.SessionID)
	assert.Equal(t, 1, engine.created)
	require.NotNil(t, engine.lastRun)
	assert.Len(t, engine.lastRun.Nodes, 2)

	require.Contains(t, resp.FinalStates, "out")
	assert.Equal(t, domain.StatusSkipped, resp.FinalStates["out"].Status)

	require.Len(t, resp.Events, 1)
	assert.Equal(t, domain.EventDone, resp.Events[0].Type)
}

func TestHandleRunGraph_UsesProvidedSession(t *testing.T) {
	s, engine := newTestServer(t)

	resp, err := s.handleRunGraph(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"graph":      graphJSON(t),
		"session_id": "mine",
	})
	require.NoError(t, err)

	assert.Equal(t, "mine", resp.SessionID)
	assert.Equal(t, "mine", engine.lastSess)
	assert.Zero(t, engine.created)
}

func TestHandleRunGraph_RejectsMissingGraph(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleRunGraph(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graph is required")
}

func TestHandleRunGraph_RejectsMalformedGraph(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleRunGraph(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"graph": "{not json",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid graph")
}

func TestHandleRunGraph_RejectsDuplicateNodeIDs(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleRunGraph(context.Background(), mcp.CallToolRequest{}, map[string]interface{}{
		"graph": `{"nodes":[{"id":"a","kind":"plain"},{"id":"a","kind":"plain"}],"edges":[]}`,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate node id")
}
