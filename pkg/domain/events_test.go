package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Remote-backed channels carry events as JSON, so payloads come back as
// generic maps. Patch and Metrics must decode both shapes.
func TestEventPatchSurvivesJSONRoundTrip(t *testing.T) {
	ev := NewStatePatch("tool-1", StatePatch{
		Status: StatusDone,
		Tool:   "calc",
		Result: map[string]any{"value": 14},
	})

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))

	patch, err := decoded.Patch()
	require.NoError(t, err)
	assert.Equal(t, StatusDone, patch.Status)
	assert.Equal(t, "calc", patch.Tool)
	assert.Equal(t, "tool-1", decoded.Node)
}

func TestEventPatchDirect(t *testing.T) {
	ev := NewStatePatch("n1", StatePatch{Status: StatusRunning, Tool: "weather"})

	patch, err := ev.Patch()
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, patch.Status)
	assert.Equal(t, "weather", patch.Tool)
}

func TestEventPatchRejectsWrongKind(t *testing.T) {
	ev := NewNodeEnter("n1", "Node One")

	_, err := ev.Patch()
	assert.Error(t, err)
}

func TestEventMetricsRoundTrip(t *testing.T) {
	ev := NewDone(RunMetrics{
		Nodes:       6,
		Visited:     6,
		Unreachable: []string{"x", "y"},
		ElapsedMS:   120,
	})
	assert.Empty(t, ev.Node, "done is a session-level event")

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))

	m, err := decoded.Metrics()
	require.NoError(t, err)
	assert.Equal(t, 6, m.Nodes)
	assert.Equal(t, []string{"x", "y"}, m.Unreachable)
	assert.EqualValues(t, 120, m.ElapsedMS)
}

func TestNodeDisplayName(t *testing.T) {
	assert.Equal(t, "Planner", Node{ID: "n1", Label: "Planner"}.DisplayName())
	assert.Equal(t, "n1", Node{ID: "n1"}.DisplayName())
}

func TestGraphEdgeHelpers(t *testing.T) {
	g := &Graph{
		Nodes: []Node{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		Edges: []Edge{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "c"},
			{Source: "b", Target: "c"},
		},
	}

	in := g.Incoming("c")
	require.Len(t, in, 2)
	assert.Equal(t, "a", in[0].Source, "declaration order preserved")
	assert.Equal(t, "b", in[1].Source)

	out := g.Outgoing("a")
	require.Len(t, out, 2)
	assert.Equal(t, "b", out[0].Target)

	_, ok := g.NodeByID("missing")
	assert.False(t, ok)
}
