package domain

// NodeStatus is the per-node execution state. Transitions are monotonic
// forward; a node that reaches done or error never re-enters running.
type NodeStatus string

const (
	StatusPending     NodeStatus = "pending"
	StatusRunning     NodeStatus = "running"      // synchronous tool in flight
	StatusPlanning    NodeStatus = "planning"     // llm node handed to the planner
	StatusToolCalling NodeStatus = "tool_calling" // planner requested tool calls
	StatusToolResults NodeStatus = "tool_results" // tool calls resolved
	StatusGenerating  NodeStatus = "generating"   // streaming, no-tools path
	StatusAnswering   NodeStatus = "answering"    // streaming, post-tools path
	StatusDone        NodeStatus = "done"
	StatusError       NodeStatus = "error"
	StatusSkipped     NodeStatus = "skipped"

	// StatusStarted marks a fire-and-forget node in the dispatcher's
	// final-state map: the planner owns the node's remaining lifecycle, so
	// its true terminal state arrives on the event channel, not here. Never
	// emitted as an event status.
	StatusStarted NodeStatus = "started"
)

// Terminal reports whether no further transitions are possible.
func (s NodeStatus) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusSkipped
}

// transitions is the explicit state machine:
//
//	pending → running|planning → {tool_calling → tool_results} →
//	{generating|answering}* → done|error
//
// skipped is reachable only from pending; done and error are absorbing.
// Streaming statuses self-loop as partial text grows.
var transitions = map[NodeStatus][]NodeStatus{
	StatusPending:     {StatusRunning, StatusPlanning, StatusSkipped},
	StatusRunning:     {StatusDone, StatusError},
	StatusPlanning:    {StatusToolCalling, StatusGenerating, StatusAnswering, StatusDone, StatusError},
	StatusToolCalling: {StatusToolResults, StatusError},
	StatusToolResults: {StatusAnswering, StatusGenerating, StatusDone, StatusError},
	StatusGenerating:  {StatusGenerating, StatusDone, StatusError},
	StatusAnswering:   {StatusAnswering, StatusDone, StatusError},
}

// CanAdvance reports whether the machine allows moving from s to next.
func (s NodeStatus) CanAdvance(next NodeStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StatePatch is a mergeable partial-state object. Consumers key state by
// node id and merge successive patches; the last patch recorded for a node
// is its final state. Only fields relevant to the carried Status are set.
type StatePatch struct {
	Status NodeStatus `json:"status" mapstructure:"status"`

	// Tool names the handler for running-status patches on tool nodes.
	Tool string `json:"tool,omitempty" mapstructure:"tool"`
	// Result carries a successful tool node's output.
	Result any `json:"result,omitempty" mapstructure:"result"`
	// Error carries the failure message for error-status patches.
	Error string `json:"error,omitempty" mapstructure:"error"`

	// Query preserves an input node's user query in its recorded state.
	Query string `json:"query,omitempty" mapstructure:"query"`

	// Planner progress: requested calls, their results, the growing
	// partial buffer, and the final accumulated answer.
	Calls   []ToolCall   `json:"calls,omitempty" mapstructure:"calls"`
	Results []ToolResult `json:"results,omitempty" mapstructure:"results"`
	Partial string       `json:"partial,omitempty" mapstructure:"partial"`
	Answer  string       `json:"answer,omitempty" mapstructure:"answer"`
}
