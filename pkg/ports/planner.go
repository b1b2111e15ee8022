package ports

import "context"

// Role classifies a transcript message for the external collaborator.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the transcript handed to the planner, assembled
// by the dispatcher from upstream node states.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// PlannerJob carries everything the external step needs. All of the job's
// real output arrives later as state_patch events under NodeID on the
// session's event channel.
type PlannerJob struct {
	SessionID string    `json:"sessionId"`
	NodeID    string    `json:"nodeId"`
	Messages  []Message `json:"messages"`
	// Tools restricts which registered tools the collaborator may call;
	// empty means all registered tools.
	Tools []string `json:"tools,omitempty"`
}

// Planner bridges llm-kind nodes to the out-of-process streaming
// collaborator. Launch fires the request and returns without awaiting
// completion; the implementation owns every subsequent event for the node,
// terminal done or error included, and must never let a failure escape the
// launched task. A Launch error means the job could not even be started.
type Planner interface {
	Launch(ctx context.Context, job PlannerJob) error
}
