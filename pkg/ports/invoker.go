package ports

import (
	"context"
	"encoding/json"
)

// ToolInvoker is the minimal registry surface the dispatcher needs.
type ToolInvoker interface {
	// Invoke runs the named handler with params. An unregistered name
	// yields *domain.UnknownToolError; handler failures yield
	// *domain.ToolExecutionError. Handlers are pure and retryable.
	Invoke(ctx context.Context, name string, params map[string]any) (any, error)
}

// ToolDescriptor describes one registered tool for export to an external
// collaborator. Parameters is the JSON Schema of the tool's params.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolSource extends ToolInvoker with the introspection the planner needs
// to expose tool schemas to the collaborator.
type ToolSource interface {
	ToolInvoker

	// Describe returns descriptors for the named tools, or for every
	// registered tool when names is empty. Unknown names are dropped.
	Describe(names []string) []ToolDescriptor
}
