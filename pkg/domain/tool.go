package domain

// ToolCall is a tool invocation requested by the external collaborator.
// Compatible with OpenAI/MCP tool call shapes.
type ToolCall struct {
	ID   string         `json:"id,omitempty" mapstructure:"id"` // collaborator-assigned call id
	Name string         `json:"name" mapstructure:"name"`
	Args map[string]any `json:"args,omitempty" mapstructure:"args"`
}

// ToolResult is the resolved outcome of one ToolCall. An unknown or failing
// tool produces an error-tagged result, never a crash of the run.
type ToolResult struct {
	ID      string `json:"id,omitempty" mapstructure:"id"` // matches ToolCall.ID
	Name    string `json:"name" mapstructure:"name"`
	Output  any    `json:"output,omitempty" mapstructure:"output"`
	IsError bool   `json:"is_error,omitempty" mapstructure:"is_error"`
	Error   string `json:"error,omitempty" mapstructure:"error"`
}
