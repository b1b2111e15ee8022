package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the
// channel's backing store. Writes treat it as a silent no-op; reads surface
// it to the caller.
var ErrSessionNotFound = errors.New("session not found")

// ErrPlannerTimeout marks an external step that exceeded its bounded wait.
var ErrPlannerTimeout = errors.New("planner request timed out")

// UnknownToolError reports a tool name missing from the registry.
// Non-fatal: the dispatcher converts it into an error-status patch.
type UnknownToolError struct {
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Tool)
}

// ToolExecutionError reports a registered tool failing during invocation.
// Caught at the dispatch boundary and local to the node.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}
