// Package registry maps tool names to synchronous, side-effect-free
// handlers. Handlers are pure functions of their params: invoking one
// twice with identical params yields identical results, so node-level
// retries are safe.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

var (
	errEmptyName  = errors.New("tool name is empty")
	errNilHandler = errors.New("tool handler is nil")
	errDuplicate  = errors.New("tool already registered")
)

// HandlerFunc is the signature for a tool implementation. It receives a
// context and the node's params bag, and returns a JSON-serializable
// result or an error.
type HandlerFunc func(ctx context.Context, params map[string]any) (any, error)

// Tool bundles a handler with the metadata exported to external
// collaborators (OpenAI function calling, MCP).
type Tool struct {
	Name        string
	Description string
	// Params declares the accepted parameters; when set, incoming params
	// are validated against it before the handler runs.
	Params  *openapi3.Schema
	Handler HandlerFunc
}

// Registry manages the available tools. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. Registering a name twice returns
// an error rather than silently shadowing the earlier handler.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return errEmptyName
	}
	if tool.Handler == nil {
		return fmt.Errorf("register %s: %w", tool.Name, errNilHandler)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("register %s: %w", tool.Name, errDuplicate)
	}
	r.tools[tool.Name] = tool
	return nil
}

// Invoke looks up a tool by exact name and executes it. An absent name
// yields *domain.UnknownToolError with the offending name embedded; a
// schema violation or handler failure yields *domain.ToolExecutionError.
func (r *Registry) Invoke(ctx context.Context, name string, params map[string]any) (any, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &domain.UnknownToolError{Tool: name}
	}

	if tool.Params != nil {
		if params == nil {
			params = map[string]any{}
		}
		if err := tool.Params.VisitJSON(params); err != nil {
			return nil, &domain.ToolExecutionError{Tool: name, Err: err}
		}
	}

	result, err := tool.Handler(ctx, params)
	if err != nil {
		return nil, &domain.ToolExecutionError{Tool: name, Err: err}
	}
	return result, nil
}

// Lookup returns the named tool.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Names returns all registered tool names sorted.
func (r *Registry) Names() []string {
	tools := r.List()
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name
	}
	return names
}

// Describe implements ports.ToolSource: it returns descriptors for the
// named tools, or for every registered tool when names is empty. Unknown
// names are dropped (the requested set is intersected with the registry).
func (r *Registry) Describe(names []string) []ports.ToolDescriptor {
	var tools []Tool
	if len(names) == 0 {
		tools = r.List()
	} else {
		for _, name := range names {
			if tool, ok := r.Lookup(name); ok {
				tools = append(tools, tool)
			}
		}
	}

	descriptors := make([]ports.ToolDescriptor, 0, len(tools))
	for _, tool := range tools {
		d := ports.ToolDescriptor{Name: tool.Name, Description: tool.Description}
		if tool.Params != nil {
			if raw, err := json.Marshal(tool.Params); err == nil {
				d.Parameters = raw
			}
		}
		descriptors = append(descriptors, d)
	}
	return descriptors
}
