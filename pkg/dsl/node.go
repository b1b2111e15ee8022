package dsl

import "github.com/aretw0/arbor/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Input marks the node as the query entry point (skipped at dispatch; its
// query feeds downstream transcripts).
func (n *NodeBuilder) Input(query string) *NodeBuilder {
	n.node.Kind = domain.KindInput
	n.Param("query", query)
	return n
}

// LLM marks the node as a long-running external planning step.
func (n *NodeBuilder) LLM() *NodeBuilder {
	n.node.Kind = domain.KindLLM
	return n
}

// Tool configures the node to execute a registered tool synchronously.
func (n *NodeBuilder) Tool(name string, params map[string]any) *NodeBuilder {
	n.node.Kind = domain.KindTool
	n.node.ToolName = name
	for k, v := range params {
		n.Param(k, v)
	}
	return n
}

// Router marks the node as a fan-in/fan-out passthrough.
func (n *NodeBuilder) Router() *NodeBuilder {
	n.node.Kind = domain.KindRouter
	return n
}

// Output marks the node as a passthrough sink.
func (n *NodeBuilder) Output() *NodeBuilder {
	n.node.Kind = domain.KindOutput
	return n
}

// Label sets the display label echoed in node_enter events.
func (n *NodeBuilder) Label(label string) *NodeBuilder {
	n.node.Label = label
	return n
}

// Subtitle sets the display subtitle.
func (n *NodeBuilder) Subtitle(subtitle string) *NodeBuilder {
	n.node.Subtitle = subtitle
	return n
}

// Param sets one entry in the node's params bag.
func (n *NodeBuilder) Param(key string, value any) *NodeBuilder {
	if n.node.Params == nil {
		n.node.Params = make(map[string]any)
	}
	n.node.Params[key] = value
	return n
}

// To adds directed edges from this node to each target, in call order.
func (n *NodeBuilder) To(targets ...string) *NodeBuilder {
	for _, target := range targets {
		n.builder.Connect(n.node.ID, target)
	}
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
