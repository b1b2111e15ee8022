package domain

// Node kind constants drive dispatch behavior.
const (
	// KindInput carries the user query into the graph; skipped at dispatch,
	// its params feed downstream transcripts.
	KindInput = "input"
	// KindLLM marks a long-running external step (fire-and-forget planner).
	KindLLM = "llm"
	// KindTool executes a registered tool synchronously.
	KindTool = "tool"
	// KindRouter is a passthrough used for fan-in/fan-out wiring.
	KindRouter = "router"
	// KindPlain is a generic passthrough stage.
	KindPlain = "plain"
	// KindOutput is a passthrough sink collecting upstream results.
	KindOutput = "output"
)

// Node is a single unit of work in a submitted graph. It is constructed
// client-side, submitted once per run, and immutable during execution;
// runtime state lives separately in StatePatch records keyed by node id.
type Node struct {
	ID   string `json:"id" yaml:"id"`
	Kind string `json:"kind" yaml:"kind"`

	// ToolName selects the registry handler when Kind == "tool".
	ToolName string `json:"toolName,omitempty" yaml:"toolName,omitempty"`

	// Params is an opaque bag passed verbatim to the tool handler. For
	// input-kind nodes the "query" key carries the user query.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`

	// Display-only; irrelevant to execution but echoed in events.
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`
	Subtitle string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
}

// DisplayName returns the human label, falling back to the id.
func (n Node) DisplayName() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Query returns the "query" param of an input-kind node.
func (n Node) Query() string {
	q, _ := n.Params["query"].(string)
	return q
}

// Edge is a directed dependency between two nodes. Handles are UI wiring
// details carried through untouched; ordering only needs Source/Target.
type Edge struct {
	Source       string `json:"source" yaml:"source"`
	Target       string `json:"target" yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
}

// Graph is a node/edge description of one run. Edge order is significant:
// it breaks scheduling ties and orders transcript assembly.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// NodeByID returns the node with the given id.
func (g *Graph) NodeByID(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Incoming returns the edges targeting id, in declaration order.
func (g *Graph) Incoming(id string) []Edge {
	var edges []Edge
	for _, e := range g.Edges {
		if e.Target == id {
			edges = append(edges, e)
		}
	}
	return edges
}

// Outgoing returns the edges originating at id, in declaration order.
func (g *Graph) Outgoing(id string) []Edge {
	var edges []Edge
	for _, e := range g.Edges {
		if e.Source == id {
			edges = append(edges, e)
		}
	}
	return edges
}
