// Package dispatch runs submitted graphs. It walks the scheduler's visit
// order one node at a time, performs each node's work, and pushes every
// lifecycle event onto the session's channel.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/metrics"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/scheduler"
)

// Dispatcher executes graphs against a session's event channel. Visits are
// strictly sequential in topological order; only planner work runs
// concurrently, and it reports back through the channel on its own.
type Dispatcher struct {
	channel ports.EventChannel
	tools   ports.ToolInvoker
	planner ports.Planner
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a structured logger for dispatch activity.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics wires Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// New creates a Dispatcher over the given channel, tool registry and
// planner.
func New(channel ports.EventChannel, tools ports.ToolInvoker, planner ports.Planner, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		channel: channel,
		tools:   tools,
		planner: planner,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute runs the graph for sessionID and returns the final-state map
// (node id -> last recorded patch). Failures stay local to their node; the
// session-level promise is a single terminal done event after the last
// visit. Nodes caught in a cycle are reported in the done metrics and
// never visited.
func (d *Dispatcher) Execute(ctx context.Context, sessionID string, g *domain.Graph) map[string]domain.StatePatch {
	start := time.Now()

	// 1. Plan the visit order; a cyclic remainder is data, not a failure.
	order, unreachable := scheduler.ComputeOrder(g)
	if len(unreachable) > 0 {
		d.logger.Warn("Graph contains unreachable nodes",
			"session_id", sessionID,
			"nodes", unreachable,
		)
	}

	finals := make(map[string]domain.StatePatch, len(order))
	skipped, failed := 0, 0

	// 2. Visit each node in order, regardless of earlier outcomes.
	for _, id := range order {
		node, ok := g.NodeByID(id)
		if !ok {
			continue
		}

		patch := d.visit(ctx, sessionID, g, node, finals)
		finals[id] = patch

		switch patch.Status {
		case domain.StatusSkipped:
			skipped++
		case domain.StatusError:
			failed++
		}
	}

	// 3. Exactly one terminal event, after every visit.
	runMetrics := domain.RunMetrics{
		Nodes:       len(g.Nodes),
		Visited:     len(order),
		Skipped:     skipped,
		Failed:      failed,
		Unreachable: unreachable,
		ElapsedMS:   time.Since(start).Milliseconds(),
	}
	d.publish(ctx, sessionID, domain.NewDone(runMetrics))

	outcome := "ok"
	if failed > 0 {
		outcome = "degraded"
	}
	d.metrics.RunFinished(outcome)
	d.logger.Info("Run finished",
		"session_id", sessionID,
		"visited", runMetrics.Visited,
		"skipped", runMetrics.Skipped,
		"failed", runMetrics.Failed,
		"unreachable", len(runMetrics.Unreachable),
		"elapsed_ms", runMetrics.ElapsedMS,
	)

	return finals
}

// visit performs one node's work and returns the patch to record for it.
func (d *Dispatcher) visit(ctx context.Context, sessionID string, g *domain.Graph, node domain.Node, finals map[string]domain.StatePatch) domain.StatePatch {
	// node_enter is unconditional, even for nodes that end up skipped.
	d.publish(ctx, sessionID, domain.NewNodeEnter(node.ID, fmt.Sprintf("Visiting %s", node.DisplayName())))
	d.metrics.NodeVisited(node.Kind)

	switch {
	case node.Kind == domain.KindTool && node.ToolName != "":
		return d.visitTool(ctx, sessionID, node)
	case node.Kind == domain.KindLLM:
		return d.visitPlanner(ctx, sessionID, g, node, finals)
	default:
		return d.visitSkip(ctx, sessionID, node)
	}
}

// visitTool invokes the registry synchronously and emits the outcome.
func (d *Dispatcher) visitTool(ctx context.Context, sessionID string, node domain.Node) domain.StatePatch {
	d.publish(ctx, sessionID, domain.NewStatePatch(node.ID, domain.StatePatch{
		Status: domain.StatusRunning,
		Tool:   node.ToolName,
	}))

	started := time.Now()
	result, err := d.tools.Invoke(ctx, node.ToolName, node.Params)
	d.metrics.ToolInvoked(node.ToolName, err != nil, time.Since(started))

	var patch domain.StatePatch
	if err != nil {
		patch = domain.StatePatch{Status: domain.StatusError, Error: err.Error()}
		d.logger.Debug("Tool node failed",
			"session_id", sessionID,
			"node", node.ID,
			"tool", node.ToolName,
			"err", err,
		)
	} else {
		patch = domain.StatePatch{Status: domain.StatusDone, Result: result}
	}

	d.publish(ctx, sessionID, domain.NewStatePatch(node.ID, patch))
	return patch
}

// visitPlanner hands the node to the external collaborator and moves on.
// From here the planner owns the node's lifecycle: the returned record is
// provisional and the true terminal state arrives on the channel later.
func (d *Dispatcher) visitPlanner(ctx context.Context, sessionID string, g *domain.Graph, node domain.Node, finals map[string]domain.StatePatch) domain.StatePatch {
	d.publish(ctx, sessionID, domain.NewStatePatch(node.ID, domain.StatePatch{
		Status: domain.StatusPlanning,
	}))

	job := ports.PlannerJob{
		SessionID: sessionID,
		NodeID:    node.ID,
		Messages:  d.transcript(g, node, finals),
		Tools:     neighborTools(g, node),
	}

	if err := d.planner.Launch(ctx, job); err != nil {
		patch := domain.StatePatch{Status: domain.StatusError, Error: err.Error()}
		d.publish(ctx, sessionID, domain.NewStatePatch(node.ID, patch))
		d.logger.Warn("Planner launch failed",
			"session_id", sessionID,
			"node", node.ID,
			"err", err,
		)
		return patch
	}

	return domain.StatePatch{Status: domain.StatusStarted}
}

// visitSkip marks passthrough nodes. Input nodes keep their query in the
// recorded state so downstream planner nodes can read it.
func (d *Dispatcher) visitSkip(ctx context.Context, sessionID string, node domain.Node) domain.StatePatch {
	patch := domain.StatePatch{Status: domain.StatusSkipped}
	if node.Kind == domain.KindInput {
		patch.Query = node.Query()
	}
	d.publish(ctx, sessionID, domain.NewStatePatch(node.ID, patch))
	return patch
}

// transcript assembles the planner's ordered messages from the recorded
// states of the node's upstream neighbors: an input node's query becomes a
// user message, a tool node's result becomes contextual system
// information. A node with no upstream material falls back to its own
// query param so a lone llm node still carries a prompt.
func (d *Dispatcher) transcript(g *domain.Graph, node domain.Node, finals map[string]domain.StatePatch) []ports.Message {
	var messages []ports.Message

	for _, edge := range g.Incoming(node.ID) {
		upstream, ok := g.NodeByID(edge.Source)
		if !ok {
			continue
		}

		recorded := finals[upstream.ID]
		switch upstream.Kind {
		case domain.KindInput:
			if recorded.Query != "" {
				messages = append(messages, ports.Message{Role: ports.RoleUser, Content: recorded.Query})
			}
		case domain.KindTool:
			if recorded.Result == nil {
				continue
			}
			data, err := json.Marshal(recorded.Result)
			if err != nil {
				continue
			}
			messages = append(messages, ports.Message{
				Role:    ports.RoleSystem,
				Content: fmt.Sprintf("Result from %s: %s", upstream.DisplayName(), data),
			})
		}
	}

	if len(messages) == 0 {
		if q := node.Query(); q != "" {
			messages = append(messages, ports.Message{Role: ports.RoleUser, Content: q})
		}
	}
	return messages
}

// neighborTools collects the union of tool names on adjacent tool-kind
// nodes, predecessors first, in edge order. Empty means the planner will
// fall back to the full registry.
func neighborTools(g *domain.Graph, node domain.Node) []string {
	var names []string
	seen := make(map[string]bool)

	add := func(id string) {
		n, ok := g.NodeByID(id)
		if !ok || n.Kind != domain.KindTool || n.ToolName == "" || seen[n.ToolName] {
			return
		}
		seen[n.ToolName] = true
		names = append(names, n.ToolName)
	}

	for _, e := range g.Incoming(node.ID) {
		add(e.Source)
	}
	for _, e := range g.Outgoing(node.ID) {
		add(e.Target)
	}
	return names
}

// publish enqueues best-effort: an unknown session is already a silent
// no-op at the channel, so only transport failures land here.
func (d *Dispatcher) publish(ctx context.Context, sessionID string, event domain.Event) {
	if err := d.channel.Enqueue(ctx, sessionID, event); err != nil {
		d.logger.Warn("Failed to enqueue event",
			"session_id", sessionID,
			"type", event.Type,
			"err", err,
		)
		return
	}
	d.metrics.EventEnqueued(string(event.Type))
}
