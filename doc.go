/*
Package arbor is a graph execution engine for visual workflow builders. A
client submits a node/edge graph once per run; the engine orders the nodes,
executes tools synchronously, hands long-running planning steps to an
external collaborator, and reports everything as an ordered stream of
events on a per-session channel.

# Concept

Arbor treats a run as a one-shot dispatch over an immutable graph. Runtime
state never lives in the graph: each node accumulates mergeable state
patches, and the last patch recorded for a node is its final state. The
observer (a canvas UI, a CLI, an MCP agent) replays the event stream to
animate progress, while the dispatcher itself never blocks on the slow
path: llm-kind nodes are fired and forgotten, and their lifecycle arrives
on the channel as it happens.

# Key Features

  - Deterministic ordering: dependency-ordered traversal with stable
    tie-breaks, so the same graph always visits in the same order.
  - Failure as data: a failing node records an error patch and the run
    continues; the terminal done event always arrives, exactly once.
  - Pluggable channels: in-memory for a single process, Redis-backed for
    horizontal deployments, selected by configuration.
  - Tool registry: pure, retryable tool handlers with JSON Schema params,
    exported to OpenAI function calling and MCP clients alike.

# Usage

Build the engine, create a session, submit a graph, and observe:

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/arbor"
		"github.com/aretw0/arbor/pkg/dsl"
	)

	func main() {
		engine, err := arbor.New()
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		sessionID, err := engine.CreateSession(ctx)
		if err != nil {
			log.Fatal(err)
		}

		b := dsl.New()
		b.Add("ask").Input("What is 7 * 2?").To("calc")
		b.Add("calc").Tool("calc", map[string]any{"expression": "7 * 2"}).To("answer")
		b.Add("answer").Output()
		graph, err := b.Build()
		if err != nil {
			log.Fatal(err)
		}

		finals, err := engine.Run(ctx, sessionID, graph)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(finals["calc"].Result)

		// Events for the run are waiting on the session channel.
		events, _ := engine.Drain(ctx, sessionID, 64)
		for _, ev := range events {
			fmt.Println(ev.Type, ev.Node)
		}
	}
*/
package arbor
