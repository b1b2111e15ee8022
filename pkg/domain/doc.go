/*
Package domain contains the core domain models for the Arbor engine.

It defines the fundamental entities of graph execution: Nodes and Edges as
submitted by a client, the Events streamed back to observers, and the
per-node execution state machine. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Graph: a set of Nodes plus an ordered sequence of Edges; not required
    to be acyclic (the scheduler defends against cycles).
  - Node: a unit of work whose Kind drives dispatch (tool, llm, passthrough).
  - Event: a tagged union (node_enter, state_patch, done, error) pushed onto
    a session's event channel.
  - StatePatch: a mergeable partial-state object; the last patch recorded
    for a node is its final state.
*/
package domain
