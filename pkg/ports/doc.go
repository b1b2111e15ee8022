/*
Package ports defines the driven ports (interfaces) for the Arbor engine.

These interfaces decouple the core logic from external implementations,
allowing the engine to work with swappable channel backends (in-process
memory, Redis) and external collaborators without assuming shared memory
between dispatch and observation.

# Key Interfaces

  - EventChannel: the per-session ordered, drainable event queue.
  - Planner: the fire-and-forget bridge to the external streaming step.
  - ToolInvoker / ToolSource: the dispatcher's and planner's view of the
    tool registry.

RunEventChannelContract verifies that any EventChannel implementation
honors the ordering and at-most-once semantics the engine relies on.
*/
package ports
