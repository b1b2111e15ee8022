package domain

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventStatePatch EventType = "state_patch"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is the unit carried by a session's event channel. Node names the
// node the event concerns; it is empty for session-level events (done and
// session-level errors). Payload shape depends on Type: a message object
// for node_enter, a StatePatch for state_patch, RunMetrics for done.
//
// Events round-trip through JSON on remote-backed channels, so Payload may
// surface as a map after a dequeue; Patch and Metrics decode it back.
type Event struct {
	Type      EventType `json:"type"`
	Node      string    `json:"node,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNodeEnter builds the unconditional visitation event for a node.
func NewNodeEnter(nodeID, message string) Event {
	return Event{
		Type:      EventNodeEnter,
		Node:      nodeID,
		Payload:   map[string]any{"message": message},
		Timestamp: time.Now().UTC(),
	}
}

// NewStatePatch builds a mergeable partial-state event for a node.
func NewStatePatch(nodeID string, patch StatePatch) Event {
	return Event{
		Type:      EventStatePatch,
		Node:      nodeID,
		Payload:   patch,
		Timestamp: time.Now().UTC(),
	}
}

// NewDone builds the terminal session event. Exactly one is emitted per
// session and it is always the last event observed.
func NewDone(metrics RunMetrics) Event {
	return Event{
		Type:      EventDone,
		Payload:   metrics,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionError builds a session-level error event (no node attached).
func NewSessionError(message string) Event {
	return Event{
		Type:      EventError,
		Payload:   map[string]any{"error": message},
		Timestamp: time.Now().UTC(),
	}
}

// Patch extracts the StatePatch payload of a state_patch event, decoding
// map payloads produced by a JSON round trip.
func (e Event) Patch() (StatePatch, error) {
	if e.Type != EventStatePatch {
		return StatePatch{}, fmt.Errorf("event is %s, not %s", e.Type, EventStatePatch)
	}
	switch p := e.Payload.(type) {
	case StatePatch:
		return p, nil
	default:
		var patch StatePatch
		if err := decodePayload(e.Payload, &patch); err != nil {
			return StatePatch{}, fmt.Errorf("decode state patch: %w", err)
		}
		return patch, nil
	}
}

// Metrics extracts the RunMetrics payload of a done event.
func (e Event) Metrics() (RunMetrics, error) {
	if e.Type != EventDone {
		return RunMetrics{}, fmt.Errorf("event is %s, not %s", e.Type, EventDone)
	}
	switch p := e.Payload.(type) {
	case RunMetrics:
		return p, nil
	default:
		var m RunMetrics
		if err := decodePayload(e.Payload, &m); err != nil {
			return RunMetrics{}, fmt.Errorf("decode run metrics: %w", err)
		}
		return m, nil
	}
}

func decodePayload(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

// RunMetrics summarizes a completed dispatch; it is the payload of the
// terminal done event.
type RunMetrics struct {
	Nodes       int      `json:"nodes" mapstructure:"nodes"`
	Visited     int      `json:"visited" mapstructure:"visited"`
	Skipped     int      `json:"skipped" mapstructure:"skipped"`
	Failed      int      `json:"failed" mapstructure:"failed"`
	Unreachable []string `json:"unreachable,omitempty" mapstructure:"unreachable"`
	ElapsedMS   int64    `json:"elapsed_ms" mapstructure:"elapsed_ms"`
}
