package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// EventChannel is the per-session ordered queue of lifecycle events. It is
// written by many concurrent producers (dispatcher steps, planner tasks)
// and drained by exactly one observer stream at a time. Sessions are
// ephemeral: destroyed by TTL or process restart, never torn down
// explicitly.
type EventChannel interface {
	// Create allocates a fresh empty queue for sessionID. Creating an
	// existing session refreshes its TTL and keeps queued events.
	Create(ctx context.Context, sessionID string) error

	// Enqueue appends event to the session's queue, preserving arrival
	// order. An unknown or expired session is a silent no-op, never an
	// error; producers must not be coupled to consumer lifecycle. Errors
	// indicate backing-store failures only.
	Enqueue(ctx context.Context, sessionID string, event domain.Event) error

	// DequeueBatch atomically removes and returns up to max oldest events.
	// It may return fewer (including zero) and never blocks. A dequeued
	// event is gone: at most one delivery across all consumers.
	DequeueBatch(ctx context.Context, sessionID string, max int) ([]domain.Event, error)

	// Exists reports whether the session is known and unexpired. Read
	// paths use it to reject unknown sessions before streaming.
	Exists(ctx context.Context, sessionID string) (bool, error)
}
