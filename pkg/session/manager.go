package session

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/google/uuid"
)

// Manager allocates session identifiers and fronts the event channel
// backend. Channel operations are atomic on their own, so the manager
// stays a thin orchestration layer: id generation, logging, delegation.
type Manager struct {
	channel ports.EventChannel
	logger  *slog.Logger
	newID   func() string
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithIDGenerator overrides session id generation. Useful in tests that
// need deterministic ids.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// NewManager creates a new session Manager over the given channel backend.
func NewManager(channel ports.EventChannel, opts ...Option) *Manager {
	m := &Manager{
		channel: channel,
		logger:  logging.NewNop(), // Default to no-op
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create allocates a fresh session and returns its id.
func (m *Manager) Create(ctx context.Context) (string, error) {
	id := m.newID()
	if err := m.channel.Create(ctx, id); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	m.logger.Debug("Session created", "session_id", id)
	return id, nil
}

// Publish appends an event to the session's queue. Publishing to an
// unknown or expired session is a silent no-op.
func (m *Manager) Publish(ctx context.Context, sessionID string, event domain.Event) error {
	if err := m.channel.Enqueue(ctx, sessionID, event); err != nil {
		return err
	}
	m.logger.Debug("Event published",
		"session_id", sessionID,
		"type", event.Type,
		"node", event.Node,
	)
	return nil
}

// Drain atomically removes and returns up to max pending events.
func (m *Manager) Drain(ctx context.Context, sessionID string, max int) ([]domain.Event, error) {
	return m.channel.DequeueBatch(ctx, sessionID, max)
}

// Exists reports whether the session is known and unexpired.
func (m *Manager) Exists(ctx context.Context, sessionID string) (bool, error) {
	return m.channel.Exists(ctx, sessionID)
}

// Channel returns the underlying event channel.
func (m *Manager) Channel() ports.EventChannel {
	return m.channel
}
