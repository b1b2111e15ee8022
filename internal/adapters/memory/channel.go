// Package memory provides the process-local event channel used when no
// remote endpoint is configured. It assumes a single logical instance:
// dispatch and observation share this process's memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// DefaultTTL bounds how long an idle session queue survives.
const DefaultTTL = 30 * time.Minute

type queue struct {
	events   []domain.Event
	deadline time.Time
}

// Channel implements ports.EventChannel on a mutex-guarded map. Expired
// sessions are collected lazily on access. Safe for concurrent use.
type Channel struct {
	mu       sync.Mutex
	sessions map[string]*queue
	ttl      time.Duration
	now      func() time.Time
}

// Option configures the channel.
type Option func(*Channel)

// WithTTL overrides the session expiry window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Channel) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock injects a time source, primarily for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(c *Channel) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty in-process channel.
func New(opts ...Option) *Channel {
	c := &Channel{
		sessions: make(map[string]*queue),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create allocates an empty queue for sessionID; re-creating an existing
// session refreshes its TTL and keeps queued events.
func (c *Channel) Create(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if q := c.live(sessionID); q != nil {
		q.deadline = c.now().Add(c.ttl)
		return nil
	}
	c.sessions[sessionID] = &queue{deadline: c.now().Add(c.ttl)}
	return nil
}

// Enqueue appends event to the session's queue and refreshes its TTL.
// Unknown or expired sessions swallow the event silently.
func (c *Channel) Enqueue(ctx context.Context, sessionID string, event domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.live(sessionID)
	if q == nil {
		return nil
	}
	q.events = append(q.events, event)
	q.deadline = c.now().Add(c.ttl)
	return nil
}

// DequeueBatch removes and returns up to max oldest events. Never blocks.
func (c *Channel) DequeueBatch(ctx context.Context, sessionID string, max int) ([]domain.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := c.live(sessionID)
	if q == nil || max <= 0 || len(q.events) == 0 {
		return nil, nil
	}

	n := max
	if n > len(q.events) {
		n = len(q.events)
	}
	batch := make([]domain.Event, n)
	copy(batch, q.events[:n])
	q.events = q.events[n:]
	return batch, nil
}

// Exists reports whether the session is known and unexpired.
func (c *Channel) Exists(ctx context.Context, sessionID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.live(sessionID) != nil, nil
}

// live returns the unexpired queue for id, collecting it if expired.
// Caller must hold mu.
func (c *Channel) live(id string) *queue {
	q, ok := c.sessions[id]
	if !ok {
		return nil
	}
	if !c.now().Before(q.deadline) {
		delete(c.sessions, id)
		return nil
	}
	return q
}
