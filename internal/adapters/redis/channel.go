// Package redis provides the remote-backed event channel, chosen when a
// Redis endpoint is configured. Dispatch and observation may then live in
// different processes: nothing here assumes shared memory.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long an idle session survives in Redis.
const DefaultTTL = 30 * time.Minute

// enqueueScript appends an event only when the session marker still
// exists, then refreshes both keys' TTLs in the same atomic step. The
// refresh on every enqueue keeps a slow-running session alive.
var enqueueScript = backend.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("RPUSH", KEYS[2], ARGV[1])
redis.call("PEXPIRE", KEYS[1], ARGV[2])
redis.call("PEXPIRE", KEYS[2], ARGV[2])
return 1
`)

// Channel implements ports.EventChannel using Redis. A session is a
// marker key plus a list of JSON-encoded events; the list preserves
// arrival order and LPOP with a count gives atomic batch dequeues.
type Channel struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Channel)

// WithTTL sets the expiration for sessions.
func WithTTL(ttl time.Duration) Option {
	return func(c *Channel) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(c *Channel) {
		c.prefix = prefix
	}
}

// New creates a new Redis channel with options.
func New(address, password string, db int, opts ...Option) *Channel {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis channel from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Channel {
	c := &Channel{
		client: client,
		prefix: "arbor:",
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Channel) sessionKey(id string) string {
	return c.prefix + "session:" + id
}

func (c *Channel) queueKey(id string) string {
	return c.prefix + "events:" + id
}

// Create allocates the session marker. Re-creating refreshes the TTL and
// keeps any queued events.
func (c *Channel) Create(ctx context.Context, sessionID string) error {
	pipe := c.client.Pipeline()
	pipe.Set(ctx, c.sessionKey(sessionID), "1", c.ttl)
	pipe.Expire(ctx, c.queueKey(sessionID), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Enqueue appends event to the session's list. A missing or expired
// marker makes this a silent no-op; only transport failures error.
func (c *Channel) Enqueue(ctx context.Context, sessionID string, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	keys := []string{c.sessionKey(sessionID), c.queueKey(sessionID)}
	if err := enqueueScript.Run(ctx, c.client, keys, data, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("failed to enqueue event: %w", err)
	}
	return nil
}

// DequeueBatch atomically pops up to max oldest events. Never blocks; an
// empty or unknown session yields an empty batch.
func (c *Channel) DequeueBatch(ctx context.Context, sessionID string, max int) ([]domain.Event, error) {
	if max <= 0 {
		return nil, nil
	}

	raw, err := c.client.LPopCount(ctx, c.queueKey(sessionID), max).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue events: %w", err)
	}

	events := make([]domain.Event, 0, len(raw))
	for _, item := range raw {
		var ev domain.Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			return events, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Exists reports whether the session marker is present and unexpired.
func (c *Channel) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

// Close closes the redis client.
func (c *Channel) Close() error {
	return c.client.Close()
}
