package middleware_test

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// MockChannel is a simple map-based channel for testing middleware. peek
// exposes the stored events without consuming them so tests can assert on
// what actually reached the backing store.
type MockChannel struct {
	data map[string][]domain.Event
}

func NewMockChannel() *MockChannel {
	return &MockChannel{
		data: make(map[string][]domain.Event),
	}
}

func (c *MockChannel) Create(ctx context.Context, sessionID string) error {
	if _, ok := c.data[sessionID]; !ok {
		c.data[sessionID] = []domain.Event{}
	}
	return nil
}

func (c *MockChannel) Enqueue(ctx context.Context, sessionID string, event domain.Event) error {
	if _, ok := c.data[sessionID]; !ok {
		return nil
	}
	c.data[sessionID] = append(c.data[sessionID], event)
	return nil
}

func (c *MockChannel) DequeueBatch(ctx context.Context, sessionID string, max int) ([]domain.Event, error) {
	queue, ok := c.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if max > len(queue) {
		max = len(queue)
	}
	batch := queue[:max]
	c.data[sessionID] = queue[max:]
	return batch, nil
}

func (c *MockChannel) Exists(ctx context.Context, sessionID string) (bool, error) {
	_, ok := c.data[sessionID]
	return ok, nil
}

func (c *MockChannel) peek(sessionID string) []domain.Event {
	return c.data[sessionID]
}

var _ ports.EventChannel = (*MockChannel)(nil)
