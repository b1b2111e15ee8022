package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

func TestChannelContract(t *testing.T) {
	ports.RunEventChannelContract(t, New())
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	ch := New(WithTTL(30*time.Minute), WithClock(clock.Now))

	require.NoError(t, ch.Create(ctx, "s1"))
	require.NoError(t, ch.Enqueue(ctx, "s1", domain.NewNodeEnter("n1", "Node")))

	clock.Advance(31 * time.Minute)

	ok, err := ch.Exists(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Producers keep writing into the void without errors.
	require.NoError(t, ch.Enqueue(ctx, "s1", domain.NewNodeEnter("n2", "Node")))

	events, err := ch.DequeueBatch(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEnqueueRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	ch := New(WithTTL(30*time.Minute), WithClock(clock.Now))

	require.NoError(t, ch.Create(ctx, "slow"))

	// A slow-running session keeps producing within the window; each
	// append pushes the deadline out.
	for i := 0; i < 3; i++ {
		clock.Advance(20 * time.Minute)
		require.NoError(t, ch.Enqueue(ctx, "slow", domain.NewNodeEnter("n", "Node")))
	}

	ok, err := ch.Exists(ctx, "slow")
	require.NoError(t, err)
	assert.True(t, ok, "refreshed session must outlive the original deadline")

	events, err := ch.DequeueBatch(ctx, "slow", 10)
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestCreateRefreshesExpiredSession(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	ch := New(WithTTL(time.Minute), WithClock(clock.Now))

	require.NoError(t, ch.Create(ctx, "s1"))
	require.NoError(t, ch.Enqueue(ctx, "s1", domain.NewNodeEnter("n1", "Node")))
	clock.Advance(2 * time.Minute)

	// The old queue is gone; create starts a fresh one.
	require.NoError(t, ch.Create(ctx, "s1"))

	events, err := ch.DequeueBatch(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDequeueZeroMax(t *testing.T) {
	ctx := context.Background()
	ch := New()

	require.NoError(t, ch.Create(ctx, "s1"))
	require.NoError(t, ch.Enqueue(ctx, "s1", domain.NewNodeEnter("n1", "Node")))

	events, err := ch.DequeueBatch(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}
