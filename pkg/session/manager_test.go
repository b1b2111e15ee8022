package session_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/internal/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_CreateAllocatesDistinctIDs(t *testing.T) {
	mgr := session.NewManager(memory.New())
	ctx := context.Background()

	first, err := mgr.Create(ctx)
	require.NoError(t, err)
	second, err := mgr.Create(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)

	for _, id := range []string{first, second} {
		ok, err := mgr.Exists(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestManager_CustomIDGenerator(t *testing.T) {
	mgr := session.NewManager(memory.New(), session.WithIDGenerator(func() string {
		return "fixed-id"
	}))

	id, err := mgr.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)
}

func TestManager_PublishAndDrain(t *testing.T) {
	mgr := session.NewManager(memory.New())
	ctx := context.Background()

	id, err := mgr.Create(ctx)
	require.NoError(t, err)

	for _, node := range []string{"a", "b", "c"} {
		require.NoError(t, mgr.Publish(ctx, id, domain.NewNodeEnter(node, "visiting")))
	}

	batch, err := mgr.Drain(ctx, id, 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "a", batch[0].Node)
	assert.Equal(t, "b", batch[1].Node)

	rest, err := mgr.Drain(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c", rest[0].Node)

	empty, err := mgr.Drain(ctx, id, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestManager_PublishUnknownSessionIsNoOp(t *testing.T) {
	mgr := session.NewManager(memory.New())
	ctx := context.Background()

	require.NoError(t, mgr.Publish(ctx, "ghost", domain.NewNodeEnter("a", "visiting")))

	ok, err := mgr.Exists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	batch, err := mgr.Drain(ctx, "ghost", 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}
