package ports

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunEventChannelContract runs a suite of tests verifying that an
// EventChannel implementation adheres to the interface contract: FIFO
// ordering, at-most-once delivery across repeated drains, batch limits,
// and silent no-op writes for unknown sessions.
func RunEventChannelContract(t *testing.T, ch EventChannel) {
	ctx := context.Background()
	base := "contract-session-" + time.Now().Format("20060102150405")

	patch := func(node string, seq int) domain.Event {
		return domain.NewStatePatch(node, domain.StatePatch{
			Status:  domain.StatusAnswering,
			Partial: fmt.Sprintf("chunk-%03d", seq),
		})
	}
	partialOf := func(t *testing.T, ev domain.Event) string {
		p, err := ev.Patch()
		require.NoError(t, err)
		return p.Partial
	}

	t.Run("Create and Drain Empty", func(t *testing.T) {
		id := base + "-empty"
		require.NoError(t, ch.Create(ctx, id))

		ok, err := ch.Exists(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)

		events, err := ch.DequeueBatch(ctx, id, 10)
		require.NoError(t, err)
		assert.Empty(t, events, "fresh session drains empty without blocking")
	})

	t.Run("FIFO Order", func(t *testing.T) {
		id := base + "-fifo"
		require.NoError(t, ch.Create(ctx, id))

		for i := 0; i < 5; i++ {
			require.NoError(t, ch.Enqueue(ctx, id, patch("n1", i)))
		}

		events, err := ch.DequeueBatch(ctx, id, 10)
		require.NoError(t, err)
		require.Len(t, events, 5)
		for i, ev := range events {
			assert.Equal(t, domain.EventStatePatch, ev.Type)
			assert.Equal(t, fmt.Sprintf("chunk-%03d", i), partialOf(t, ev))
		}
	})

	t.Run("Batch Limit and At-Most-Once", func(t *testing.T) {
		id := base + "-batch"
		require.NoError(t, ch.Create(ctx, id))

		for i := 0; i < 5; i++ {
			require.NoError(t, ch.Enqueue(ctx, id, patch("n1", i)))
		}

		var drained []string
		for _, want := range []int{2, 2, 1, 0} {
			events, err := ch.DequeueBatch(ctx, id, 2)
			require.NoError(t, err)
			require.Len(t, events, want)
			for _, ev := range events {
				drained = append(drained, partialOf(t, ev))
			}
		}

		// No duplication, no loss, FIFO preserved across calls.
		require.Len(t, drained, 5)
		for i, p := range drained {
			assert.Equal(t, fmt.Sprintf("chunk-%03d", i), p)
		}
	})

	t.Run("Unknown Session", func(t *testing.T) {
		id := base + "-never-created"

		ok, err := ch.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, ok)

		// Writes are silent no-ops; producers outlive consumers.
		require.NoError(t, ch.Enqueue(ctx, id, patch("n1", 0)))

		events, err := ch.DequeueBatch(ctx, id, 10)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("Recreate Keeps Queue", func(t *testing.T) {
		id := base + "-recreate"
		require.NoError(t, ch.Create(ctx, id))
		require.NoError(t, ch.Enqueue(ctx, id, patch("n1", 0)))

		require.NoError(t, ch.Create(ctx, id))

		events, err := ch.DequeueBatch(ctx, id, 10)
		require.NoError(t, err)
		assert.Len(t, events, 1, "re-create refreshes, never resets")
	})

	t.Run("Concurrent Producers", func(t *testing.T) {
		id := base + "-producers"
		require.NoError(t, ch.Create(ctx, id))

		const producers, perProducer = 4, 25

		var wg sync.WaitGroup
		for p := 0; p < producers; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				node := fmt.Sprintf("producer-%d", p)
				for i := 0; i < perProducer; i++ {
					assert.NoError(t, ch.Enqueue(ctx, id, patch(node, i)))
				}
			}(p)
		}
		wg.Wait()

		var all []domain.Event
		for len(all) < producers*perProducer {
			events, err := ch.DequeueBatch(ctx, id, 16)
			require.NoError(t, err)
			require.NotEmpty(t, events, "all enqueued events must be drainable")
			all = append(all, events...)
		}
		require.Len(t, all, producers*perProducer)

		// Appends interleave arbitrarily, but each producer's own events
		// must stay in production order.
		lastSeq := make(map[string]string)
		for _, ev := range all {
			p := partialOf(t, ev)
			if prev, ok := lastSeq[ev.Node]; ok {
				assert.Greater(t, p, prev, "per-producer order for %s", ev.Node)
			}
			lastSeq[ev.Node] = p
		}
	})

	t.Run("Concurrent Consumers Never Duplicate", func(t *testing.T) {
		id := base + "-consumers"
		require.NoError(t, ch.Create(ctx, id))

		const total = 60
		for i := 0; i < total; i++ {
			require.NoError(t, ch.Enqueue(ctx, id, patch("n1", i)))
		}

		// Two drainers are not a supported configuration, but batches must
		// stay atomic: every event delivered exactly once between them.
		var mu sync.Mutex
		seen := make(map[string]int)

		var wg sync.WaitGroup
		for c := 0; c < 2; c++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for attempt := 0; attempt < total; attempt++ {
					events, err := ch.DequeueBatch(ctx, id, 7)
					assert.NoError(t, err)
					if len(events) == 0 {
						return
					}
					mu.Lock()
					for _, ev := range events {
						seen[partialOf(t, ev)]++
					}
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Len(t, seen, total)
		for p, count := range seen {
			assert.Equal(t, 1, count, "event %s delivered more than once", p)
		}
	})
}
