package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordersIncrement(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SessionCreated()
	m.EventEnqueued("state_patch")
	m.EventEnqueued("state_patch")
	m.EventsDequeued(3)
	m.RunFinished("completed")
	m.NodeVisited("tool")
	m.ToolInvoked("calc", false, 5*time.Millisecond)
	m.ToolInvoked("calc", true, time.Millisecond)
	m.PlannerFinished("done")
	m.StreamOpened()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsEnqueued.WithLabelValues("state_patch")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.eventsDequeued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolInvocations.WithLabelValues("calc", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.toolInvocations.WithLabelValues("calc", "error")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.SessionCreated()
		m.EventEnqueued("done")
		m.EventsDequeued(1)
		m.RunFinished("completed")
		m.NodeVisited("llm")
		m.ToolInvoked("weather", false, 0)
		m.PlannerFinished("error")
		m.StreamOpened()
	})
}
