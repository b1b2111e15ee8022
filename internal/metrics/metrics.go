// Package metrics defines the Prometheus instrumentation for the engine.
// A nil *Metrics disables every recorder, so instrumentation stays
// optional for embedders and tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the engine's collectors. Construct with New; the zero
// value of the pointer (nil) is a valid no-op sink.
type Metrics struct {
	sessionsCreated   prometheus.Counter
	eventsEnqueued    *prometheus.CounterVec
	eventsDequeued    prometheus.Counter
	runs              *prometheus.CounterVec
	nodeVisits        *prometheus.CounterVec
	toolInvocations   *prometheus.CounterVec
	toolDuration      *prometheus.HistogramVec
	plannerRequests   *prometheus.CounterVec
	streamConnections prometheus.Counter
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created",
		}),
		eventsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "events_enqueued_total",
			Help:      "Total number of events appended to session channels",
		}, []string{"type"}),
		eventsDequeued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "events_dequeued_total",
			Help:      "Total number of events drained from session channels",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "runs_total",
			Help:      "Total number of graph runs by outcome",
		}, []string{"outcome"}),
		nodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "node_visits_total",
			Help:      "Total number of node visits by kind",
		}, []string{"kind"}),
		toolInvocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "tool_invocations_total",
			Help:      "Total number of tool invocations by tool and outcome",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arbor",
			Name:      "tool_duration_seconds",
			Help:      "Duration of tool executions",
		}, []string{"tool"}),
		plannerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "planner_requests_total",
			Help:      "Total number of planner jobs by outcome",
		}, []string{"outcome"}),
		streamConnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbor",
			Name:      "stream_connections_total",
			Help:      "Total number of event stream subscriptions",
		}),
	}
	reg.MustRegister(
		m.sessionsCreated,
		m.eventsEnqueued,
		m.eventsDequeued,
		m.runs,
		m.nodeVisits,
		m.toolInvocations,
		m.toolDuration,
		m.plannerRequests,
		m.streamConnections,
	)
	return m
}

func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.sessionsCreated.Inc()
}

func (m *Metrics) EventEnqueued(eventType string) {
	if m == nil {
		return
	}
	m.eventsEnqueued.WithLabelValues(eventType).Inc()
}

func (m *Metrics) EventsDequeued(n int) {
	if m == nil || n == 0 {
		return
	}
	m.eventsDequeued.Add(float64(n))
}

func (m *Metrics) RunFinished(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) NodeVisited(kind string) {
	if m == nil {
		return
	}
	m.nodeVisits.WithLabelValues(kind).Inc()
}

func (m *Metrics) ToolInvoked(tool string, failed bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	m.toolInvocations.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func (m *Metrics) PlannerFinished(outcome string) {
	if m == nil {
		return
	}
	m.plannerRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.streamConnections.Inc()
}
