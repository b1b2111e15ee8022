// Package http exposes the engine over REST plus an SSE event stream.
// Writes (session create, run submit) are plain JSON; observation happens
// on a long-lived stream that drains the session's event channel until the
// terminal done event passes through.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/metrics"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// DefaultPollInterval is how often an idle stream drains the channel.
	DefaultPollInterval = 200 * time.Millisecond
	// DefaultKeepAlive is the idle period after which a comment line keeps
	// the stream from being reaped by proxies.
	DefaultKeepAlive = 15 * time.Second
	// DefaultDrainMax bounds one drain batch.
	DefaultDrainMax = 64
	// maxRequestBytes bounds a submitted graph; anything larger is rejected
	// before it is parsed.
	maxRequestBytes = 1 << 20
)

// Engine is the surface the handlers need from the core.
type Engine interface {
	CreateSession(ctx context.Context) (string, error)
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	// Run executes synchronously and returns the final-state map.
	Run(ctx context.Context, sessionID string, g *domain.Graph) (map[string]domain.StatePatch, error)
	// Submit starts a detached run and returns once it is underway.
	Submit(ctx context.Context, sessionID string, g *domain.Graph) error
	Drain(ctx context.Context, sessionID string, max int) ([]domain.Event, error)
	Tools() []ports.ToolDescriptor
}

// Server carries the handler set and stream tuning.
type Server struct {
	engine       Engine
	logger       *slog.Logger
	metrics      *metrics.Metrics
	registry     *prometheus.Registry
	pollInterval time.Duration
	keepAlive    time.Duration
	drainMax     int
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger for request handling.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics wires Prometheus collectors for handler activity.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithPrometheusRegistry mounts /metrics for the given registry.
func WithPrometheusRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithPollInterval tunes how often the stream drains the channel.
func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithKeepAlive tunes the idle keep-alive period.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepAlive = d
		}
	}
}

// WithDrainMax caps how many events one stream drain may take.
func WithDrainMax(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.drainMax = n
		}
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		engine:       engine,
		logger:       logging.NewNop(),
		pollInterval: DefaultPollInterval,
		keepAlive:    DefaultKeepAlive,
		drainMax:     DefaultDrainMax,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/api/tools", s.ListTools)
	r.Post("/api/sessions", s.CreateSession)
	r.Post("/api/runs", s.SubmitRun)
	r.Get("/api/sessions/{sessionID}/events", s.StreamEvents)
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SubmitRunRequest is the body of POST /api/runs.
type SubmitRunRequest struct {
	SessionID string        `json:"sessionId"`
	Graph     *domain.Graph `json:"graph"`
	// Wait makes the call block until the run finishes and return the
	// final states; otherwise the run is detached and only acknowledged.
	Wait bool `json:"wait,omitempty"`
}

// SubmitRunResponse is the body of POST /api/runs responses.
type SubmitRunResponse struct {
	OK          bool                         `json:"ok"`
	FinalStates map[string]domain.StatePatch `json:"finalStates,omitempty"`
}

// CreateSession handles POST /api/sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.engine.CreateSession(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Create session error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Create session failed", "err", err)
		return
	}

	s.metrics.SessionCreated()
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": id})
}

// SubmitRun handles POST /api/runs.
func (s *Server) SubmitRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var body SubmitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Submit run: invalid request body", "err", err)
		return
	}
	if body.SessionID == "" {
		http.Error(w, "sessionId is required", http.StatusBadRequest)
		return
	}
	if err := validator.ValidateGraph(body.Graph); err != nil {
		http.Error(w, fmt.Sprintf("Invalid graph: %v", err), http.StatusBadRequest)
		s.logger.Warn("Submit run: invalid graph", "session_id", body.SessionID, "err", err)
		return
	}

	ok, err := s.engine.SessionExists(r.Context(), body.SessionID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Session lookup error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Submit run: session lookup failed", "session_id", body.SessionID, "err", err)
		return
	}
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if body.Wait {
		finals, err := s.engine.Run(r.Context(), body.SessionID, body.Graph)
		if err != nil {
			http.Error(w, fmt.Sprintf("Run error: %v", err), http.StatusInternalServerError)
			s.logger.Error("Run failed", "session_id", body.SessionID, "err", err)
			return
		}
		writeJSON(w, http.StatusOK, SubmitRunResponse{OK: true, FinalStates: finals})
		return
	}

	if err := s.engine.Submit(r.Context(), body.SessionID, body.Graph); err != nil {
		http.Error(w, fmt.Sprintf("Submit error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Submit failed", "session_id", body.SessionID, "err", err)
		return
	}
	writeJSON(w, http.StatusAccepted, SubmitRunResponse{OK: true})
}

// StreamEvents handles GET /api/sessions/{sessionID}/events. It repeatedly
// drains the channel and forwards events in arrival order, interleaving
// keep-alive comments while idle, and closes right after forwarding done.
func (s *Server) StreamEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	ok, err := s.engine.SessionExists(r.Context(), sessionID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Session lookup error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Stream: session lookup failed", "session_id", sessionID, "err", err)
		return
	}
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("Stream: flushing not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	s.metrics.StreamOpened()
	s.logger.Info("Stream opened", "session_id", sessionID)

	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()
	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("Stream client disconnected", "session_id", sessionID)
			return

		case <-keepAlive.C:
			fmt.Fprintf(w, ": keep-alive\n\n")
			flusher.Flush()

		case <-poll.C:
			events, err := s.engine.Drain(r.Context(), sessionID, s.drainMax)
			if err != nil {
				s.logger.Error("Stream drain failed", "session_id", sessionID, "err", err)
				return
			}
			s.metrics.EventsDequeued(len(events))

			for _, ev := range events {
				data, err := json.Marshal(ev)
				if err != nil {
					s.logger.Error("Stream event encode failed", "session_id", sessionID, "err", err)
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", data)
				flusher.Flush()

				if ev.Type == domain.EventDone {
					s.logger.Info("Stream finished", "session_id", sessionID)
					return
				}
			}

			if len(events) > 0 {
				keepAlive.Reset(s.keepAlive)
				continue
			}

			// An expired session will never produce a done event; end the
			// stream instead of keeping a dead poll loop alive.
			live, err := s.engine.SessionExists(r.Context(), sessionID)
			if err != nil || !live {
				s.logger.Info("Stream session gone", "session_id", sessionID)
				return
			}
		}
	}
}

// ListTools handles GET /api/tools.
func (s *Server) ListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Tools())
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "err", err)
	}
}
