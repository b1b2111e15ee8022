package arbor

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"log/slog"

	"github.com/aretw0/arbor/internal/adapters/memory"
	"github.com/aretw0/arbor/internal/adapters/redis"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/dispatch"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/metrics"
	"github.com/aretw0/arbor/internal/planner"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/aretw0/arbor/pkg/tools"
)

// Version is the library version, embedded from the VERSION file.
//
//go:embed VERSION
var Version string

// Engine is the high-level entry point for the arbor library. It wires the
// event channel, session manager, tool registry, planner and dispatcher,
// and provides a simplified API for consumers.
type Engine struct {
	cfg        *config.Config
	channel    ports.EventChannel
	sessions   *session.Manager
	registry   *registry.Registry
	planner    ports.Planner
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithConfig supplies a loaded configuration. Defaults apply otherwise.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithChannel injects a custom event channel, bypassing the configured
// backend selection.
func WithChannel(ch ports.EventChannel) Option {
	return func(e *Engine) {
		e.channel = ch
	}
}

// WithRegistry injects a custom tool registry. Built-in tools are not
// added to an injected registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = reg
	}
}

// WithPlanner injects a custom planner implementation.
func WithPlanner(p ports.Planner) Option {
	return func(e *Engine) {
		e.planner = p
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics wires Prometheus collectors through every component.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithClock overrides the time source of the default in-memory channel,
// which makes session expiry deterministic in tests. Injected or remote
// channels keep their own clocks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New initializes a new arbor Engine. By default it runs on the in-memory
// channel with the built-in tools and an unconfigured planner; supply a
// config or options to change any of that.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.cfg == nil {
		eng.cfg = config.Default()
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	// Channel backend per configuration, unless one was injected.
	if eng.channel == nil {
		switch eng.cfg.Channel {
		case config.ChannelRedis:
			eng.channel = redis.New(eng.cfg.Redis.Address, eng.cfg.Redis.Password, eng.cfg.Redis.DB,
				redis.WithTTL(eng.cfg.SessionTTL()))
		case config.ChannelMemory, "":
			eng.channel = memory.New(
				memory.WithTTL(eng.cfg.SessionTTL()),
				memory.WithClock(eng.now),
			)
		default:
			return nil, fmt.Errorf("unknown channel backend %q", eng.cfg.Channel)
		}
	}

	if eng.registry == nil {
		eng.registry = registry.New()
		if err := tools.RegisterBuiltins(eng.registry); err != nil {
			return nil, fmt.Errorf("failed to register built-in tools: %w", err)
		}
		if path := eng.cfg.Tools.Path; path != "" {
			if err := tools.RegisterProcessTools(eng.registry, path); err != nil {
				return nil, fmt.Errorf("failed to register process tools: %w", err)
			}
		}
	}

	if eng.planner == nil {
		model := eng.cfg.Planner.Model
		if model == "" {
			model = planner.DefaultModel
		}
		eng.planner = planner.New(eng.channel, eng.registry, model,
			planner.WithAPIKey(eng.cfg.Planner.APIKey),
			planner.WithBaseURL(eng.cfg.Planner.BaseURL),
			planner.WithTimeout(eng.cfg.PlannerTimeout()),
			planner.WithLogger(eng.logger),
			planner.WithMetrics(eng.metrics),
		)
	}

	eng.sessions = session.NewManager(eng.channel, session.WithLogger(eng.logger))
	eng.dispatcher = dispatch.New(eng.channel, eng.registry, eng.planner,
		dispatch.WithLogger(eng.logger),
		dispatch.WithMetrics(eng.metrics),
	)

	return eng, nil
}

// CreateSession allocates a fresh event channel session and returns its id.
func (e *Engine) CreateSession(ctx context.Context) (string, error) {
	return e.sessions.Create(ctx)
}

// SessionExists reports whether the session is known and unexpired.
func (e *Engine) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	return e.sessions.Exists(ctx, sessionID)
}

// Run validates the graph and executes it synchronously, returning the
// final recorded state per node id. Node-level failures are represented in
// the map, not as errors; only input validation fails the call.
func (e *Engine) Run(ctx context.Context, sessionID string, g *domain.Graph) (map[string]domain.StatePatch, error) {
	if err := validator.ValidateGraph(g); err != nil {
		return nil, err
	}
	return e.dispatcher.Execute(ctx, sessionID, g), nil
}

// Submit validates the graph and starts a detached run. The caller's
// context does not bound the run; progress is observable on the session's
// event stream.
func (e *Engine) Submit(ctx context.Context, sessionID string, g *domain.Graph) error {
	if err := validator.ValidateGraph(g); err != nil {
		return err
	}

	runCtx := context.WithoutCancel(ctx)
	go e.dispatcher.Execute(runCtx, sessionID, g)
	return nil
}

// Drain removes and returns up to max pending events for the session, in
// arrival order.
func (e *Engine) Drain(ctx context.Context, sessionID string, max int) ([]domain.Event, error) {
	return e.sessions.Drain(ctx, sessionID, max)
}

// Tools returns descriptors for every registered tool.
func (e *Engine) Tools() []ports.ToolDescriptor {
	return e.registry.Describe(nil)
}

// Registry returns the underlying tool registry, so embedders can register
// their own tools before serving.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Channel returns the underlying event channel.
func (e *Engine) Channel() ports.EventChannel {
	return e.channel
}
