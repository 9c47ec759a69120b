package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/edgegate/internal/config"
	"github.com/vyrodovalexey/edgegate/internal/observability"
)

// State represents the gateway state.
type State int32

const (
	// StateStopped indicates the gateway is stopped.
	StateStopped State = iota
	// StateStarting indicates the gateway is starting.
	StateStarting
	// StateRunning indicates the gateway is running.
	StateRunning
	// StateStopping indicates the gateway is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Gateway runs the public and operations listeners.
type Gateway struct {
	public    *Listener
	ops       *Listener
	logger    observability.Logger
	state     atomic.Int32
	startTime time.Time

	shutdownTimeout time.Duration
	onDrain         func()
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithShutdownTimeout sets the shutdown timeout.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		if timeout > 0 {
			g.shutdownTimeout = timeout
		}
	}
}

// WithDrainHook registers a function called when shutdown begins, before
// the public listener stops accepting connections.
func WithDrainHook(fn func()) Option {
	return func(g *Gateway) {
		g.onDrain = fn
	}
}

// New creates a gateway serving public on cfg.Server.Address and ops on
// cfg.Ops.Address. A nil ops handler disables the operations listener.
func New(cfg *config.Config, public, ops http.Handler, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	g := &Gateway{
		logger:          observability.NopLogger(),
		shutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
	}
	if g.shutdownTimeout <= 0 {
		g.shutdownTimeout = 30 * time.Second
	}
	for _, opt := range opts {
		opt(g)
	}

	g.public = NewListener(ListenerConfig{
		Name:         "public",
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
		WriteTimeout: cfg.Server.WriteTimeout.Duration(),
		IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
	}, public, g.logger)

	if ops != nil {
		g.ops = NewListener(ListenerConfig{
			Name:         "ops",
			Address:      cfg.Ops.Address,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		}, ops, g.logger)
	}

	g.state.Store(int32(StateStopped))
	return g, nil
}

// Start starts the listeners. The operations listener comes up first so
// probes answer as soon as traffic can arrive.
func (g *Gateway) Start(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrGatewayNotStopped
	}

	if g.ops != nil {
		if err := g.ops.Start(ctx); err != nil {
			g.state.Store(int32(StateStopped))
			return fmt.Errorf("failed to start listener %s: %w", g.ops.Name(), err)
		}
	}
	if err := g.public.Start(ctx); err != nil {
		if g.ops != nil {
			_ = g.ops.Stop(ctx)
		}
		g.state.Store(int32(StateStopped))
		return fmt.Errorf("failed to start listener %s: %w", g.public.Name(), err)
	}

	g.startTime = time.Now()
	g.state.Store(int32(StateRunning))
	g.logger.Info("gateway started",
		observability.String("public_address", g.public.Addr()),
		observability.String("ops_address", g.OpsAddr()),
	)
	return nil
}

// Stop drains and stops the listeners. The public listener stops first so
// that probes keep answering while in-flight requests finish.
func (g *Gateway) Stop(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrGatewayNotRunning
	}

	g.logger.Info("stopping gateway")
	if g.onDrain != nil {
		g.onDrain()
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.shutdownTimeout)
		defer cancel()
	}

	var firstErr error
	if err := g.public.Stop(ctx); err != nil {
		firstErr = err
	}
	if g.ops != nil {
		if err := g.ops.Stop(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	g.state.Store(int32(StateStopped))
	g.logger.Info("gateway stopped", observability.Duration("uptime", g.Uptime()))
	return firstErr
}

// State returns the current gateway state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// IsRunning returns true if the gateway is running.
func (g *Gateway) IsRunning() bool {
	return g.State() == StateRunning
}

// Uptime returns the gateway uptime.
func (g *Gateway) Uptime() time.Duration {
	if g.startTime.IsZero() {
		return 0
	}
	return time.Since(g.startTime)
}

// PublicAddr returns the address of the public listener.
func (g *Gateway) PublicAddr() string {
	return g.public.Addr()
}

// OpsAddr returns the address of the operations listener, or "" when it is
// disabled.
func (g *Gateway) OpsAddr() string {
	if g.ops == nil {
		return ""
	}
	return g.ops.Addr()
}
