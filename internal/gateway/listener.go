package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/edgegate/internal/observability"
)

// ListenerConfig configures one HTTP listener.
type ListenerConfig struct {
	Name         string
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Listener represents an HTTP listener.
type Listener struct {
	config  ListenerConfig
	server  *http.Server
	handler http.Handler
	logger  observability.Logger
	addr    atomic.Value
	running atomic.Bool
	done    chan struct{}
}

// NewListener creates a new listener.
func NewListener(cfg ListenerConfig, handler http.Handler, logger observability.Logger) *Listener {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Listener{
		config:  cfg,
		handler: handler,
		logger:  logger,
	}
}

// Name returns the listener name.
func (l *Listener) Name() string {
	return l.config.Name
}

// Addr returns the bound address once the listener is started, or the
// configured address before.
func (l *Listener) Addr() string {
	if a, ok := l.addr.Load().(string); ok {
		return a
	}
	return l.config.Address
}

// Start binds the address and serves in the background.
func (l *Listener) Start(ctx context.Context) error {
	if l.running.Load() {
		return fmt.Errorf("%w: %s", ErrListenerRunning, l.config.Name)
	}

	l.server = &http.Server{
		Addr:              l.config.Address,
		Handler:           l.handler,
		ReadTimeout:       l.config.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      l.config.WriteTimeout,
		IdleTimeout:       l.config.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", l.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.config.Address, err)
	}
	l.addr.Store(ln.Addr().String())
	l.running.Store(true)
	l.done = make(chan struct{})

	l.logger.Info("listener started",
		observability.String("name", l.config.Name),
		observability.String("address", l.Addr()),
	)

	go l.serve(ln)
	return nil
}

func (l *Listener) serve(ln net.Listener) {
	defer close(l.done)

	if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.logger.Error("listener error",
			observability.String("name", l.config.Name),
			observability.Error(err),
		)
	}
	l.running.Store(false)
}

// Stop shuts the listener down gracefully, closing it forcibly when ctx
// expires first.
func (l *Listener) Stop(ctx context.Context) error {
	if l.server == nil || !l.running.Load() {
		return nil
	}

	l.logger.Info("stopping listener", observability.String("name", l.config.Name))

	if err := l.server.Shutdown(ctx); err != nil {
		if closeErr := l.server.Close(); closeErr != nil {
			return fmt.Errorf("failed to close listener %s: %w", l.config.Name, closeErr)
		}
		return fmt.Errorf("failed to shutdown listener %s gracefully: %w", l.config.Name, err)
	}
	<-l.done

	l.logger.Info("listener stopped", observability.String("name", l.config.Name))
	return nil
}

// IsRunning returns true if the listener is running.
func (l *Listener) IsRunning() bool {
	return l.running.Load()
}
