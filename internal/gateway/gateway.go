// Package gateway serves the local observability endpoints of a running
// agent: health, Prometheus metrics, the current trajectory, and a
// websocket stream of step events.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// ErrNotStarted is returned by Addr before Start.
var ErrNotStarted = errors.New("gateway: not started")

// Snapshotter renders the current trajectory as JSON.
// *trajectory.Recorder satisfies it.
type Snapshotter interface {
	Snapshot() ([]byte, error)
}

// BreakerReporter exposes the model client's circuit breaker state.
// *llm.Client satisfies it.
type BreakerReporter interface {
	BreakerState() string
}

// Options holds the dependencies of a Gateway. Only Config is required.
type Options struct {
	Config  Config
	Metrics http.Handler
	Breaker BreakerReporter
	Hub     *Hub
	Logger  *slog.Logger
}

// Gateway is the HTTP server. Routes whose dependency is missing are not
// mounted.
type Gateway struct {
	config    Config
	metrics   http.Handler
	breaker   BreakerReporter
	hub       *Hub
	logger    *slog.Logger
	startedAt time.Time

	mu         sync.Mutex
	trajectory Snapshotter
	server     *http.Server
	listener   net.Listener
}

// New creates a Gateway. A nil Hub gets a fresh one.
func New(opts Options) *Gateway {
	opts.Config.defaults()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gateway")
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(opts.Config.SubscriberBuffer, logger)
	}
	return &Gateway{
		config:    opts.Config,
		metrics:   opts.Metrics,
		breaker:   opts.Breaker,
		hub:       hub,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Hub returns the step event hub. Register it as an agent observer.
func (g *Gateway) Hub() *Hub { return g.hub }

// SetTrajectory swaps the recorder served on /trajectory. Each task gets
// its own recorder.
func (g *Gateway) SetTrajectory(s Snapshotter) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trajectory = s
}

func (g *Gateway) currentTrajectory() Snapshotter {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.trajectory
}

// Start listens on the configured address and serves in the background.
func (g *Gateway) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", g.config.Bind, err)
	}

	srv := &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: g.config.ReadTimeout,
		WriteTimeout:      g.config.WriteTimeout,
	}

	g.mu.Lock()
	g.server = srv
	g.listener = ln
	g.mu.Unlock()

	go func() {
		g.logger.Info("gateway listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, useful when Bind uses port 0.
func (g *Gateway) Addr() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listener == nil {
		return "", ErrNotStarted
	}
	return g.listener.Addr().String(), nil
}

// Stop closes step streams and shuts the server down gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	g.hub.Close()

	g.mu.Lock()
	srv := g.server
	g.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()
	g.logger.Info("gateway shutting down")
	return srv.Shutdown(ctx)
}
