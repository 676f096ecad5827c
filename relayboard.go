package relayboard

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jpalmerr/relayboard/dashboard"
	"github.com/jpalmerr/relayboard/internal/hub"
	"github.com/jpalmerr/relayboard/internal/server"
	"github.com/jpalmerr/relayboard/internal/store"
)

const (
	defaultPort         = 3000
	defaultPingInterval = 30 * time.Second
)

// RelayBoard is the main orchestrator for the relay API and its push streams.
//
// RelayBoard owns the in-memory history, the broadcast hub and the HTTP
// server. It is created using [New] with functional options and started with
// [RelayBoard.Start].
//
// The typical lifecycle is:
//
//	rb, err := relayboard.New(relayboard.WithPort(3000))
//	if err != nil {
//	    slog.Error("failed to create relayboard", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	rb.Start(ctx) // blocks until context cancelled
//
// History lives only as long as Start runs. Each call to Start begins empty.
type RelayBoard struct {
	title          string
	port           int
	limits         store.Limits
	staticDir      string
	allowedOrigin  string
	writeRate      float64
	writeBurst     int
	bufferSize     int
	pingInterval   time.Duration
	enableSSE      bool
	enableWS       bool
	enableMetrics  bool
	clock          clockwork.Clock
	logger         *slog.Logger
	eventCallbacks []func(Event)

	mu   sync.Mutex
	addr net.Addr
}

// New creates a new [RelayBoard] instance with the given options.
//
// All options have sensible defaults:
//   - Port: 3000
//   - Coordinate history: 100 records; image and banner history unbounded
//   - SSE and WebSocket push enabled, metrics disabled
//   - WebSocket ping interval: 30 seconds
//   - CORS origin "*", no write rate limit
//
// Returns an error if any option is invalid.
//
// Example:
//
//	rb, err := relayboard.New(
//	    relayboard.WithPort(8080),
//	    relayboard.WithCoordinateLimit(500),
//	    relayboard.WithMetrics(true),
//	)
func New(opts ...Option) (*RelayBoard, error) {
	cfg := &rbConfig{
		port:          defaultPort,
		limits:        store.DefaultLimits(),
		allowedOrigin: "*",
		bufferSize:    hub.DefaultBufferSize,
		pingInterval:  defaultPingInterval,
		enableSSE:     true,
		enableWS:      true,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.port)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &RelayBoard{
		title:          cfg.title,
		port:           cfg.port,
		limits:         cfg.limits,
		staticDir:      cfg.staticDir,
		allowedOrigin:  cfg.allowedOrigin,
		writeRate:      cfg.writeRate,
		writeBurst:     cfg.writeBurst,
		bufferSize:     cfg.bufferSize,
		pingInterval:   cfg.pingInterval,
		enableSSE:      cfg.enableSSE,
		enableWS:       cfg.enableWS,
		enableMetrics:  cfg.enableMetrics,
		clock:          clock,
		logger:         logger,
		eventCallbacks: cfg.eventCallbacks,
	}, nil
}

// Start builds a fresh history, begins serving HTTP and blocks until ctx is
// cancelled.
//
// During execution:
//
//   - The API is available at http://localhost:<port>/api
//   - Push clients receive events at /api/events (SSE) and /ws (WebSocket)
//   - Registered event callbacks receive every broadcast event
//
// On cancellation every push subscription is closed, callbacks drain, and the
// HTTP server shuts down gracefully.
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails to start.
func (rb *RelayBoard) Start(ctx context.Context) error {
	rb.logger.Info("relayboard starting",
		"port", rb.port,
		"coordinate_limit", rb.limits.Coordinates,
		"image_limit", rb.limits.Images,
		"banner_limit", rb.limits.Banners,
	)

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	bus := hub.New(rb.bufferSize, rb.logger)
	history := store.NewHistoryStore(bus, rb.limits, rb.clock, rb.logger)

	// track the callback consumer goroutine to ensure clean shutdown
	var (
		wg       sync.WaitGroup
		stopping atomic.Bool
	)
	if len(rb.eventCallbacks) > 0 {
		sub, _ := history.Subscribe("callback")
		wg.Add(1)
		go func() {
			defer wg.Done()
			rb.dispatchEvents(sub)
			if !stopping.Load() {
				rb.logger.Warn("event callbacks fell behind and were detached",
					"subscriber_id", sub.ID.String(),
				)
			}
		}()
	}

	// closing the hub ends every push stream and the callback consumer
	cleanup := func() {
		stopping.Store(true)
		bus.Close()
		wg.Wait()
	}

	httpServer := server.NewServer(history, server.Options{
		Port:            rb.port,
		Assets:          dashboard.Assets,
		StaticDir:       rb.staticDir,
		Title:           rb.title,
		AllowedOrigin:   rb.allowedOrigin,
		WriteRateLimit:  rb.writeRate,
		WriteBurst:      rb.writeBurst,
		EnableSSE:       rb.enableSSE,
		EnableWebSocket: rb.enableWS,
		EnableMetrics:   rb.enableMetrics,
		PingInterval:    rb.pingInterval,
		Clock:           rb.clock,
		Logger:          rb.logger,
	})
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	rb.setAddr(httpServer.Addr())
	rb.logger.Info("relay available",
		"url", fmt.Sprintf("http://localhost:%d", rb.port),
		"sse", rb.enableSSE,
		"websocket", rb.enableWS,
		"metrics", rb.enableMetrics,
	)

	<-ctx.Done()
	cleanup()
	rb.setAddr(nil)
	rb.logger.Info("relayboard stopped")
	return nil
}

// dispatchEvents feeds every event on sub to the registered callbacks, in
// registration order, until the subscription closes.
func (rb *RelayBoard) dispatchEvents(sub *hub.Subscription) {
	for ev := range sub.Events() {
		for _, cb := range rb.eventCallbacks {
			invokeCallbackSafe(cb, Event{Name: ev.Name, Data: copyBytes(ev.Data)}, rb.logger)
		}
	}
}

// Port returns the configured HTTP port.
func (rb *RelayBoard) Port() int {
	return rb.port
}

// CoordinateLimit returns the maximum number of retained coordinate records.
func (rb *RelayBoard) CoordinateLimit() int {
	return rb.limits.Coordinates
}

// Addr returns the listen address while [RelayBoard.Start] is serving, or nil.
func (rb *RelayBoard) Addr() net.Addr {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.addr
}

func (rb *RelayBoard) setAddr(addr net.Addr) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.addr = addr
}

// copyBytes returns a copy of the byte slice, or nil if input is nil.
func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// invokeCallbackSafe calls an event callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Event), ev Event, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event callback panicked",
				"panic", r,
				"event", ev.Name,
			)
		}
	}()
	cb(ev)
}
