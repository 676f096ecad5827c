package relayboard

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jpalmerr/relayboard/internal/store"
)

// rbConfig holds mutable state during RelayBoard construction.
type rbConfig struct {
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
}

// Option is a function that configures a [RelayBoard] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*rbConfig) error

// WithPort sets the HTTP port for the API and push streams.
//
// Defaults to 3000 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *rbConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the RelayBoard instance.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *rbConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithTitle sets the viewer title displayed in the browser tab and header.
//
// If not specified, defaults to "RelayBoard".
func WithTitle(title string) Option {
	return func(cfg *rbConfig) error {
		cfg.title = title
		return nil
	}
}

// WithCoordinateLimit sets how many coordinate records are retained. Once
// full, the oldest record is evicted for each new one. Defaults to 100.
//
// Returns an error if n is zero or negative.
func WithCoordinateLimit(n int) Option {
	return func(cfg *rbConfig) error {
		if n <= 0 {
			return errors.New("coordinate limit must be positive")
		}
		cfg.limits.Coordinates = n
		return nil
	}
}

// WithImageLimit bounds the image history, evicting the oldest image when
// exceeded. 0 (the default) means unbounded.
//
// Returns an error if n is negative.
func WithImageLimit(n int) Option {
	return func(cfg *rbConfig) error {
		if n < 0 {
			return errors.New("image limit cannot be negative")
		}
		cfg.limits.Images = n
		return nil
	}
}

// WithBannerLimit bounds the banner history, evicting the oldest record when
// exceeded. 0 (the default) means unbounded.
//
// Returns an error if n is negative.
func WithBannerLimit(n int) Option {
	return func(cfg *rbConfig) error {
		if n < 0 {
			return errors.New("banner limit cannot be negative")
		}
		cfg.limits.Banners = n
		return nil
	}
}

// WithStaticDir serves the files in dir at "/" instead of the embedded viewer.
func WithStaticDir(dir string) Option {
	return func(cfg *rbConfig) error {
		cfg.staticDir = dir
		return nil
	}
}

// WithAllowedOrigin sets the Access-Control-Allow-Origin value and the origin
// accepted on WebSocket upgrades. Defaults to "*".
//
// Returns an error if origin is empty.
func WithAllowedOrigin(origin string) Option {
	return func(cfg *rbConfig) error {
		if origin == "" {
			return errors.New("allowed origin cannot be empty")
		}
		cfg.allowedOrigin = origin
		return nil
	}
}

// WithWriteRateLimit limits POST and DELETE requests to rps per second with
// the given burst, shared across all clients. Excess requests get 429.
// An rps of 0 disables limiting, which is the default.
//
// Returns an error if rps is negative or burst is below 1 while rps is set.
func WithWriteRateLimit(rps float64, burst int) Option {
	return func(cfg *rbConfig) error {
		if rps < 0 {
			return errors.New("write rate limit cannot be negative")
		}
		if rps > 0 && burst < 1 {
			return errors.New("write burst must be at least 1")
		}
		cfg.writeRate = rps
		cfg.writeBurst = burst
		return nil
	}
}

// WithSubscriberBuffer sets how many events may queue for one push client
// before it is disconnected as too slow. Defaults to 64.
//
// Returns an error if n is zero or negative.
func WithSubscriberBuffer(n int) Option {
	return func(cfg *rbConfig) error {
		if n <= 0 {
			return errors.New("subscriber buffer must be positive")
		}
		cfg.bufferSize = n
		return nil
	}
}

// WithPingInterval sets how often WebSocket clients are pinged. A client
// that does not answer within two intervals is disconnected. Defaults to 30s.
//
// Returns an error if the duration is zero or negative.
func WithPingInterval(d time.Duration) Option {
	return func(cfg *rbConfig) error {
		if d <= 0 {
			return errors.New("ping interval must be positive")
		}
		cfg.pingInterval = d
		return nil
	}
}

// WithSSE enables or disables the Server-Sent Events stream at /api/events.
// Enabled by default.
func WithSSE(enabled bool) Option {
	return func(cfg *rbConfig) error {
		cfg.enableSSE = enabled
		return nil
	}
}

// WithWebSocket enables or disables the WebSocket stream at /ws.
// Enabled by default.
func WithWebSocket(enabled bool) Option {
	return func(cfg *rbConfig) error {
		cfg.enableWS = enabled
		return nil
	}
}

// WithMetrics enables or disables Prometheus metrics at /metrics.
// Disabled by default.
func WithMetrics(enabled bool) Option {
	return func(cfg *rbConfig) error {
		cfg.enableMetrics = enabled
		return nil
	}
}

// WithClock sets the clock used for record timestamps and WebSocket pings.
// Intended for tests; defaults to the real clock.
//
// Returns an error if the clock is nil.
func WithClock(clock clockwork.Clock) Option {
	return func(cfg *rbConfig) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = clock
		return nil
	}
}

// WithEventCallback registers a function to be called for every broadcast
// event.
//
// The callback receives the same [Event] that push clients receive, in
// publish order. Multiple callbacks may be registered; they execute in
// registration order.
//
// IMPORTANT: Callbacks must be non-blocking. Callbacks run on a single
// goroutine that is subject to the same buffer as push clients: if they fall
// too far behind they are detached and a warning is logged.
//
// Panics within callbacks are recovered and logged.
//
// Example:
//
//	rb, err := relayboard.New(
//	    relayboard.WithEventCallback(func(ev relayboard.Event) {
//	        if ev.Name == relayboard.EventNewImage {
//	            log.Printf("image received: %s", ev.Data)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithEventCallback(cb func(Event)) Option {
	return func(cfg *rbConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.eventCallbacks = append(cfg.eventCallbacks, cb)
		return nil
	}
}
