// Package relayboard provides an embeddable, in-memory HTTP relay for live
// telemetry: sensor coordinates, captured images and the banner overlays
// detected on them.
//
// Producers POST data to a small JSON API. RelayBoard keeps a bounded history
// of each kind and pushes every change to connected viewers over
// Server-Sent Events and WebSocket. A viewer that connects mid-session first
// receives the current histories and then every later event, in order.
//
// # Quick Start
//
//	rb, _ := relayboard.New(relayboard.WithPort(3000))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	rb.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
// RelayBoard uses the functional options pattern for configuration:
//
//	rb, err := relayboard.New(
//	    relayboard.WithPort(8080),
//	    relayboard.WithCoordinateLimit(500),
//	    relayboard.WithImageLimit(200),
//	    relayboard.WithWriteRateLimit(50, 100),
//	    relayboard.WithMetrics(true),
//	)
//
// The config package builds the same options from a YAML file, and the
// relayboard command runs a standalone server from one.
//
// # Events
//
// Every push client and every callback registered with [WithEventCallback]
// sees the same named events:
//
//   - [EventCoordinateHistory], [EventImageHistory]: full snapshots
//   - [EventNewCoordinate], [EventNewImage]: one accepted record
//   - [EventCoordinatesCleared], [EventImagesCleared]: payload-less signals
//
// Banner records have no event of their own. A banner whose image URL matches
// a stored image is attached to that image's metadata under "bannerData" and
// announced through a fresh [EventImageHistory].
//
// # Architecture
//
// RelayBoard consists of several internal packages (under internal/):
//
//   - internal/store: Bounded history with mutation and publish in one critical section
//   - internal/hub: Subscription registry with non-blocking fan-out
//   - internal/server: JSON API, SSE and WebSocket transports, middleware
//   - internal/metrics: Prometheus collectors
//   - dashboard: Embedded web viewer
//
// The internal packages are not part of the public API and may change
// without notice.
package relayboard
