// Package server provides the HTTP surface of RelayBoard.
//
// It serves three things from a single listener:
//
//   - REST API: JSON endpoints under "/api" to submit and read coordinates,
//     images and banner records, and to clear history
//   - Push streams: Server-Sent Events at "/api/events" and WebSocket at "/ws",
//     each seeded with the current histories and then fed every relay event
//   - Static content: the embedded viewer or a configured directory at "/",
//     plus "/healthz" and optionally "/metrics"
//
// All write endpoints share a token-bucket rate limit when one is configured.
// Handler panics are recovered into a 500 response carrying an errorId that
// matches the server log entry.
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the relayboard library should not need to interact with this
// package directly. The server is started automatically by [relayboard.RelayBoard.Start].
package server
