// Package hub is the registry of live push connections.
//
// Each connected client (SSE stream, WebSocket, or an in-process callback
// consumer) holds one [Subscription]. [Hub.Publish] fans an [Event] out to
// every subscription without blocking: a subscriber whose buffer is full is
// evicted and its channel closed, so it can reconnect and be seeded with a
// fresh snapshot instead of silently missing history.
//
// Event payloads are encoded once by the publisher, so every transport writes
// identical bytes.
package hub
