// Package store holds the relay's in-memory history.
//
// Three independent sequences are kept in process memory:
//
//   - coordinates: sensor readings, oldest first, bounded (100 by default)
//   - images: image references, newest first, unbounded unless configured
//   - banners: banner metadata, arrival order, unbounded unless configured
//
// The main components are:
//
//   - [Store]: Interface defining history and subscription operations
//   - [HistoryStore]: In-memory implementation that publishes every change to a hub
//   - [CoordinateRecord], [ImageRecord], [BannerRecord]: Stored record types
//
// Every mutation and the broadcast of its events form one critical section,
// so a request can never be observed half-applied, and new subscribers are
// seeded with snapshots consistent with the live events that follow.
package store
