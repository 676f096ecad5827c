package hub

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jpalmerr/relayboard/internal/metrics"
)

// DefaultBufferSize is the per-subscription channel buffer used when none is configured.
const DefaultBufferSize = 64

// Subscription is one registry entry, usually backing a single client connection.
type Subscription struct {
	// ID identifies the subscription in logs.
	ID uuid.UUID

	// Transport names the delivery mechanism ("sse", "websocket", "callback").
	Transport string

	events chan Event
	closed bool
}

// Events returns the channel on which published events arrive.
//
// The channel is closed when the subscription is removed, either by
// [Hub.Unsubscribe], by eviction of a slow subscriber, or by [Hub.Close].
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Hub fans events out to all registered subscriptions.
//
// Hub is safe for concurrent use.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscription
	bufferSize  int
	closed      bool
	logger      *slog.Logger
}

// New creates an empty [Hub]. A bufferSize below 1 selects [DefaultBufferSize].
func New(bufferSize int, logger *slog.Logger) *Hub {
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[uuid.UUID]*Subscription),
		bufferSize:  bufferSize,
		logger:      logger,
	}
}

// Subscribe registers a new subscription for the given transport.
//
// After [Hub.Close] the returned subscription is already closed.
func (h *Hub) Subscribe(transport string) *Subscription {
	sub := &Subscription{
		ID:        uuid.New(),
		Transport: transport,
		events:    make(chan Event, h.bufferSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		sub.closed = true
		close(sub.events)
		return sub
	}

	h.subscribers[sub.ID] = sub
	metrics.Subscribers.WithLabelValues(transport).Inc()
	h.logger.Debug("subscriber added",
		"subscriber_id", sub.ID.String(),
		"transport", transport,
		"subscribers", len(h.subscribers),
	)
	return sub
}

// Unsubscribe removes the subscription and closes its channel.
// Safe to call more than once and after the subscription was evicted.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.remove(sub) {
		h.logger.Debug("subscriber removed",
			"subscriber_id", sub.ID.String(),
			"transport", sub.Transport,
			"subscribers", len(h.subscribers),
		)
	}
}

// Publish delivers the event to every subscription.
//
// Publish never blocks. A subscription whose buffer is full is evicted.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	metrics.EventsPublished.WithLabelValues(ev.Name).Inc()

	var slow []*Subscription
	for _, sub := range h.subscribers {
		select {
		case sub.events <- ev:
		default:
			slow = append(slow, sub)
		}
	}

	for _, sub := range slow {
		h.remove(sub)
		metrics.SubscribersEvicted.Inc()
		h.logger.Warn("evicting slow subscriber",
			"subscriber_id", sub.ID.String(),
			"transport", sub.Transport,
			"event", ev.Name,
		)
	}
}

// Len returns the number of live subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close removes every subscription and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for _, sub := range h.subscribers {
		h.remove(sub)
	}
}

// remove deletes sub from the registry and closes its channel.
// Caller must hold h.mu. Reports whether sub was registered.
func (h *Hub) remove(sub *Subscription) bool {
	if sub.closed {
		return false
	}
	if _, ok := h.subscribers[sub.ID]; !ok {
		return false
	}
	delete(h.subscribers, sub.ID)
	sub.closed = true
	close(sub.events)
	metrics.Subscribers.WithLabelValues(sub.Transport).Dec()
	return true
}
