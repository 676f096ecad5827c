// Package metrics defines the Prometheus collectors exported by the relay.
//
// Collectors are registered with the default registry via promauto and served
// by the HTTP server on /metrics when metrics are enabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// History metrics
var (
	// ItemsAccepted counts items stored by sequence (coordinates, images, banners).
	ItemsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_items_accepted_total",
			Help: "Total items accepted into history by sequence",
		},
		[]string{"sequence"},
	)

	// ItemsEvicted counts items dropped from a bounded sequence.
	ItemsEvicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_items_evicted_total",
			Help: "Total items evicted from bounded history by sequence",
		},
		[]string{"sequence"},
	)

	// HistorySize tracks the current length of each sequence.
	HistorySize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_history_size",
			Help: "Current number of records held per sequence",
		},
		[]string{"sequence"},
	)

	// BannerMatches counts banner posts by whether they updated an image.
	BannerMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_banner_attach_total",
			Help: "Banner records received by outcome (matched/unmatched)",
		},
		[]string{"outcome"},
	)
)

// Push metrics
var (
	// Subscribers tracks live hub subscriptions by transport.
	Subscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_push_subscribers",
			Help: "Live push subscriptions by transport",
		},
		[]string{"transport"},
	)

	// EventsPublished counts events published to the hub by event name.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_push_events_published_total",
			Help: "Events published to all subscribers by event name",
		},
		[]string{"event"},
	)

	// SubscribersEvicted counts subscriptions dropped because their buffer was full.
	SubscribersEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_push_subscribers_evicted_total",
			Help: "Subscriptions closed because the subscriber could not keep up",
		},
	)
)

// HTTP metrics
var (
	// RequestsRejected counts API requests refused before reaching the store.
	RequestsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_rejected_total",
			Help: "API requests rejected by reason (invalid, rate_limited, not_found, internal)",
		},
		[]string{"reason"},
	)
)
