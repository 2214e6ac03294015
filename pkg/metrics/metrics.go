package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsPublished counts notifications handed to the bus, by event kind.
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_events_published_total",
			Help: "Total number of notification events published on the bus",
		},
		[]string{"kind"},
	)

	// EventsDelivered counts payloads enqueued to subscriber queues.
	EventsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_events_delivered_total",
			Help: "Total number of payloads enqueued to live subscribers",
		},
	)

	// EventsDropped counts payloads evicted from stalled subscriber queues.
	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_events_dropped_total",
			Help: "Total number of payloads dropped due to subscriber backpressure",
		},
	)

	// IntakeFailures counts inbound events rejected during validation or persistence.
	IntakeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notify_intake_failures_total",
			Help: "Total number of inbound events that failed processing",
		},
		[]string{"kind", "reason"},
	)

	// ActiveSubscribers tracks currently registered live subscriptions.
	ActiveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notify_active_subscribers",
			Help: "Number of active live-stream subscriptions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notify_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
