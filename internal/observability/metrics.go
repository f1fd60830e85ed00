// Package observability provides logging, metrics, and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedEventsPublished counts feed events handed to the fan-out by action and path.
	FeedEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_feed_events_published_total",
		Help: "Total number of feed events published",
	}, []string{"action", "path"})

	// FeedEventsDelivered counts feed events written to local websocket clients.
	FeedEventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_feed_events_delivered_total",
		Help: "Total number of feed event deliveries to websocket clients",
	})

	// WebSocketConnectionsTotal is the gauge of registered feed clients.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inkwell_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// BlobReleaseFailures counts image deletions that failed and were ignored.
	BlobReleaseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inkwell_blob_release_failures_total",
		Help: "Total number of image deletions that failed",
	})

	// OperationsTotal counts operation endpoint calls by operation and outcome code.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_operations_total",
		Help: "Total operation endpoint calls by operation and result",
	}, []string{"operation", "result"})
)
