package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogify_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blogify_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blogify_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// PostRoomsActive is the gauge of post rooms with at least one subscriber.
	PostRoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "blogify_post_rooms_active",
		Help: "Number of post rooms with at least one joined client",
	})

	// RealtimeEventsTotal counts realtime events by type and delivery path.
	RealtimeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogify_realtime_events_total",
		Help: "Total realtime events by type and delivery path",
	}, []string{"event_type", "path"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blogify_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// ImageProcessingDuration records upload processing latency by kind.
	ImageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blogify_image_processing_seconds",
		Help:    "Image decode, resize and encode latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
