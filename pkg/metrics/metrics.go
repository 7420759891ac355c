package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks the number of live sockets on this instance.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_active_connections",
			Help: "Number of live WebSocket connections on this instance",
		},
	)

	// Commands tracks executed commands by kind and status.
	Commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_commands_total",
			Help: "Total number of commands by kind and status",
		},
		[]string{"kind", "status"},
	)

	// CommandLatency tracks command execution latency.
	CommandLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realtime_command_latency_seconds",
			Help:    "Latency of command execution against storage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// Notifications tracks routed notifications by delivery path.
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_notifications_total",
			Help: "Total number of routed notifications by path (local, remote, dropped)",
		},
		[]string{"path"},
	)

	// PublishErrors tracks failed best-effort publishes on the bridge.
	PublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_publish_errors_total",
			Help: "Total number of failed pub/sub publishes",
		},
	)

	// TokenErrors tracks handshake token validation failures by type.
	TokenErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_token_errors_total",
			Help: "Total number of token validation errors by type",
		},
		[]string{"error_type"},
	)
)
