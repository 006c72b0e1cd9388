package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "farm_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	// Reading metrics
	ReadingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_readings_total",
			Help: "Sensor readings processed, by classification",
		},
		[]string{"sensor", "status"}, // status: optimal, warning, unknown
	)

	ReadingsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_readings_rejected_total",
			Help: "Reading messages that could not be decoded",
		},
		[]string{"source"},
	)

	// Alert metrics
	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_alerts_fired_total",
			Help: "Alert events emitted by the rule engine",
		},
		[]string{"rule", "severity"},
	)

	AlertTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_alert_transitions_total",
			Help: "Alert lifecycle transitions",
		},
		[]string{"status"},
	)

	JournalWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_alert_journal_writes_total",
			Help: "Alert journal writes by result",
		},
		[]string{"result"}, // result: success, failed, dropped
	)

	// Notification metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_notifications_total",
			Help: "Notification deliveries by channel and result",
		},
		[]string{"channel", "result"}, // result: sent, failed, skipped, dropped
	)

	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "farm_notification_duration_seconds",
			Help:    "Time spent delivering one notification",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "farm_notification_queue_depth",
			Help: "Alert handoffs waiting for a delivery worker",
		},
	)

	// MQTT metrics
	MQTTMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "farm_mqtt_messages_total",
			Help: "MQTT messages received, by handling result",
		},
		[]string{"result"}, // result: handled, failed, unrouted
	)

	MQTTConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "farm_mqtt_connected",
			Help: "1 while the broker session is up",
		},
	)

	// WebSocket metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "farm_websocket_clients",
			Help: "Connected dashboard clients",
		},
	)
)
