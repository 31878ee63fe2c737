package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Poll cycle outcomes.
const (
	PollRan     = "ran"
	PollSkipped = "skipped"
)

// Notification kinds, mirrored from the dashboard.
const (
	NotificationSuccess = "success"
	NotificationError   = "error"
)

var (
	// Backend calls
	backendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_backend_requests_total",
		Help: "Total task backend requests by operation and outcome",
	}, []string{"operation", "status"})

	backendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskboard_backend_request_duration_seconds",
		Help:    "Task backend request latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"operation"})

	// Controller
	pollCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_poll_cycles_total",
		Help: "Poll ticks by result (ran or skipped because a load was in flight)",
	}, []string{"result"})

	rendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_renders_total",
		Help: "Render notifications delivered per renderer",
	}, []string{"renderer"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_notifications_total",
		Help: "Transient notifications raised by kind",
	}, []string{"kind"})

	authResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskboard_auth_resolutions_total",
		Help: "Auth token resolutions by source tier",
	}, []string{"source"})
)

// RecordBackendRequest records one call to the task backend. status is the
// HTTP status code as text, or "network_error".
func RecordBackendRequest(operation, status string, seconds float64) {
	backendRequestsTotal.WithLabelValues(operation, status).Inc()
	backendRequestDuration.WithLabelValues(operation).Observe(seconds)
}

// IncrementPollCycle counts a poll tick.
func IncrementPollCycle(result string) {
	pollCyclesTotal.WithLabelValues(result).Inc()
}

// IncrementRender counts a render delivered to renderer.
func IncrementRender(renderer string) {
	rendersTotal.WithLabelValues(renderer).Inc()
}

// IncrementNotification counts a notification of kind.
func IncrementNotification(kind string) {
	notificationsTotal.WithLabelValues(kind).Inc()
}

// IncrementAuthResolution counts where a token was found.
func IncrementAuthResolution(source string) {
	authResolutionsTotal.WithLabelValues(source).Inc()
}
