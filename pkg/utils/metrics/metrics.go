// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collectdesk_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collectdesk_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// ChangeEventsPublished counts events handed to the change feed.
	ChangeEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collectdesk_change_events_published_total",
			Help: "Change events published, by collection, type and result",
		},
		[]string{"collection", "type", "result"},
	)

	// ChangeEventsDropped counts events discarded for slow subscribers.
	ChangeEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collectdesk_change_events_dropped_total",
			Help: "Change events dropped because a subscriber buffer was full",
		},
		[]string{"collection"},
	)

	// RealtimeSessionsActive tracks open WebSocket sessions.
	RealtimeSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "collectdesk_realtime_sessions_active",
			Help: "Number of open WebSocket sessions",
		},
	)

	// SagaStepFailures counts best-effort steps that failed after the
	// primary write succeeded.
	SagaStepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collectdesk_saga_step_failures_total",
			Help: "Failed follow-up steps of multi-write operations",
		},
		[]string{"operation", "step"},
	)

	// ActionsLogged counts audit log entries by type.
	ActionsLogged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collectdesk_actions_logged_total",
			Help: "Actions appended to case audit logs",
		},
		[]string{"action_type"},
	)

	// BackgroundTasks counts detached tasks by name and result.
	BackgroundTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collectdesk_background_tasks_total",
			Help: "Background tasks by name and result",
		},
		[]string{"task", "result"},
	)

	// DocumentsUploaded counts case document uploads by result.
	DocumentsUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collectdesk_documents_uploaded_total",
			Help: "Case document uploads by result",
		},
		[]string{"result"},
	)
)

// RecordRequest records an HTTP request's metrics.
func RecordRequest(method, route, status string, durationSec float64) {
	RequestDuration.WithLabelValues(method, route, status).Observe(durationSec)
	RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// RecordPublish records the result of a change feed publish.
func RecordPublish(collection, eventType string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ChangeEventsPublished.WithLabelValues(collection, eventType, result).Inc()
}

// RecordSagaFailure records a failed follow-up step.
func RecordSagaFailure(operation, step string) {
	SagaStepFailures.WithLabelValues(operation, step).Inc()
}

// RecordBackgroundTask records how a detached task ended.
func RecordBackgroundTask(task, result string) {
	BackgroundTasks.WithLabelValues(task, result).Inc()
}
