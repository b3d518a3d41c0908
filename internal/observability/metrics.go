package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce              sync.Once
	requestsTotal             *prometheus.CounterVec
	requestLatencySeconds     *prometheus.HistogramVec
	auditEntriesTotal         *prometheus.CounterVec
	auditDroppedTotal         prometheus.Counter
	auditWriteFailuresTotal   prometheus.Counter
	notificationsCreatedTotal *prometheus.CounterVec
	notificationPollsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "personnel_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		requestLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "personnel_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		auditEntriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "personnel_audit_entries_total",
			Help: "Audit entries persisted, by action.",
		}, []string{"action"})

		auditDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "personnel_audit_dropped_total",
			Help: "Audit entries dropped because the recorder queue was full.",
		})

		auditWriteFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "personnel_audit_write_failures_total",
			Help: "Audit entries lost to persistence failures.",
		})

		notificationsCreatedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "personnel_notifications_created_total",
			Help: "Notifications created, by type.",
		}, []string{"type"})

		notificationPollsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "personnel_notification_polls_total",
			Help: "Notification feed polls served, by recipient type.",
		}, []string{"recipient_type"})

		prometheus.MustRegister(
			requestsTotal,
			requestLatencySeconds,
			auditEntriesTotal,
			auditDroppedTotal,
			auditWriteFailuresTotal,
			notificationsCreatedTotal,
			notificationPollsTotal,
		)
	})
}

// Requests exposes the request counter.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// RequestLatency exposes the request latency histogram.
func RequestLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatencySeconds
}

// AuditEntries exposes the persisted-audit-entry counter.
func AuditEntries() *prometheus.CounterVec {
	RegisterMetrics()
	return auditEntriesTotal
}

// AuditDropped exposes the dropped-entry counter.
func AuditDropped() prometheus.Counter {
	RegisterMetrics()
	return auditDroppedTotal
}

// AuditWriteFailures exposes the failed-write counter.
func AuditWriteFailures() prometheus.Counter {
	RegisterMetrics()
	return auditWriteFailuresTotal
}

// NotificationsCreated exposes the created-notification counter.
func NotificationsCreated() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsCreatedTotal
}

// NotificationPolls exposes the feed-poll counter.
func NotificationPolls() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationPollsTotal
}
