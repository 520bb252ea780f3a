package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Per-message dispatch outcomes.
	DispatchCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatch_total",
			Help: "Total number of messages attempted by the bulk dispatcher",
		},
		[]string{"category", "status"}, // status: success, failed
	)

	// Batches rejected before any send because the channel was down.
	DispatchRejectedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatch_rejected_total",
			Help: "Total number of batches rejected because the channel was unavailable",
		},
		[]string{"channel"},
	)

	// Single send latency (milliseconds).
	SendLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_send_latency_ms",
			Help:    "Latency of a single message send in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"status"},
	)

	// Task lifecycle transitions.
	TransitionCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_transition_total",
			Help: "Total number of task lifecycle transitions",
		},
		[]string{"op", "status"}, // status: success, rejected, error
	)

	// Reminder worker runs.
	ReminderCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_reminder_total",
			Help: "Total number of reminder evaluations",
		},
		[]string{"result"}, // result: sent, skipped, locked, failed
	)
)

// RecordSend records the outcome and latency of one send.
func RecordSend(category string, succeeded bool, duration time.Duration) {
	status := "success"
	if !succeeded {
		status = "failed"
	}
	DispatchCount.WithLabelValues(category, status).Inc()
	SendLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

// IncrementDispatchRejected counts a batch refused by the channel guard.
func IncrementDispatchRejected(channel string) {
	DispatchRejectedCount.WithLabelValues(channel).Inc()
}

// IncrementTransition counts a lifecycle transition attempt.
func IncrementTransition(op, status string) {
	TransitionCount.WithLabelValues(op, status).Inc()
}

// IncrementReminder counts a reminder evaluation result.
func IncrementReminder(result string) {
	ReminderCount.WithLabelValues(result).Inc()
}
