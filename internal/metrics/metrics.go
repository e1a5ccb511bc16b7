// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HttpRequestsTotal counts HTTP requests by route, method and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of http requests handled by the service.",
		},
		[]string{"path", "method", "code"},
	)

	// WebhookRequestsTotal counts webhook deliveries by outcome
	// (success, signature, payload, task).
	WebhookRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_requests_total",
			Help: "Total number of queue callbacks received, by outcome.",
		},
		[]string{"outcome"},
	)

	// TaskExecutionTotal counts task executions triggered by the webhook.
	TaskExecutionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_executions_total",
			Help: "Total number of task executions triggered by queue callbacks.",
		},
		[]string{"task_name", "status"},
	)

	// TaskExecutionDuration observes task handler run time.
	TaskExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "task_execution_duration_seconds",
			Help:    "Task handler run time in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_name"},
	)

	// TaskPublishTotal counts messages handed to the queue.
	TaskPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_publish_total",
			Help: "Total number of task invocations published to the queue.",
		},
		[]string{"task_name", "status"},
	)

	// ScheduleSyncTotal counts provider schedules re-created by the reconciler.
	ScheduleSyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_sync_total",
			Help: "Total number of schedule reconciliations, by result.",
		},
		[]string{"result"},
	)

	// IsLeader marks whether this replica currently runs the schedule reconciler.
	IsLeader = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "is_leader",
			Help: "Is this node currently the leader. 1 if leader, 0 otherwise.",
		},
		[]string{"node_id"},
	)
)
