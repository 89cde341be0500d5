package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "franchise_transitions_total",
			Help: "Lifecycle operations by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "franchise_notifications_total",
			Help: "Notification sends by kind, channel and outcome",
		},
		[]string{"kind", "channel", "outcome"},
	)

	NotificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "franchise_notification_duration_seconds",
			Help:    "Duration of notification sends in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	SalesUpsertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "franchise_sales_upserts_total",
			Help: "Sales ledger writes by outcome",
		},
		[]string{"outcome"},
	)

	ReconciledCredentials = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "franchise_reconciled_credentials_total",
			Help: "Credentials issued by the reconcile job",
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route pattern and status code",
		},
		[]string{"method", "route", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)

// Outcome labels shared by the counters above.
const (
	OutcomeOK       = "ok"
	OutcomeDeclined = "declined"
	OutcomeFailed   = "failed"
	OutcomeTimeout  = "timeout"
)
