// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EstimatesCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quote_estimates_completed_total",
			Help: "Total number of quote estimates completed",
		},
	)

	EstimatesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_estimates_failed_total",
			Help: "Total number of quote estimates failed",
		},
		[]string{"error_code"},
	)

	EstimateDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "quote_estimate_duration_seconds",
			Help:    "End to end duration of estimate processing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	LineItemsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quote_line_items_persisted_total",
			Help: "Total number of estimate line items written",
		},
	)

	ItemsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_items_skipped_total",
			Help: "Total number of extracted items dropped before pricing",
		},
		[]string{"reason"},
	)

	EstimateEmailsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quote_estimate_emails_sent_total",
			Help: "Total number of estimate notification emails delivered",
		},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)
