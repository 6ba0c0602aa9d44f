package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reminderd"

// Job processing outcomes used as metric labels.
const (
	OutcomeDelivered = "delivered"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
)

var (
	jobQueueSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs",
			Help:      "Number of reminder jobs by state",
		},
		[]string{"state"},
	)

	jobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs_processed_total",
			Help:      "Total reminder jobs processed by outcome",
		},
		[]string{"outcome"},
	)

	jobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "job_duration_seconds",
			Help:      "Time to process one reminder job attempt",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)
)

// recordJobProcessed records a processed job metric.
func recordJobProcessed(outcome string) {
	jobsProcessed.WithLabelValues(outcome).Inc()
}

// recordJobDuration records job processing duration.
func recordJobDuration(duration time.Duration) {
	jobDuration.Observe(duration.Seconds())
}

// RecordQueueStats updates queue size metrics.
func RecordQueueStats(stats *Stats) {
	jobQueueSize.WithLabelValues(string(JobStatusWaiting)).Set(float64(stats.Waiting))
	jobQueueSize.WithLabelValues(string(JobStatusActive)).Set(float64(stats.Active))
	jobQueueSize.WithLabelValues(string(JobStatusDelayed)).Set(float64(stats.Delayed))
	jobQueueSize.WithLabelValues(string(JobStatusCompleted)).Set(float64(stats.Completed))
	jobQueueSize.WithLabelValues(string(JobStatusFailed)).Set(float64(stats.Failed))
}
