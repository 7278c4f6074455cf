package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks job outcomes across the pool
type Metrics struct {
	JobsProcessed prometheus.Counter
	JobsSucceeded prometheus.Counter
	JobsFailed    prometheus.Counter
	JobDuration   prometheus.Histogram
}

// NewMetrics registers the worker metrics with the given registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_worker_jobs_processed_total",
			Help: "Total number of analysis jobs pulled from the queue.",
		}),
		JobsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_worker_jobs_succeeded_total",
			Help: "Total number of analysis jobs that reached a terminal status cleanly.",
		}),
		JobsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_worker_jobs_failed_total",
			Help: "Total number of analysis jobs that hit an infrastructure fault.",
		}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_worker_job_duration_seconds",
			Help:    "Wall-clock duration of analysis jobs.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
