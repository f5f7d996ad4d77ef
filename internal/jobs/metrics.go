// Package jobs holds the shared Prometheus instrumentation for
// background work. Every periodic job reports through one Metrics
// instance so job health is comparable across job types.
package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// jobDurationBuckets cover sub-second runs up to multi-minute batch
// recomputes.
var jobDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0}

// Metrics aggregates execution counts, durations, and errors for all
// background jobs, labelled by job type. Safe for concurrent use.
type Metrics struct {
	jobsTotal    *prometheus.CounterVec
	jobsDuration *prometheus.HistogramVec
	jobErrors    *prometheus.CounterVec
}

// NewMetrics builds the job collectors. Register attaches them to a
// registry; until then they record nothing visible.
func NewMetrics() *Metrics {
	return &Metrics{
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "background_jobs_total",
			Help: "Total number of background job executions by type and status",
		}, []string{"job_type", "status"}),
		jobsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "background_jobs_duration_seconds",
			Help:    "Histogram of background job duration in seconds by job type",
			Buckets: jobDurationBuckets,
		}, []string{"job_type"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "background_job_errors_total",
			Help: "Total number of background job errors by type and error type",
		}, []string{"job_type", "error_type"}),
	}
}

// Register adds every collector to the registry, stopping at the first
// failure.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncJobsTotal counts one finished job run with status "success" or
// "failure".
func (m *Metrics) IncJobsTotal(jobType, status string) {
	m.jobsTotal.WithLabelValues(jobType, status).Inc()
}

// ObserveJobDuration records how long one job run took.
func (m *Metrics) ObserveJobDuration(jobType string, seconds float64) {
	m.jobsDuration.WithLabelValues(jobType).Observe(seconds)
}

// IncJobErrors counts one error inside a job run, bucketed by a short
// error type such as "timeout" or "recompute_error".
func (m *Metrics) IncJobErrors(jobType, errorType string) {
	m.jobErrors.WithLabelValues(jobType, errorType).Inc()
}

// Collectors returns the underlying collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.jobsTotal,
		m.jobsDuration,
		m.jobErrors,
	}
}
