package recommend

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricBuildTotal     = "recommendation_builds_total"
	MetricBuildDuration  = "recommendation_build_duration_seconds"
	MetricCandidateCount = "recommendation_candidates"
	MetricCacheHits      = "recommendation_cache_hits_total"
	MetricCacheMisses    = "recommendation_cache_misses_total"
)

// Metrics contains Prometheus metrics for recommendation runs.
// All operations are thread-safe.
type Metrics struct {
	buildsTotal   *prometheus.CounterVec
	buildDuration prometheus.Histogram
	candidates    prometheus.Histogram
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricBuildTotal,
				Help: "Total number of recommendation builds by status",
			},
			[]string{"status"},
		),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricBuildDuration,
			Help:    "Histogram of recommendation build duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricCandidateCount,
			Help:    "Histogram of candidate pool sizes per recommendation build",
			Buckets: []float64{0, 5, 10, 20, 40, 80},
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheHits,
			Help: "Total number of recommendation cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricCacheMisses,
			Help: "Total number of recommendation cache misses",
		}),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.buildsTotal,
		m.buildDuration,
		m.candidates,
		m.cacheHits,
		m.cacheMisses,
	}

	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncBuilds increments the build counter for the given outcome.
func (m *Metrics) IncBuilds(ok bool) {
	status := "success"
	if !ok {
		status = "failure"
	}
	m.buildsTotal.WithLabelValues(status).Inc()
}

// ObserveBuildDuration records a build duration in seconds.
func (m *Metrics) ObserveBuildDuration(seconds float64) {
	m.buildDuration.Observe(seconds)
}

// ObserveCandidates records the candidate pool size of a build.
func (m *Metrics) ObserveCandidates(count int) {
	m.candidates.Observe(float64(count))
}

// IncCacheHit increments the cache hit counter.
func (m *Metrics) IncCacheHit() {
	m.cacheHits.Inc()
}

// IncCacheMiss increments the cache miss counter.
func (m *Metrics) IncCacheMiss() {
	m.cacheMisses.Inc()
}
