package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics exposes scheduled billing job outcomes to Prometheus. A nil
// receiver is a valid no-op so callers never need to guard their observe
// calls.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewJobMetrics registers the job collectors. Returns nil when no registerer
// is given, which disables collection.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return nil
	}
	m := &JobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "convexa",
			Subsystem: "billing_jobs",
			Name:      "duration_seconds",
			Help:      "Wall time of each scheduled billing job run.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convexa",
			Subsystem: "billing_jobs",
			Name:      "runs_total",
			Help:      "Scheduled billing job runs by outcome.",
		}, []string{"job", "result"}),
	}
	reg.MustRegister(m.duration, m.runs)
	return m
}

// ObserveRun records one job run: its duration and whether it succeeded.
func (m *JobMetrics) ObserveRun(job string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if job == "" {
		job = "unnamed"
	}
	m.duration.WithLabelValues(job).Observe(elapsed.Seconds())

	result := "success"
	if err != nil {
		result = "failure"
	}
	m.runs.WithLabelValues(job, result).Inc()
}
