// Package metrics defines the Prometheus instrumentation for the
// orchestration pipeline. All collectors are registered on a dedicated
// registry so tests can create isolated instances.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors exported by the service.
type Metrics struct {
	registry *prometheus.Registry

	// JobsCompleted counts jobs reaching a terminal state, labeled by status
	// (done, failed, cancelled).
	JobsCompleted *prometheus.CounterVec

	// JobsSubmitted counts jobs accepted for execution.
	JobsSubmitted prometheus.Counter

	// JobRetries counts failed attempts that were requeued.
	JobRetries prometheus.Counter

	// CacheLookups counts content cache lookups, labeled by result
	// (hit, miss).
	CacheLookups *prometheus.CounterVec

	// CacheEvictions counts entries removed by the eviction sweep.
	CacheEvictions prometheus.Counter

	// GenerationCalls counts upstream generation calls, labeled by resource
	// kind and outcome (ok, error).
	GenerationCalls *prometheus.CounterVec

	// GenerationDuration observes upstream generation latency per resource kind.
	GenerationDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with all collectors registered on a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		JobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lessonforge",
			Name:      "jobs_completed_total",
			Help:      "Jobs that reached a terminal state, by status.",
		}, []string{"status"}),
		JobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lessonforge",
			Name:      "jobs_submitted_total",
			Help:      "Jobs accepted for asynchronous execution.",
		}),
		JobRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lessonforge",
			Name:      "job_retries_total",
			Help:      "Failed job attempts that were requeued for retry.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lessonforge",
			Name:      "cache_lookups_total",
			Help:      "Content cache lookups, by result.",
		}, []string{"result"}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lessonforge",
			Name:      "cache_evictions_total",
			Help:      "Cache entries removed by the eviction sweep.",
		}),
		GenerationCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lessonforge",
			Name:      "generation_calls_total",
			Help:      "Upstream content generation calls, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		GenerationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lessonforge",
			Name:      "generation_duration_seconds",
			Help:      "Latency of upstream content generation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.JobsCompleted,
		m.JobsSubmitted,
		m.JobRetries,
		m.CacheLookups,
		m.CacheEvictions,
		m.GenerationCalls,
		m.GenerationDuration,
	)

	return m
}

// Registry returns the underlying registry, for wiring the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCacheLookup records a cache lookup outcome.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}
