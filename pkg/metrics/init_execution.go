package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initExecutionMetrics() {
	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodewire_execution_runs_total",
			Help: "Total number of graph runs by outcome",
		},
		[]string{"status"}, // completed, failed, rejected
	)

	r.RunDurationSeconds = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nodewire_execution_run_duration_seconds",
			Help:    "Backend-reported duration of completed runs",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
	)

	r.ValidationErrorsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "nodewire_execution_validation_errors_total",
			Help: "Total number of runs rejected by graph validation",
		},
	)

	r.RunNodesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodewire_execution_run_nodes_total",
			Help: "Total nodes reported by run completions, by result",
		},
		[]string{"result"}, // executed, cached
	)
}
