package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initWorkspaceMetrics() {
	r.WorkspaceOpsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodewire_workspace_operations_total",
			Help: "Total number of workspace store operations",
		},
		[]string{"operation", "status"}, // save/load/list/delete, success/error
	)

	r.WorkspaceOpDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nodewire_workspace_operation_duration_seconds",
			Help:    "Duration of workspace store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	r.WorkspaceSizeBytes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nodewire_workspace_size_bytes",
			Help:    "Serialized size of saved workspaces",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10), // 256B to ~64MB
		},
	)
}
