package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPortMetrics() {
	r.ReconcilePassesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "nodewire_ports_reconcile_passes_total",
			Help: "Total number of port reconciliation passes",
		},
	)

	r.PortCountChangesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "nodewire_ports_count_changes_total",
			Help: "Total number of nodes whose port counts changed during reconciliation",
		},
	)

	r.ReconcileNodesInspected = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nodewire_ports_reconcile_nodes_inspected",
			Help:    "Nodes inspected per reconciliation pass",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
		},
	)
}
