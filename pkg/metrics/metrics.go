package metrics

import (
	"time"
)

// connectionStates lists every state label so SetConnectionState can reset
// the inactive ones.
var connectionStates = []string{"idle", "connecting", "open", "closing", "closed"}

// SetConnectionState marks the given state active and all others inactive
func (r *Registry) SetConnectionState(state string) {
	for _, s := range connectionStates {
		r.ConnectionState.WithLabelValues(s).Set(0)
	}
	r.ConnectionState.WithLabelValues(state).Set(1)
}

// RecordMessageReceived records an inbound message by kind
func (r *Registry) RecordMessageReceived(kind string) {
	r.MessagesReceivedTotal.WithLabelValues(kind).Inc()
}

// RecordMessageSent records an outbound message by kind
func (r *Registry) RecordMessageSent(kind string) {
	r.MessagesSentTotal.WithLabelValues(kind).Inc()
}

// RecordRun records a run outcome. Duration is only observed for completed
// runs; rejected and failed runs carry no meaningful backend duration.
func (r *Registry) RecordRun(status string, duration time.Duration) {
	r.RunsTotal.WithLabelValues(status).Inc()
	if status == "completed" {
		r.RunDurationSeconds.Observe(duration.Seconds())
	}
}

// RecordRunNodes records the completion event's node counts
func (r *Registry) RecordRunNodes(executed, cached int) {
	r.RunNodesTotal.WithLabelValues("executed").Add(float64(executed))
	r.RunNodesTotal.WithLabelValues("cached").Add(float64(cached))
}

// RecordReconcilePass records one reconciliation pass over the graph
func (r *Registry) RecordReconcilePass(nodesInspected, changed int) {
	r.ReconcilePassesTotal.Inc()
	r.ReconcileNodesInspected.Observe(float64(nodesInspected))
	if changed > 0 {
		r.PortCountChangesTotal.Add(float64(changed))
	}
}

// RecordWorkspaceOp records a workspace store operation
func (r *Registry) RecordWorkspaceOp(operation, status string, duration time.Duration) {
	r.WorkspaceOpsTotal.WithLabelValues(operation, status).Inc()
	r.WorkspaceOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
