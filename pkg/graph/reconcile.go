package graph

import (
	"golang.org/x/exp/maps"
)

// PortCounts is a node's effective handle arity after reconciliation.
type PortCounts struct {
	Inputs  int
	Outputs int
}

// Change records one node whose resolved arity moved since the previous
// reconciliation pass.
type Change struct {
	NodeID  string
	Inputs  int
	Outputs int
}

// Reconcile recomputes the dynamic port counts of every node so each
// dynamic direction always exposes one slot more than it has distinct
// connected handles. Fixed directions are left alone. The input graph is
// not mutated; the returned graph carries the updated node data.
//
// Reconcile is idempotent: applying it to its own result changes nothing,
// because the counts depend only on the edge set.
func Reconcile(g Graph) Graph {
	inputsUsed := make(map[string]map[string]struct{})
	outputsUsed := make(map[string]map[string]struct{})
	for _, e := range g.Edges {
		markHandle(outputsUsed, e.Source, e.SourceHandle)
		markHandle(inputsUsed, e.Target, e.TargetHandle)
	}

	out := g
	out.Nodes = make([]Node, len(g.Nodes))
	copy(out.Nodes, g.Nodes)

	for i := range out.Nodes {
		n := &out.Nodes[i]
		if n.Data.InputsMode == PortsDynamic {
			if desired := desiredCount(inputsUsed[n.ID]); desired != n.Data.InputsCount {
				n.Data.InputsCount = desired
			}
		}
		if n.Data.OutputsMode == PortsDynamic {
			if desired := desiredCount(outputsUsed[n.ID]); desired != n.Data.OutputsCount {
				n.Data.OutputsCount = desired
			}
		}
	}
	return out
}

func markHandle(used map[string]map[string]struct{}, nodeID, handle string) {
	set, ok := used[nodeID]
	if !ok {
		set = make(map[string]struct{})
		used[nodeID] = set
	}
	set[handle] = struct{}{}
}

// desiredCount is the one-free-slot rule: one more than the distinct
// handles in use, never below one.
func desiredCount(used map[string]struct{}) int {
	desired := len(used) + 1
	if desired < 1 {
		desired = 1
	}
	return desired
}

// Counts returns the effective handle arity stored on a node. Dynamic
// directions report their reconciled count, fixed directions their
// declared width.
func Counts(n *Node) PortCounts {
	var pc PortCounts
	switch n.Data.InputsMode {
	case PortsNone:
	case PortsDynamic:
		pc.Inputs = n.Data.InputsCount
	default:
		pc.Inputs = 1
	}
	switch n.Data.OutputsMode {
	case PortsNone:
	case PortsDynamic:
		pc.Outputs = n.Data.OutputsCount
	default:
		pc.Outputs = 1
	}
	return pc
}

// Reconciler runs Reconcile after every edge-set change and remembers the
// counts it last applied per node id, so consumers holding cached port
// geometry learn exactly which nodes moved rather than "something changed
// somewhere".
type Reconciler struct {
	last map[string]PortCounts
}

// NewReconciler returns a reconciler with an empty side table.
func NewReconciler() *Reconciler {
	return &Reconciler{last: make(map[string]PortCounts)}
}

// Apply reconciles g and reports every node whose resolved input or output
// count differs from the previous pass. A node seen for the first time is
// reported as changed, since no consumer can hold geometry for it yet.
// Nodes deleted from the graph drop out of the side table. Changes are
// reported in graph order.
func (r *Reconciler) Apply(g Graph) (Graph, []Change) {
	out := Reconcile(g)

	next := make(map[string]PortCounts, len(out.Nodes))
	var changes []Change
	for i := range out.Nodes {
		n := &out.Nodes[i]
		counts := Counts(n)
		next[n.ID] = counts
		if prev, seen := r.last[n.ID]; !seen || prev != counts {
			changes = append(changes, Change{NodeID: n.ID, Inputs: counts.Inputs, Outputs: counts.Outputs})
		}
	}
	r.last = next
	return out, changes
}

// Snapshot copies the side table, mostly for inspection and tests.
func (r *Reconciler) Snapshot() map[string]PortCounts {
	return maps.Clone(r.last)
}

// Reset forgets all previously applied counts. The next Apply reports
// every node as changed.
func (r *Reconciler) Reset() {
	r.last = make(map[string]PortCounts)
}
