// Package execution turns an editable graph into backend execution
// requests and tracks the resulting run as a small state machine fed by
// inbound protocol events.
package execution

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dd0wney/nodewire/pkg/graph"
)

// DefaultTriggerType is the node type treated as a run entry point when no
// explicit trigger types are configured.
const DefaultTriggerType = "trigger"

// ValidationResult carries everything a validation pass found. Errors block
// serialization; warnings do not.
type ValidationResult struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the graph may be serialized.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Err joins all error messages into one error, nil when the result is OK.
// Warnings never surface here.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return errors.New(strings.Join(r.Errors, "; "))
}

// Validator checks graphs against the run preconditions. The zero set of
// trigger types falls back to DefaultTriggerType.
type Validator struct {
	triggers map[string]struct{}
}

// NewValidator builds a validator recognizing the given node types as run
// entry points.
func NewValidator(triggerTypes ...string) *Validator {
	if len(triggerTypes) == 0 {
		triggerTypes = []string{DefaultTriggerType}
	}
	triggers := make(map[string]struct{}, len(triggerTypes))
	for _, t := range triggerTypes {
		if t != "" {
			triggers[t] = struct{}{}
		}
	}
	return &Validator{triggers: triggers}
}

// IsTriggerType reports whether the node type marks a run entry point.
func (v *Validator) IsTriggerType(nodeType string) bool {
	_, ok := v.triggers[nodeType]
	return ok
}

// Validate collects every problem with the graph instead of stopping at the
// first. A graph with zero nodes yields exactly the empty-graph error;
// nothing else applies to it.
func (v *Validator) Validate(g graph.Graph) ValidationResult {
	var result ValidationResult

	if len(g.Nodes) == 0 {
		result.Errors = append(result.Errors, "empty graph")
		return result
	}

	hasTrigger := false
	for i := range g.Nodes {
		if v.IsTriggerType(g.Nodes[i].Type) {
			hasTrigger = true
			break
		}
	}
	if !hasTrigger {
		result.Errors = append(result.Errors, "no trigger node")
	}

	// Edges must reference nodes in this snapshot. Both dangling ends of
	// one edge are reported separately.
	for _, e := range g.Edges {
		if !g.HasNode(e.Source) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("edge %s references missing source node %s", e.ID, e.Source))
		}
		if !g.HasNode(e.Target) {
			result.Errors = append(result.Errors,
				fmt.Sprintf("edge %s references missing target node %s", e.ID, e.Target))
		}
	}

	connected := make(map[string]struct{}, len(g.Nodes))
	for _, e := range g.Edges {
		connected[e.Source] = struct{}{}
		connected[e.Target] = struct{}{}
	}
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if v.IsTriggerType(n.Type) {
			continue
		}
		if _, ok := connected[n.ID]; !ok {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("isolated node %s (%s) has no connections", n.ID, n.Label()))
		}
	}

	return result
}
