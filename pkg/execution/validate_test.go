package execution

import (
	"strings"
	"testing"

	"github.com/dd0wney/nodewire/pkg/graph"
)

func node(id, typ string) graph.Node {
	return graph.Node{ID: id, Type: typ}
}

func edge(id, src, srcHandle, dst, dstHandle string) graph.Edge {
	return graph.Edge{ID: id, Source: src, SourceHandle: srcHandle, Target: dst, TargetHandle: dstHandle}
}

func TestValidateEmptyGraph(t *testing.T) {
	v := NewValidator()
	result := v.Validate(graph.Graph{})

	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", result.Errors)
	}
	if result.Errors[0] != "empty graph" {
		t.Errorf("error = %q, want %q", result.Errors[0], "empty graph")
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none for an empty graph", result.Warnings)
	}
	if result.OK() {
		t.Error("OK() = true for empty graph")
	}
}

func TestValidateNoTriggerNode(t *testing.T) {
	v := NewValidator()
	g := graph.Graph{
		Nodes: []graph.Node{node("w1", "core.copy"), node("w2", "core.copy")},
		Edges: []graph.Edge{edge("e1", "w1", "out_0", "w2", "in_0")},
	}

	result := v.Validate(g)
	if len(result.Errors) != 1 || result.Errors[0] != "no trigger node" {
		t.Errorf("Errors = %v, want [no trigger node]", result.Errors)
	}
}

func TestValidateDanglingEdges(t *testing.T) {
	v := NewValidator()
	g := graph.Graph{
		Nodes: []graph.Node{node("t1", "trigger")},
		Edges: []graph.Edge{
			edge("e1", "t1", "out_0", "ghost", "in_0"),
			edge("e2", "phantom", "out_0", "ghost", "in_1"),
		},
	}

	result := v.Validate(g)
	if result.OK() {
		t.Fatal("OK() = true with dangling edges")
	}
	// e1 has one dangling end, e2 has two.
	if len(result.Errors) != 3 {
		t.Fatalf("Errors = %v, want 3 dangling-edge errors", result.Errors)
	}
	for _, msg := range result.Errors {
		if !strings.Contains(msg, "missing") {
			t.Errorf("error %q does not name the missing endpoint", msg)
		}
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	v := NewValidator()
	g := graph.Graph{
		Nodes: []graph.Node{node("w1", "core.copy")},
		Edges: []graph.Edge{edge("e1", "w1", "out_0", "ghost", "in_0")},
	}

	result := v.Validate(g)
	if len(result.Errors) != 2 {
		t.Fatalf("Errors = %v, want both the trigger and the dangling-edge error", result.Errors)
	}
}

func TestValidateIsolatedNodeWarning(t *testing.T) {
	v := NewValidator()
	g := graph.Graph{
		Nodes: []graph.Node{
			node("t1", "trigger"),
			node("w1", "core.copy"),
			node("w2", "core.copy"),
		},
		Edges: []graph.Edge{edge("e1", "t1", "out_0", "w1", "in_0")},
	}

	result := v.Validate(g)
	if !result.OK() {
		t.Fatalf("Errors = %v, isolated nodes must not be errors", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want exactly one for w2", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], "w2") {
		t.Errorf("warning %q does not name w2", result.Warnings[0])
	}
}

func TestValidateIsolatedTriggerNotWarned(t *testing.T) {
	v := NewValidator()
	g := graph.Graph{Nodes: []graph.Node{node("t1", "trigger")}}

	result := v.Validate(g)
	if !result.OK() || len(result.Warnings) != 0 {
		t.Errorf("result = %+v, want clean for a lone trigger", result)
	}
}

func TestValidationResultErr(t *testing.T) {
	if err := (ValidationResult{}).Err(); err != nil {
		t.Errorf("Err() = %v for OK result, want nil", err)
	}

	r := ValidationResult{Errors: []string{"empty graph", "no trigger node"}}
	err := r.Err()
	if err == nil {
		t.Fatal("Err() = nil for failed result")
	}
	if err.Error() != "empty graph; no trigger node" {
		t.Errorf("Err() = %q, want joined messages", err.Error())
	}
}

func TestValidatorCustomTriggerTypes(t *testing.T) {
	v := NewValidator("core.button", "core.cron")

	if v.IsTriggerType("trigger") {
		t.Error("default trigger type recognized despite custom set")
	}
	if !v.IsTriggerType("core.cron") {
		t.Error("configured trigger type not recognized")
	}

	g := graph.Graph{Nodes: []graph.Node{node("b1", "core.button")}}
	if result := v.Validate(g); !result.OK() {
		t.Errorf("Errors = %v, want none with custom trigger present", result.Errors)
	}
}
