package execution

import (
	"testing"

	"github.com/dd0wney/nodewire/pkg/catalog"
	"github.com/dd0wney/nodewire/pkg/graph"
	"github.com/dd0wney/nodewire/pkg/protocol"
)

func TestSerializeHandleIndices(t *testing.T) {
	s := NewSerializer(nil)
	g := graph.Graph{
		Nodes: []graph.Node{node("t1", "trigger"), node("w1", "core.copy")},
		Edges: []graph.Edge{edge("e1", "t1", "out_0", "w1", "in_2")},
	}

	payload := s.Serialize(g)
	if len(payload.Connections) != 1 {
		t.Fatalf("Connections = %d, want 1", len(payload.Connections))
	}
	conn := payload.Connections[0]
	want := protocol.ConnectionDescriptor{FromNode: "t1", FromIndex: 0, ToNode: "w1", ToIndex: 2}
	if conn != want {
		t.Errorf("connection = %+v, want %+v", conn, want)
	}
}

func TestSerializeHandleIndexDefaults(t *testing.T) {
	s := NewSerializer(nil)
	g := graph.Graph{
		Nodes: []graph.Node{node("a", "trigger"), node("b", "core.copy")},
		Edges: []graph.Edge{
			{ID: "e1", Source: "a", SourceHandle: "", Target: "b", TargetHandle: "in_x"},
		},
	}

	conn := s.Serialize(g).Connections[0]
	if conn.FromIndex != 0 || conn.ToIndex != 0 {
		t.Errorf("indices = %d/%d, want 0/0 for missing and non-numeric suffixes", conn.FromIndex, conn.ToIndex)
	}
}

func TestSerializeNodeDescriptors(t *testing.T) {
	cat := catalog.New()
	cat.Replace([]catalog.NodeDefinition{
		{TypeID: "core.copy", Label: "Copy File", Category: "filesystem"},
	})
	s := NewSerializer(cat)

	g := graph.Graph{
		Nodes: []graph.Node{
			{ID: "n1", Type: "core.copy", Data: graph.NodeData{
				Label:  "Copy invoices",
				Values: map[string]any{"destination": "/tmp/out"},
			}},
			{ID: "n2", Type: "mystery.widget"},
		},
	}

	payload := s.Serialize(g)
	if len(payload.Nodes) != 2 {
		t.Fatalf("Nodes = %d, want 2", len(payload.Nodes))
	}

	n1 := payload.Nodes[0]
	if n1.InstanceID != "n1" || n1.NodeTypeID != "core.copy" {
		t.Errorf("descriptor identity = %s/%s", n1.InstanceID, n1.NodeTypeID)
	}
	if n1.RoutingKey != "filesystem" {
		t.Errorf("RoutingKey = %q, want catalog category", n1.RoutingKey)
	}
	if n1.Label != "Copy invoices" {
		t.Errorf("Label = %q, want the node's own label", n1.Label)
	}
	if n1.InputValues["destination"] != "/tmp/out" {
		t.Errorf("InputValues = %v, want value bag carried over", n1.InputValues)
	}

	// Unknown type: default routing key, label falls back to the type,
	// values never nil.
	n2 := payload.Nodes[1]
	if n2.RoutingKey != catalog.DefaultRoutingKey {
		t.Errorf("RoutingKey = %q, want %q for unresolved type", n2.RoutingKey, catalog.DefaultRoutingKey)
	}
	if n2.Label != "mystery.widget" {
		t.Errorf("Label = %q, want type fallback", n2.Label)
	}
	if n2.InputValues == nil {
		t.Error("InputValues = nil, want empty map")
	}
}

func TestSerializeDetachesValues(t *testing.T) {
	s := NewSerializer(nil)
	g := graph.Graph{
		Nodes: []graph.Node{
			{ID: "n1", Type: "trigger", Data: graph.NodeData{Values: map[string]any{"k": "v"}}},
		},
	}

	payload := s.Serialize(g)
	payload.Nodes[0].InputValues["k"] = "mutated"
	if g.Nodes[0].Data.Values["k"] != "v" {
		t.Error("serialization shares the node's value map")
	}
}

func TestExecuteRequestEnvelope(t *testing.T) {
	s := NewSerializer(nil)
	g := graph.Graph{Nodes: []graph.Node{node("t1", "trigger")}}

	env := s.ExecuteRequest(g, "t1", "demo-workspace")
	if env.Kind() != protocol.KindExecute {
		t.Errorf("Kind() = %q, want execute", env.Kind())
	}
	if env.TriggerNode != "t1" || env.Workspace != "demo-workspace" {
		t.Errorf("envelope = %+v, want trigger and workspace set", env)
	}
	if len(env.Graph.Nodes) != 1 {
		t.Errorf("Graph.Nodes = %d, want 1", len(env.Graph.Nodes))
	}
}
