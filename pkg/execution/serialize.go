package execution

import (
	"github.com/dd0wney/nodewire/pkg/catalog"
	"github.com/dd0wney/nodewire/pkg/graph"
	"github.com/dd0wney/nodewire/pkg/protocol"

	"golang.org/x/exp/maps"
)

// Serializer turns a validated graph into the wire shapes the orchestrator
// consumes. A nil catalog is allowed; every type then resolves to the
// default routing key.
type Serializer struct {
	catalog *catalog.Catalog
}

// NewSerializer builds a serializer resolving routing keys through the
// given catalog.
func NewSerializer(cat *catalog.Catalog) *Serializer {
	return &Serializer{catalog: cat}
}

// Serialize maps every node and edge to its backend descriptor. Callers
// validate first; Serialize itself never fails.
func (s *Serializer) Serialize(g graph.Graph) protocol.GraphPayload {
	payload := protocol.GraphPayload{
		Nodes:       make([]protocol.NodeDescriptor, 0, len(g.Nodes)),
		Connections: make([]protocol.ConnectionDescriptor, 0, len(g.Edges)),
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]

		values := maps.Clone(n.Data.Values)
		if values == nil {
			values = map[string]any{}
		}

		payload.Nodes = append(payload.Nodes, protocol.NodeDescriptor{
			InstanceID:  n.ID,
			NodeTypeID:  n.Type,
			RoutingKey:  s.resolve(n.Type),
			Label:       n.Label(),
			InputValues: values,
		})
	}

	for _, e := range g.Edges {
		payload.Connections = append(payload.Connections, protocol.ConnectionDescriptor{
			FromNode:  e.Source,
			FromIndex: graph.HandleIndex(e.SourceHandle),
			ToNode:    e.Target,
			ToIndex:   graph.HandleIndex(e.TargetHandle),
		})
	}

	return payload
}

// ExecuteRequest wraps the serialized graph in an execute envelope.
func (s *Serializer) ExecuteRequest(g graph.Graph, triggerNode, workspace string) protocol.Execute {
	return protocol.Execute{
		TriggerNode: triggerNode,
		Workspace:   workspace,
		Graph:       s.Serialize(g),
	}
}

func (s *Serializer) resolve(nodeType string) string {
	if s.catalog == nil {
		return catalog.DefaultRoutingKey
	}
	return s.catalog.Resolve(nodeType)
}
