// Package graph holds the editable node-graph model: nodes, edges, handle
// ids, port modes, and the reconciler that keeps dynamic port counts in
// step with the edge set.
//
// A Graph value is owner-exclusive. The editing session that holds it
// mutates it from a single goroutine; nothing in this package locks.
package graph

import (
	"encoding/json"
	"fmt"
)

// PortMode is a node's declared handle policy for one direction.
type PortMode uint8

const (
	PortsNone    PortMode = iota // no handles on this side
	PortsOne                     // exactly one handle
	PortsDynamic                 // always one free slot beyond current connections
)

func (m PortMode) String() string {
	switch m {
	case PortsNone:
		return "0"
	case PortsOne:
		return "1"
	case PortsDynamic:
		return "n"
	default:
		return "1"
	}
}

// NormalizePortMode maps a raw mode value from saved or pushed node data
// onto a PortMode. Numeric 0 and 1 (and their string forms) select the
// fixed modes, the sentinel "n" selects dynamic, and anything else falls
// back to a single port.
func NormalizePortMode(raw any) PortMode {
	switch v := raw.(type) {
	case PortMode:
		return v
	case string:
		switch v {
		case "0":
			return PortsNone
		case "1":
			return PortsOne
		case "n", "N":
			return PortsDynamic
		}
	case int:
		if v == 0 {
			return PortsNone
		}
		if v == 1 {
			return PortsOne
		}
	case float64:
		// JSON numbers decode as float64
		if v == 0 {
			return PortsNone
		}
		if v == 1 {
			return PortsOne
		}
	}
	return PortsOne
}

// MarshalJSON writes the mode in its wire form: 0, 1, or "n".
func (m PortMode) MarshalJSON() ([]byte, error) {
	switch m {
	case PortsNone:
		return []byte("0"), nil
	case PortsOne:
		return []byte("1"), nil
	case PortsDynamic:
		return []byte(`"n"`), nil
	}
	return []byte("1"), nil
}

// UnmarshalJSON accepts the wire forms 0, 1, "0", "1" and "n"; unknown
// values normalize to a single port rather than failing the whole graph.
func (m *PortMode) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("port mode: %w", err)
	}
	*m = NormalizePortMode(raw)
	return nil
}

// NodeData is the plain-data bag carried by a node. Behavioral wiring
// (change callbacks and the like) is keyed by node id elsewhere so this
// bag stays serializable end to end.
type NodeData struct {
	Label        string         `json:"label,omitempty"`
	InputsMode   PortMode       `json:"inputs"`
	OutputsMode  PortMode       `json:"outputs"`
	InputsCount  int            `json:"inputs_count,omitempty"`
	OutputsCount int            `json:"outputs_count,omitempty"`
	Values       map[string]any `json:"values,omitempty"`
}

// Position is rendering geometry. The core ignores it but round-trips it
// through persistence so the canvas can restore a layout.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one instance of a palette entry placed on the canvas.
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Data     NodeData `json:"data"`
}

// Label returns the display label, falling back to the type tag.
func (n *Node) Label() string {
	if n.Data.Label != "" {
		return n.Data.Label
	}
	return n.Type
}

// Edge wires an output handle of one node to an input handle of another.
// Handle ids carry the zero-based port index as a numeric suffix.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"source_handle,omitempty"`
	Target       string `json:"target"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// Graph is the whole editable document: the node set plus the edges
// between them. Order carries no meaning in either collection.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// FindNode returns a pointer into the graph's node slice, or nil when the
// id is absent.
func (g *Graph) FindNode(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// HasNode reports whether a node with the given id exists.
func (g *Graph) HasNode(id string) bool {
	return g.FindNode(id) != nil
}

// Clone creates a deep copy of the graph.
func (g *Graph) Clone() Graph {
	clone := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	copy(clone.Edges, g.Edges)
	for i, n := range g.Nodes {
		clone.Nodes[i] = n
		if n.Data.Values != nil {
			values := make(map[string]any, len(n.Data.Values))
			for k, v := range n.Data.Values {
				values[k] = v
			}
			clone.Nodes[i].Data.Values = values
		}
	}
	return clone
}
