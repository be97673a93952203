// Package catalog is the palette's view of the node types the backend can
// execute: definitions keyed by type id, each carrying a label, I/O
// sections, settings fields, and the routing key used to dispatch graph
// nodes to the right executor.
package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/dd0wney/nodewire/pkg/graph"
)

// DefaultRoutingKey is the dispatch fallback for node types the catalog
// does not know. Serializing such a node is a recognized gap, not a crash.
const DefaultRoutingKey = "default"

// Behavior determines how a section creates and manages its slots.
type Behavior string

const (
	// BehaviorAutoIncrement keeps one free slot beyond current connections.
	BehaviorAutoIncrement Behavior = "auto_increment"
	// BehaviorDynamicPerFile generates slot pairs from discovered files.
	BehaviorDynamicPerFile Behavior = "dynamic_per_file"
	// BehaviorStatic exposes the fixed slots declared in the definition.
	BehaviorStatic Behavior = "static"
)

// ConnectionCount constrains how many wires may attach to a handle: an
// exact number, or the "n" sentinel for unlimited.
type ConnectionCount struct {
	unlimited bool
	max       int
}

// ExactConnections builds a count allowing exactly n wires.
func ExactConnections(n int) ConnectionCount {
	return ConnectionCount{max: n}
}

// UnlimitedConnections builds the "n" sentinel.
func UnlimitedConnections() ConnectionCount {
	return ConnectionCount{unlimited: true}
}

// Unlimited reports whether any number of wires may attach.
func (c ConnectionCount) Unlimited() bool {
	return c.unlimited
}

// Max returns the wire limit; ok is false when unlimited.
func (c ConnectionCount) Max() (int, bool) {
	if c.unlimited {
		return 0, false
	}
	return c.max, true
}

func (c ConnectionCount) String() string {
	if c.unlimited {
		return "n"
	}
	return fmt.Sprintf("%d", c.max)
}

// MarshalJSON writes the wire form: a bare number, or "n" for unlimited.
func (c ConnectionCount) MarshalJSON() ([]byte, error) {
	if c.unlimited {
		return []byte(`"n"`), nil
	}
	return json.Marshal(c.max)
}

// UnmarshalJSON accepts a number for an exact count and any string for the
// unlimited sentinel, matching the backend's untagged encoding.
func (c *ConnectionCount) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = ConnectionCount{max: n}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = ConnectionCount{unlimited: true}
		return nil
	}
	return fmt.Errorf("connection count: want number or string, got %s", data)
}

// Slot is one handle template within a section.
type Slot struct {
	Name        string          `json:"name"`
	Label       string          `json:"label"`
	Type        string          `json:"type"`
	Connections ConnectionCount `json:"connections"`
}

// SlotTemplate pairs the input and output shapes of a section.
type SlotTemplate struct {
	Input  Slot `json:"input"`
	Output Slot `json:"output"`
}

// Section groups paired I/O slots under one behavior.
type Section struct {
	Name     string       `json:"section_name"`
	Label    string       `json:"section_label,omitempty"`
	Behavior Behavior     `json:"behavior"`
	Slots    SlotTemplate `json:"slot_template"`
}

// Field is an internal control rendered inside a node for settings, not a
// data-flow handle.
type Field struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Type    string `json:"type"`
	Default string `json:"default,omitempty"`
}

// NodeDefinition describes one palette entry.
type NodeDefinition struct {
	TypeID   string    `json:"node_type_id"`
	Label    string    `json:"label"`
	Category string    `json:"category,omitempty"`
	Sections []Section `json:"sections,omitempty"`
	Fields   []Field   `json:"input_fields,omitempty"`
}

// RoutingKey is the dispatch category for this type, falling back to the
// default key when the definition does not declare one.
func (d NodeDefinition) RoutingKey() string {
	if d.Category != "" {
		return d.Category
	}
	return DefaultRoutingKey
}

// PortModes derives the canvas port policy from the sections: any
// auto-increment or per-file section makes the direction dynamic, a
// declared zero-connection slot (or no sections at all) yields no handles,
// anything else a single handle.
func (d NodeDefinition) PortModes() (inputs, outputs graph.PortMode) {
	return d.portMode(true), d.portMode(false)
}

func (d NodeDefinition) portMode(inputs bool) graph.PortMode {
	if len(d.Sections) == 0 {
		return graph.PortsNone
	}
	static := false
	for _, s := range d.Sections {
		if s.Behavior == BehaviorAutoIncrement || s.Behavior == BehaviorDynamicPerFile {
			return graph.PortsDynamic
		}
		slot := s.Slots.Input
		if !inputs {
			slot = s.Slots.Output
		}
		if max, ok := slot.Connections.Max(); !ok || max > 0 {
			static = true
		}
	}
	if static {
		return graph.PortsOne
	}
	return graph.PortsNone
}

// Instantiate builds a fresh canvas node from this definition: modes from
// the sections, one starter slot per dynamic direction, and values seeded
// from the field defaults. An empty instanceID gets a generated UUID, the
// same id shape the canvas assigns when placing a node.
func (d NodeDefinition) Instantiate(instanceID string) graph.Node {
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	in, out := d.PortModes()
	data := graph.NodeData{
		Label:       d.Label,
		InputsMode:  in,
		OutputsMode: out,
	}
	if in == graph.PortsDynamic {
		data.InputsCount = 1
	}
	if out == graph.PortsDynamic {
		data.OutputsCount = 1
	}
	for _, f := range d.Fields {
		if f.Default == "" {
			continue
		}
		if data.Values == nil {
			data.Values = make(map[string]any)
		}
		data.Values[f.Name] = f.Default
	}
	return graph.Node{ID: instanceID, Type: d.TypeID, Data: data}
}

// registryEntry is one node type as the backend's registry reports it:
// the instance record wrapping the full config.
type registryEntry struct {
	NodeID string `json:"node_id"`
	Config struct {
		NodeIDHash  string    `json:"node_id_hash"`
		Label       string    `json:"label"`
		NodeType    string    `json:"node_type"`
		Sections    []Section `json:"sections"`
		InputFields []Field   `json:"input_fields"`
	} `json:"config"`
	IsRunning bool `json:"is_running"`
}

// registryPayload is the body of GET /nodes/registry and of node_registry
// pushes: {"nodes": [entry, ...]}.
type registryPayload struct {
	Nodes []registryEntry `json:"nodes"`
}

// ParseRegistry turns a registry response body into palette definitions.
// Entries without a usable type id are skipped rather than failing the
// whole payload.
func ParseRegistry(data []byte) ([]NodeDefinition, error) {
	var payload registryPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse node registry: %w", err)
	}

	defs := make([]NodeDefinition, 0, len(payload.Nodes))
	for _, entry := range payload.Nodes {
		typeID := entry.Config.NodeIDHash
		if typeID == "" {
			typeID = entry.NodeID
		}
		if typeID == "" {
			continue
		}
		defs = append(defs, NodeDefinition{
			TypeID:   typeID,
			Label:    entry.Config.Label,
			Category: entry.Config.NodeType,
			Sections: entry.Config.Sections,
			Fields:   entry.Config.InputFields,
		})
	}
	return defs, nil
}
