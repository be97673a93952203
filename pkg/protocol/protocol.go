// Package protocol defines the JSON frames exchanged with the backend over
// the duplex connection. Every frame carries a top-level "type" tag; each
// tag maps to exactly one message variant, and frames with a tag this
// client does not know decode to Unknown rather than being dropped.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Kind is the value of a frame's "type" field.
type Kind string

const (
	// Outbound
	KindPing    Kind = "ping"
	KindExecute Kind = "execute"

	// Inbound
	KindConnected    Kind = "connected"
	KindNodeRegistry Kind = "node_registry"
	KindProgress     Kind = "execution_progress"
	KindComplete     Kind = "graph_execution_complete"
	KindError        Kind = "execution_error"
)

// Message is one decoded frame. Exactly one variant exists per kind, plus
// Unknown for everything else.
type Message interface {
	Kind() Kind
}

// peek pulls the type tag without committing to a variant.
type peek struct {
	Type Kind `json:"type"`
}

// Decode parses one frame into its message variant. Unrecognized kinds
// come back as Unknown with the raw frame retained; payloads that are not
// JSON at all return an error, which the connection layer treats as
// "no parsed projection", never as a connection fault.
func Decode(data []byte) (Message, error) {
	var p peek
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch p.Type {
	case KindPing:
		return Ping{}, nil
	case KindConnected:
		var m Connected
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", p.Type, err)
		}
		return m, nil
	case KindNodeRegistry:
		return NodeRegistry{Raw: append([]byte(nil), data...)}, nil
	case KindProgress:
		var m Progress
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", p.Type, err)
		}
		return m, nil
	case KindComplete:
		var m Complete
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", p.Type, err)
		}
		return m, nil
	case KindError:
		var m ExecutionError
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", p.Type, err)
		}
		return m, nil
	case KindExecute:
		var m Execute
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode %s: %w", p.Type, err)
		}
		return m, nil
	default:
		return Unknown{Type: p.Type, Raw: append([]byte(nil), data...)}, nil
	}
}

// Encode marshals a message into its wire frame, type tag included.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Kind(), err)
	}
	return data, nil
}
