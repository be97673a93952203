package protocol

import "encoding/json"

// Ping is the heartbeat sentinel. The server does not promise a reply.
type Ping struct{}

func (Ping) Kind() Kind { return KindPing }

func (Ping) MarshalJSON() ([]byte, error) {
	return []byte(`{"type":"ping"}`), nil
}

// NodeDescriptor is one graph node in backend form.
type NodeDescriptor struct {
	InstanceID  string         `json:"instance_id"`
	NodeTypeID  string         `json:"node_type_id"`
	RoutingKey  string         `json:"routing_key"`
	Label       string         `json:"label"`
	InputValues map[string]any `json:"input_values"`
}

// ConnectionDescriptor wires two node ports by index.
type ConnectionDescriptor struct {
	FromNode  string `json:"from_node"`
	FromIndex int    `json:"from_index"`
	ToNode    string `json:"to_node"`
	ToIndex   int    `json:"to_index"`
}

// GraphPayload is the serialized graph embedded in an execute request.
type GraphPayload struct {
	Nodes       []NodeDescriptor       `json:"nodes"`
	Connections []ConnectionDescriptor `json:"connections"`
}

// Execute asks the backend to run a graph starting from a trigger node.
type Execute struct {
	TriggerNode string       `json:"trigger_node"`
	Workspace   string       `json:"workspace,omitempty"`
	Graph       GraphPayload `json:"graph"`
}

func (Execute) Kind() Kind { return KindExecute }

func (e Execute) MarshalJSON() ([]byte, error) {
	type alias Execute
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{Type: KindExecute, alias: alias(e)})
}

// Connected is the server's welcome frame.
type Connected struct {
	ClientID string `json:"client_id"`
	Message  string `json:"message,omitempty"`
}

func (Connected) Kind() Kind { return KindConnected }

func (c Connected) MarshalJSON() ([]byte, error) {
	type alias Connected
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{Type: KindConnected, alias: alias(c)})
}

// NodeRegistry is a catalog push. Raw keeps the whole frame, which carries
// the same body as GET /nodes/registry and is parsed by the catalog, not
// here.
type NodeRegistry struct {
	Raw []byte
}

func (NodeRegistry) Kind() Kind { return KindNodeRegistry }

func (r NodeRegistry) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return []byte(`{"type":"node_registry","nodes":[]}`), nil
}

// Progress reports the node currently executing within a run.
type Progress struct {
	ExecutionID string `json:"execution_id"`
	CurrentNode string `json:"current_node"`
	TotalNodes  int    `json:"total_nodes,omitempty"`
}

func (Progress) Kind() Kind { return KindProgress }

func (p Progress) MarshalJSON() ([]byte, error) {
	type alias Progress
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{Type: KindProgress, alias: alias(p)})
}

// Complete is the terminal success frame. Its counts are authoritative and
// replace anything learned from progress frames.
type Complete struct {
	ExecutionID   string `json:"execution_id"`
	TotalNodes    int    `json:"total_nodes"`
	ExecutedNodes int    `json:"executed_nodes"`
	CachedNodes   int    `json:"cached_nodes"`
	DurationMS    int64  `json:"duration_ms"`
}

func (Complete) Kind() Kind { return KindComplete }

func (c Complete) MarshalJSON() ([]byte, error) {
	type alias Complete
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{Type: KindComplete, alias: alias(c)})
}

// ExecutionError is the terminal failure frame.
type ExecutionError struct {
	ExecutionID string `json:"execution_id,omitempty"`
	Error       string `json:"error"`
	FailedNode  string `json:"failed_node,omitempty"`
}

func (ExecutionError) Kind() Kind { return KindError }

func (e ExecutionError) MarshalJSON() ([]byte, error) {
	type alias ExecutionError
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{Type: KindError, alias: alias(e)})
}

// Unknown retains frames whose kind this client does not handle. Routing
// ignores them; Raw stays inspectable for diagnostics.
type Unknown struct {
	Type Kind
	Raw  []byte
}

func (u Unknown) Kind() Kind { return u.Type }

func (u Unknown) MarshalJSON() ([]byte, error) {
	if len(u.Raw) > 0 {
		return u.Raw, nil
	}
	return json.Marshal(peek{Type: u.Type})
}
