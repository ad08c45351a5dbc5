package server

// ResponseModel is the envelope of every JSON response.
type ResponseModel struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PropertyModel describes one property of a graph, node, stream, or pin.
type PropertyModel struct {
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Value    interface{} `json:"value"`
	Writable bool        `json:"writable"`
}

// StreamModel describes one output stream of a node.
type StreamModel struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ConnectionModel names the endpoint a pin is connected to.
type ConnectionModel struct {
	Node   string `json:"node"`
	Stream string `json:"stream"`
}

// PinModel describes one input pin of a node.
type PinModel struct {
	Name       string           `json:"name"`
	Type       string           `json:"type"`
	Connection *ConnectionModel `json:"connection,omitempty"`
}

// NodeModel describes a node with its streams and pins.
type NodeModel struct {
	Name    string        `json:"name"`
	Running bool          `json:"running"`
	Output  []StreamModel `json:"output"`
	Input   []PinModel    `json:"input"`
}

// SetPropertyModel is the body of a property write.
type SetPropertyModel struct {
	Value string `json:"value"`
}
