package mediagraph

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/jpilet/mediagraph/internal/logger"
)

var graphLog = logger.GetLogger("graph")

// Graph is a set of media producers, filters, and consumers, keyed by unique
// name. Nodes produce and consume timestamped data; the output of a node can
// feed any number of other nodes. Graph building happens at runtime: add
// nodes, call Connect for every edge, then Start. Nodes can also be added or
// removed while data is flowing.
//
//	graph := mediagraph.NewGraph()
//	graph.AddNode("producer", producer)
//	graph.AddNode("consumer", consumer)
//	if !graph.ConnectByName("producer", "out", "consumer", "in") || !graph.Start() {
//		// something went wrong.
//	}
type Graph struct {
	PropertyList

	mu    sync.Mutex
	nodes map[string]NodeHandle

	// Guards against Stop recursion through node callbacks.
	stopping atomic.Bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	g := &Graph{nodes: make(map[string]NodeHandle)}
	AddGetProperty(&g.PropertyList, "started", g.IsStarted)
	return g
}

// AddNode adds node under the given name and binds the node's name and graph
// back-pointer. Returns false, mutating nothing, if the name is taken or the
// node already belongs to a graph.
func (g *Graph) AddNode(name string, node NodeHandle) bool {
	if node == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, taken := g.nodes[name]; taken {
		return false
	}
	if !node.SetNameAndGraph(name, g) {
		return false
	}
	g.nodes[name] = node
	return true
}

// AddNodeWithUniqueName adds node under wantedName if free, otherwise under
// wantedName + "0", "1", ... until accepted. Returns the name used, or ""
// if the node could not be added at all.
func (g *Graph) AddNodeWithUniqueName(wantedName string, node NodeHandle) string {
	if g.AddNode(wantedName, node) {
		return wantedName
	}
	if node == nil || node.Graph() != nil {
		// Already bound somewhere; no name will ever be accepted.
		return ""
	}
	for i := 0; ; i++ {
		name := wantedName + strconv.Itoa(i)
		if g.AddNode(name, node) {
			return name
		}
	}
}

// RemoveNode removes the named node from the graph, then disconnects its
// pins and the readers of its streams. The handle is dropped from the
// mapping before any teardown call, and the graph mutex is not held across
// them, so removal is safe while the graph is running. The external holder
// decides when the node is destroyed.
func (g *Graph) RemoveNode(name string) {
	g.mu.Lock()
	node, found := g.nodes[name]
	if found {
		delete(g.nodes, name)
	}
	g.mu.Unlock()

	if !found {
		return
	}
	node.DisconnectAllPins()
	node.DisconnectAllStreams()
	node.clearNameAndGraph()
}

// GetNodeByName returns the node added under name, or nil.
func (g *Graph) GetNodeByName(name string) NodeHandle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes[name]
}

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Node returns node number index in name order, or nil.
func (g *Graph) Node(index int) NodeHandle {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := g.sortedNamesLocked()
	if index < 0 || index >= len(names) {
		return nil
	}
	return g.nodes[names[index]]
}

func (g *Graph) sortedNamesLocked() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connect attaches an output stream to an input pin. Returns false if either
// is nil or their type tags differ.
func (g *Graph) Connect(stream NamedStream, pin NamedPin) bool {
	if stream == nil || pin == nil {
		return false
	}
	if stream.TypeName() != pin.TypeName() {
		graphLog.Debug().
			Str("stream", stream.StreamName()).Str("stream_type", stream.TypeName()).
			Str("pin", pin.Name()).Str("pin_type", pin.TypeName()).
			Msg("connect refused, type tags differ")
		return false
	}
	return pin.Connect(stream)
}

// ConnectNodes connects the output stream streamName of source to the pin
// pinName of dest. Unknown names return false.
func (g *Graph) ConnectNodes(source NodeHandle, streamName string, dest NodeHandle, pinName string) bool {
	if source == nil || dest == nil {
		return false
	}
	return g.Connect(source.OutputStreamByName(streamName), dest.InputPinByName(pinName))
}

// ConnectByName is ConnectNodes with the two nodes looked up by name.
func (g *Graph) ConnectByName(sourceName, streamName, destName, pinName string) bool {
	return g.ConnectNodes(g.GetNodeByName(sourceName), streamName,
		g.GetNodeByName(destName), pinName)
}

// Start starts every node in name order. If a node refuses to start, the
// already started nodes are stopped again and Start returns false. Starting
// a started graph returns true.
func (g *Graph) Start() bool {
	if g.IsStarted() {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, name := range g.sortedNamesLocked() {
		if !g.nodes[name].Start() {
			graphLog.Warn().Str("node", name).Msg("node refused to start, stopping the graph")
			g.lockedStop()
			return false
		}
	}
	return true
}

// Stop stops every node. Does nothing if a stop is already in progress.
func (g *Graph) Stop() {
	if !g.stopping.CompareAndSwap(false, true) {
		return
	}
	defer g.stopping.Store(false)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lockedStop()
}

func (g *Graph) lockedStop() {
	for _, name := range g.sortedNamesLocked() {
		node := g.nodes[name]
		node.CloseConnectedPins()
		node.Stop()
	}
}

// IsStarted reports whether at least one node is currently running. It is
// derived rather than cached, so it stays consistent after a node stops on
// its own.
func (g *Graph) IsStarted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, node := range g.nodes {
		if node.IsRunning() {
			return true
		}
	}
	return false
}

// WaitUntilStopped waits for every node to stop.
func (g *Graph) WaitUntilStopped() {
	g.mu.Lock()
	nodes := make([]NodeHandle, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	g.mu.Unlock()

	for _, node := range nodes {
		node.WaitUntilStopped()
	}
}

// Clear stops the graph and removes every node.
func (g *Graph) Clear() {
	g.Stop()
	for {
		g.mu.Lock()
		var name string
		found := false
		for n := range g.nodes {
			name, found = n, true
			break
		}
		g.mu.Unlock()
		if !found {
			return
		}
		g.RemoveNode(name)
	}
}
