package mediagraph

import (
	"sync"
	"sync/atomic"

	"github.com/jpilet/mediagraph/internal/logger"
	"github.com/jpilet/mediagraph/metric"
	"github.com/jpilet/mediagraph/worker"
)

var nodeLog = logger.GetLogger("node")

// NodeHandle is the graph's view of a node. Concrete nodes embed Node or
// ThreadedNode, which implement it; the embedded base also carries the
// unexported hook reserved to this package.
type NodeHandle interface {
	Start() bool
	Stop()
	IsRunning() bool
	WaitUntilStopped()
	WaitForPinActivity()
	SignalActivity()

	Name() string
	Graph() *Graph
	SetNameAndGraph(name string, graph *Graph) bool
	Detach()

	NumOutputStreams() int
	OutputStream(index int) NamedStream
	OutputStreamByName(name string) NamedStream
	NumInputPins() int
	InputPin(index int) NamedPin
	InputPinByName(name string) NamedPin

	AllPinsConnected() bool
	OpenConnectedPins()
	CloseConnectedPins()
	DisconnectAllPins()
	DisconnectAllStreams()

	Properties() *PropertyList

	clearNameAndGraph()
}

// Node is the base of every graph participant. It owns named output streams
// and named input pins, registered once at construction time, and provides
// the start/stop lifecycle. The zero value is usable, so concrete nodes
// simply embed it.
type Node struct {
	PropertyList

	initOnce sync.Once

	// mu guards running and stopping, and is the mutex of stopCond.
	mu       sync.Mutex
	stopCond *sync.Cond
	running  bool
	stopping bool

	// pinActivity carries one pending data notification. A buffered token
	// survives the window between checking the pins and blocking, so a
	// wakeup is never lost.
	pinActivity chan struct{}

	graph *Graph
	name  string

	outputs []NamedStream
	pins    []NamedPin
}

func (n *Node) init() {
	n.initOnce.Do(func() {
		n.stopCond = sync.NewCond(&n.mu)
		n.pinActivity = make(chan struct{}, 1)
	})
}

// AddOutputStream registers an output stream. Must be called during node
// construction, before the node is started or added to a graph.
func (n *Node) AddOutputStream(stream NamedStream) {
	n.outputs = append(n.outputs, stream)
}

// AddInputPin registers an input pin. Must be called during node
// construction, before the node is started or added to a graph.
func (n *Node) AddInputPin(pin NamedPin) {
	n.pins = append(n.pins, pin)
}

// Start verifies that all input pins are connected, then opens all output
// streams and all connected input streams. Returns false if a pin is not
// connected. Starting a running node returns true.
func (n *Node) Start() bool {
	n.init()
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.startLocked()
}

func (n *Node) startLocked() bool {
	if n.running {
		return true
	}
	if !n.AllPinsConnected() {
		nodeLog.Debug().Str("node", n.name).Msg("cannot start, input pin not connected")
		return false
	}
	for _, s := range n.outputs {
		s.Open()
	}
	n.OpenConnectedPins()
	n.running = true
	metric.Default.RunningNodes.Inc()
	return true
}

// Stop stops the node and disconnects all connected pins. Disconnecting is
// necessary so the rest of the graph can continue to run without this node.
// Stop is idempotent and safe to call from the node's own worker or from a
// pin disconnection callback.
func (n *Node) Stop() {
	n.stopCore()
}

// stopCore carries the shared part of Stop. The stopping bit stops the
// recursion that pin disconnection would otherwise cause: disconnecting a
// pin notifies the owning node, which is this one.
func (n *Node) stopCore() {
	n.init()
	n.mu.Lock()
	if n.stopping || !n.running {
		n.mu.Unlock()
		return
	}
	n.stopping = true
	n.mu.Unlock()

	n.DisconnectAllPins()

	n.mu.Lock()
	n.running = false
	metric.Default.RunningNodes.Dec()
	n.mu.Unlock()

	for _, s := range n.outputs {
		s.Close()
	}

	n.SignalActivity()
	n.mu.Lock()
	n.stopCond.Broadcast()
	n.stopping = false
	n.mu.Unlock()
}

// IsRunning reports whether Start succeeded and Stop has not been called.
func (n *Node) IsRunning() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.running
}

// WaitUntilStopped blocks while the node is running.
func (n *Node) WaitUntilStopped() {
	n.init()
	n.mu.Lock()
	for n.running {
		n.stopCond.Wait()
	}
	n.mu.Unlock()
}

// WaitForPinActivity returns as soon as any input pin has data to read,
// blocking until a connected stream signals new data or the node stops. To
// know which pin woke it, the caller iterates TryRead over its pins.
func (n *Node) WaitForPinActivity() {
	n.init()
	for _, pin := range n.pins {
		if pin.CanRead() {
			return
		}
	}
	<-n.pinActivity
}

// SignalActivity posts a data notification. Called by streams on the write
// path for every interested reader, and by Stop.
func (n *Node) SignalActivity() {
	n.init()
	select {
	case n.pinActivity <- struct{}{}:
	default:
	}
}

// Name returns the name the graph assigned to this node.
func (n *Node) Name() string { return n.name }

// Graph returns the graph the node belongs to, or nil.
func (n *Node) Graph() *Graph { return n.graph }

// SetNameAndGraph binds the node to a graph. Called by Graph.AddNode only.
// Fails if the node already belongs to a graph.
func (n *Node) SetNameAndGraph(name string, graph *Graph) bool {
	if n.graph != nil {
		return false
	}
	n.graph = graph
	n.name = name
	return true
}

func (n *Node) clearNameAndGraph() {
	n.graph = nil
	n.name = ""
}

// Detach unplugs the node from its graph.
func (n *Node) Detach() {
	if n.graph != nil {
		n.graph.RemoveNode(n.name)
	}
}

// NumOutputStreams returns the number of output streams the node exposes.
func (n *Node) NumOutputStreams() int { return len(n.outputs) }

// OutputStream returns output stream number index, or nil.
func (n *Node) OutputStream(index int) NamedStream {
	if index < 0 || index >= len(n.outputs) {
		return nil
	}
	return n.outputs[index]
}

// OutputStreamByName returns the stream with this name, or nil.
func (n *Node) OutputStreamByName(name string) NamedStream {
	for _, s := range n.outputs {
		if s.StreamName() == name {
			return s
		}
	}
	return nil
}

// NumInputPins returns the number of input pins.
func (n *Node) NumInputPins() int { return len(n.pins) }

// InputPin returns input pin number index, or nil.
func (n *Node) InputPin(index int) NamedPin {
	if index < 0 || index >= len(n.pins) {
		return nil
	}
	return n.pins[index]
}

// InputPinByName returns the pin with this name, or nil.
func (n *Node) InputPinByName(name string) NamedPin {
	for _, p := range n.pins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// AllPinsConnected reports whether every input pin is connected.
func (n *Node) AllPinsConnected() bool {
	for _, p := range n.pins {
		if !p.IsConnected() {
			return false
		}
	}
	return true
}

// OpenConnectedPins opens the stream behind every connected pin.
func (n *Node) OpenConnectedPins() {
	for _, p := range n.pins {
		p.OpenConnectedStream()
	}
}

// CloseConnectedPins closes the stream behind every connected pin.
func (n *Node) CloseConnectedPins() {
	for _, p := range n.pins {
		p.CloseConnectedStream()
	}
}

// DisconnectAllPins disconnects every input pin.
func (n *Node) DisconnectAllPins() {
	for _, p := range n.pins {
		p.Disconnect()
	}
}

// DisconnectAllStreams disconnects the readers of every output stream.
func (n *Node) DisconnectAllStreams() {
	for _, s := range n.outputs {
		s.DisconnectReaders()
	}
}

// ThreadedNode is a Node that owns a worker goroutine. Concrete nodes embed
// it and bind their loop with BindThreadMain; the loop runs until its reads
// fail or ThreadMustQuit turns true.
type ThreadedNode struct {
	Node

	worker   worker.Worker
	mustQuit atomic.Bool
	main     func()
}

// BindThreadMain sets the function the worker runs. Must be called before
// Start, typically from the concrete node's constructor.
func (t *ThreadedNode) BindThreadMain(main func()) {
	t.main = main
}

// ThreadMustQuit reports whether the loop should exit. Thread main functions
// poll it at their cooperative points, typically once per read.
func (t *ThreadedNode) ThreadMustQuit() bool { return t.mustQuit.Load() }

// Start starts the node, then the worker. If the worker cannot start, the
// node is stopped again and Start returns false.
func (t *ThreadedNode) Start() bool {
	if t.IsRunning() {
		return true
	}
	if !t.Node.Start() {
		return false
	}
	if t.startWorker() {
		return true
	}
	t.Stop()
	return false
}

func (t *ThreadedNode) startWorker() bool {
	if t.main == nil {
		nodeLog.Error().Str("node", t.Name()).Msg("threaded node without a thread main")
		return false
	}
	t.mustQuit.Store(false)
	return t.worker.Start(t.runThreadMain)
}

// runThreadMain wraps the user loop: a panic is logged and treated as a
// normal termination, and a returning loop always stops the node.
func (t *ThreadedNode) runThreadMain() {
	defer func() {
		if r := recover(); r != nil {
			nodeLog.Error().Str("node", t.Name()).Interface("panic", r).
				Msg("thread main panicked")
		}
		t.mustQuit.Store(true)
		t.stopCore()
	}()
	t.main()
}

// Stop asks the worker to quit, stops the node, and joins the worker. The
// join is skipped when Stop is invoked from the worker itself.
func (t *ThreadedNode) Stop() {
	t.mustQuit.Store(true)
	t.stopCore()
	t.worker.Join()
}

// IsRunning reports whether the node started and its worker is alive.
func (t *ThreadedNode) IsRunning() bool {
	return t.Node.IsRunning() && t.worker.IsRunning()
}

// WaitUntilStopped blocks until the node stopped and its worker terminated.
// Called from the worker itself, it skips the join.
func (t *ThreadedNode) WaitUntilStopped() {
	t.Node.WaitUntilStopped()
	t.worker.Join()
}
