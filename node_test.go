package mediagraph_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpilet/mediagraph"
	"github.com/jpilet/mediagraph/timestamp"
)

// intSource is a plain node exposing one int output stream.
type intSource struct {
	mediagraph.Node
	out *mediagraph.Stream[int]
}

func newIntSource() *intSource {
	n := &intSource{}
	n.out = mediagraph.NewStream[int]("out", n)
	n.AddOutputStream(n.out)
	return n
}

// intSink is a plain node exposing one int input pin.
type intSink struct {
	mediagraph.Node
	in *mediagraph.StreamReader[int]
}

func newIntSink() *intSink {
	n := &intSink{}
	n.in = mediagraph.NewStreamReader[int]("in", n)
	n.AddInputPin(n.in)
	return n
}

// loopNode runs a caller-supplied thread main.
type loopNode struct {
	mediagraph.ThreadedNode
}

func newLoopNode(main func(n *loopNode)) *loopNode {
	n := &loopNode{}
	if main != nil {
		n.BindThreadMain(func() { main(n) })
	}
	return n
}

func TestStartRequiresConnectedPins(t *testing.T) {
	source := newIntSource()
	sink := newIntSink()

	assert.False(t, sink.Start())
	assert.False(t, sink.IsRunning())

	require.True(t, sink.in.Connect(source.out))
	require.True(t, sink.Start())
	assert.True(t, sink.IsRunning())

	// Starting again is a no-op.
	require.True(t, sink.Start())
}

func TestNodeEnumeratesStreamsAndPins(t *testing.T) {
	source := newIntSource()
	sink := newIntSink()

	require.Equal(t, 1, source.NumOutputStreams())
	assert.Equal(t, mediagraph.NamedStream(source.out), source.OutputStream(0))
	assert.Nil(t, source.OutputStream(1))
	assert.Equal(t, mediagraph.NamedStream(source.out), source.OutputStreamByName("out"))
	assert.Nil(t, source.OutputStreamByName("missing"))

	require.Equal(t, 1, sink.NumInputPins())
	assert.Equal(t, mediagraph.NamedPin(sink.in), sink.InputPin(0))
	assert.Nil(t, sink.InputPin(1))
	assert.Equal(t, mediagraph.NamedPin(sink.in), sink.InputPinByName("in"))
	assert.Nil(t, sink.InputPinByName("missing"))
}

func TestStartOpensStreamsStopClosesThem(t *testing.T) {
	source := newIntSource()
	source.out.Close()

	require.True(t, source.Start())
	assert.True(t, source.out.Write(timestamp.Now(), 1))

	source.Stop()
	assert.False(t, source.IsRunning())
	assert.False(t, source.out.Write(timestamp.Now(), 2))

	// Stop is idempotent.
	source.Stop()
}

func TestStopDisconnectsPins(t *testing.T) {
	source := newIntSource()
	sink := newIntSink()
	require.True(t, sink.in.Connect(source.out))
	require.True(t, sink.Start())

	sink.Stop()
	assert.False(t, sink.in.IsConnected())
	assert.Equal(t, 0, source.out.NumReaders())
}

func TestDisconnectingPinStopsTheNode(t *testing.T) {
	source := newIntSource()
	sink := newIntSink()
	require.True(t, sink.in.Connect(source.out))
	require.True(t, sink.Start())

	sink.in.Disconnect()
	assert.False(t, sink.IsRunning())
}

func TestWaitForPinActivity(t *testing.T) {
	source := newIntSource()
	sink := newIntSink()
	require.True(t, sink.in.Connect(source.out))
	require.True(t, source.Start())
	require.True(t, sink.Start())

	// Data already buffered: returns immediately.
	require.True(t, source.out.Write(timestamp.Now(), 1))
	sink.WaitForPinActivity()

	_, _, _, ok := sink.in.TryRead()
	require.True(t, ok)

	// No data: blocks until the stream signals.
	returned := make(chan struct{})
	go func() {
		sink.WaitForPinActivity()
		close(returned)
	}()

	time.Sleep(20 * time.Millisecond)
	require.True(t, source.out.Write(timestamp.Now(), 2))

	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForPinActivity did not notice the write")
	}
}

func TestWaitUntilStopped(t *testing.T) {
	source := newIntSource()
	require.True(t, source.Start())

	returned := make(chan struct{})
	go func() {
		source.WaitUntilStopped()
		close(returned)
	}()

	time.Sleep(20 * time.Millisecond)
	source.Stop()

	select {
	case <-returned:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitUntilStopped did not return after Stop")
	}

	// Returns immediately on a stopped node.
	source.WaitUntilStopped()
}

func TestThreadedNodeLifecycle(t *testing.T) {
	ticks := make(chan struct{}, 1024)
	node := newLoopNode(func(n *loopNode) {
		for !n.ThreadMustQuit() {
			select {
			case ticks <- struct{}{}:
			default:
			}
			time.Sleep(time.Millisecond)
		}
	})

	require.True(t, node.Start())
	assert.True(t, node.IsRunning())

	select {
	case <-ticks:
	case <-time.After(5 * time.Second):
		t.Fatal("thread main never ran")
	}

	node.Stop()
	assert.False(t, node.IsRunning())
	node.WaitUntilStopped()
}

func TestThreadedNodeWithoutMainRefusesToStart(t *testing.T) {
	node := newLoopNode(nil)
	assert.False(t, node.Start())
	assert.False(t, node.IsRunning())
}

func TestThreadMainPanicStopsTheNode(t *testing.T) {
	node := newLoopNode(func(*loopNode) {
		panic("boom")
	})

	require.True(t, node.Start())
	node.WaitUntilStopped()
	assert.False(t, node.IsRunning())
}

func TestThreadMainReturningStopsTheNode(t *testing.T) {
	node := newLoopNode(func(*loopNode) {})

	require.True(t, node.Start())
	node.WaitUntilStopped()
	assert.False(t, node.IsRunning())
}

func TestStopFromInsideThreadMain(t *testing.T) {
	node := newLoopNode(nil)
	node.BindThreadMain(func() {
		node.Stop()
	})

	require.True(t, node.Start())
	node.WaitUntilStopped()
	assert.False(t, node.IsRunning())
}
