package mediagraph

import (
	"sync/atomic"

	"github.com/jpilet/mediagraph/timestamp"
	"github.com/jpilet/mediagraph/types"
)

// NamedPin is the type-agnostic plug connecting a node to a stream. Nodes
// expose their input pins through this interface.
type NamedPin interface {
	Name() string
	TypeName() string
	Connect(stream NamedStream) bool
	Disconnect()
	IsConnected() bool
	ConnectedStream() NamedStream
	CanRead() bool
	OpenConnectedStream()
	CloseConnectedStream()

	// SignalActivity is called by the connected stream when new data
	// arrives.
	SignalActivity()

	LastReadSequenceId() SequenceId
	Node() NodeHandle
	Properties() *PropertyList
}

// StreamReader is one reader's view into a stream: a seek position and a
// last-read sequence id against exactly one connected stream. Nodes read
// data through their StreamReaders; if the graph has not connected the pin,
// reading fails.
type StreamReader[T any] struct {
	PropertyList
	name string
	node NodeHandle

	stream atomic.Pointer[StreamSource[T]]

	// Seek position in epoch microseconds. Entries at or before it are
	// skipped.
	seek atomic.Int64

	// Last read sequence id, -1 when nothing was read. Advanced by the
	// connected stream under its own mutex.
	lastRead atomic.Int64
}

// NewStreamReader creates a disconnected reader owned by node. The node may
// be nil for standalone readers.
func NewStreamReader[T any](name string, node NodeHandle) *StreamReader[T] {
	r := &StreamReader[T]{name: name, node: node}
	r.lastRead.Store(-1)
	AddGetProperty(&r.PropertyList, "SeekPosition", func() int64 { return r.seek.Load() })
	AddGetProperty(&r.PropertyList, "LastReadSequenceId", func() int64 { return r.lastRead.Load() })
	return r
}

// Name returns the pin name.
func (r *StreamReader[T]) Name() string { return r.name }

// TypeName returns the element type tag.
func (r *StreamReader[T]) TypeName() string { return types.Name[T]() }

// Node returns the owning node, or nil.
func (r *StreamReader[T]) Node() NodeHandle { return r.node }

// Connect attaches the reader to stream, after disconnecting from any
// previous one. It fails if the type tags differ or if stream does not carry
// this reader's element type.
func (r *StreamReader[T]) Connect(stream NamedStream) bool {
	r.Disconnect()
	if stream == nil || stream.TypeName() != r.TypeName() {
		return false
	}
	typed, ok := stream.(StreamSource[T])
	if !ok {
		return false
	}
	r.lastRead.Store(-1)
	r.stream.Store(&typed)
	typed.RegisterReader(r)
	return true
}

// Disconnect detaches the reader from its stream and asks the owning node to
// stop. The stream pointer is cleared first, so IsConnected observed from
// another goroutine reports false during teardown.
func (r *StreamReader[T]) Disconnect() {
	old := r.stream.Swap(nil)
	if old == nil {
		return
	}
	(*old).UnregisterReader(r)
	if r.node != nil {
		r.node.Stop()
	}
}

// IsConnected reports whether the reader is attached to a stream.
func (r *StreamReader[T]) IsConnected() bool { return r.stream.Load() != nil }

// ConnectedStream returns the attached stream, or nil.
func (r *StreamReader[T]) ConnectedStream() NamedStream {
	s := r.stream.Load()
	if s == nil {
		return nil
	}
	return *s
}

// Get returns the attached stream with its element type, or nil.
func (r *StreamReader[T]) Get() StreamSource[T] {
	s := r.stream.Load()
	if s == nil {
		return nil
	}
	return *s
}

// Read blocks until an entry fresher than the seek position is available and
// returns it. It returns ok == false if the stream closes or the reader
// disconnects while waiting. A failed blocking read also stops the owning
// node: a node transitions to stopped on its own when any of its inputs
// closes, whether or not its loop checks the result.
func (r *StreamReader[T]) Read() (value T, ts timestamp.Timestamp, seq SequenceId, ok bool) {
	s := r.stream.Load()
	if s == nil {
		return value, ts, seq, false
	}
	value, ts, seq, ok = (*s).ReadEntry(r)
	if !ok && r.node != nil {
		r.node.Stop()
	}
	return value, ts, seq, ok
}

// TryRead is the non-blocking variant of Read: it returns ok == false
// immediately if no qualifying entry is buffered.
func (r *StreamReader[T]) TryRead() (value T, ts timestamp.Timestamp, seq SequenceId, ok bool) {
	s := r.stream.Load()
	if s == nil {
		return value, ts, seq, false
	}
	return (*s).TryReadEntry(r)
}

// CanRead reports whether a Read would return immediately.
func (r *StreamReader[T]) CanRead() bool {
	s := r.stream.Load()
	return s != nil && (*s).CanReadEntry(SequenceId(r.lastRead.Load()), r.seekPosition())
}

// Seek skips entries up to and including ts: entries with a timestamp equal
// or lower are ignored by subsequent reads. Seeks are monotonic; moving
// backwards is rejected.
func (r *StreamReader[T]) Seek(ts timestamp.Timestamp) bool {
	if ts.MicroSecondsSince1970() < r.seek.Load() {
		return false
	}
	r.seek.Store(ts.MicroSecondsSince1970())
	return true
}

// SeekPosition returns the current seek position.
func (r *StreamReader[T]) SeekPosition() timestamp.Timestamp { return r.seekPosition() }

func (r *StreamReader[T]) seekPosition() timestamp.Timestamp {
	return timestamp.MicroSecondsSince1970(r.seek.Load())
}

// LastReadSequenceId returns the id of the last entry this reader consumed,
// or -1.
func (r *StreamReader[T]) LastReadSequenceId() SequenceId {
	return SequenceId(r.lastRead.Load())
}

// SetLastReadSequenceId advances the cursor. Only the connected stream may
// call this, from inside its own critical section.
func (r *StreamReader[T]) SetLastReadSequenceId(seq SequenceId) {
	r.lastRead.Store(int64(seq))
}

// OpenConnectedStream opens the attached stream, if any.
func (r *StreamReader[T]) OpenConnectedStream() {
	if s := r.stream.Load(); s != nil {
		(*s).Open()
	}
}

// CloseConnectedStream closes the attached stream, if any.
func (r *StreamReader[T]) CloseConnectedStream() {
	if s := r.stream.Load(); s != nil {
		(*s).Close()
	}
}

// SignalActivity forwards the stream's data notification to the owning node.
func (r *StreamReader[T]) SignalActivity() {
	if r.node != nil {
		r.node.SignalActivity()
	}
}
