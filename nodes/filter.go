package nodes

import (
	"github.com/jpilet/mediagraph"
)

// PassThrough copies every entry from its "in" pin to its "out" stream,
// keeping the original timestamps.
type PassThrough[T any] struct {
	mediagraph.ThreadedNode

	in  *mediagraph.StreamReader[T]
	out *mediagraph.Stream[T]
}

// NewPassThrough creates a pass-through filter.
func NewPassThrough[T any]() *PassThrough[T] {
	f := &PassThrough[T]{}
	f.out = mediagraph.NewStream[T]("out", f)
	f.in = mediagraph.NewStreamReader[T]("in", f)
	f.AddOutputStream(f.out)
	f.AddInputPin(f.in)
	f.BindThreadMain(f.run)
	return f
}

// In returns the filter's input pin.
func (f *PassThrough[T]) In() *mediagraph.StreamReader[T] { return f.in }

// Out returns the filter's output stream.
func (f *PassThrough[T]) Out() *mediagraph.Stream[T] { return f.out }

func (f *PassThrough[T]) run() {
	for !f.ThreadMustQuit() {
		value, ts, _, ok := f.in.Read()
		if !ok {
			return
		}
		if !f.out.Write(ts, value) {
			return
		}
	}
}

// Map applies a function to every entry from its "in" pin and writes the
// result to its "out" stream, keeping the original timestamps.
type Map[In, Out any] struct {
	mediagraph.ThreadedNode

	in  *mediagraph.StreamReader[In]
	out *mediagraph.Stream[Out]
	fn  func(In) Out
}

// NewMap creates a mapping filter running fn on every entry.
func NewMap[In, Out any](fn func(In) Out) *Map[In, Out] {
	m := &Map[In, Out]{fn: fn}
	m.out = mediagraph.NewStream[Out]("out", m)
	m.in = mediagraph.NewStreamReader[In]("in", m)
	m.AddOutputStream(m.out)
	m.AddInputPin(m.in)
	m.BindThreadMain(m.run)
	return m
}

// In returns the filter's input pin.
func (m *Map[In, Out]) In() *mediagraph.StreamReader[In] { return m.in }

// Out returns the filter's output stream.
func (m *Map[In, Out]) Out() *mediagraph.Stream[Out] { return m.out }

func (m *Map[In, Out]) run() {
	for !m.ThreadMustQuit() {
		value, ts, _, ok := m.in.Read()
		if !ok {
			return
		}
		if !m.out.Write(ts, m.fn(value)) {
			return
		}
	}
}
