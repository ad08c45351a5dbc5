package nodes

import (
	"sync/atomic"

	"github.com/jpilet/mediagraph"
	"github.com/jpilet/mediagraph/timestamp"
)

// CountingConsumer drains its "in" pin and counts the read calls. It
// deliberately ignores the read result: the loop relies on ThreadMustQuit to
// notice that its input became invalid, which exercises the stop path the
// way a careless consumer would.
type CountingConsumer[T any] struct {
	mediagraph.ThreadedNode

	in             *mediagraph.StreamReader[T]
	sleepAfterRead timestamp.Duration
	consumed       atomic.Int64
}

// NewCountingConsumer creates a consumer pausing sleepAfterRead between
// reads; zero means full speed.
func NewCountingConsumer[T any](sleepAfterRead timestamp.Duration) *CountingConsumer[T] {
	c := &CountingConsumer[T]{sleepAfterRead: sleepAfterRead}
	c.in = mediagraph.NewStreamReader[T]("in", c)
	c.AddInputPin(c.in)
	c.BindThreadMain(c.run)
	mediagraph.AddGetProperty(c.Properties(), "Consumed", func() int64 { return c.consumed.Load() })
	return c
}

// In returns the consumer's input pin.
func (c *CountingConsumer[T]) In() *mediagraph.StreamReader[T] { return c.in }

// Consumed returns the number of read calls since the last start.
func (c *CountingConsumer[T]) Consumed() int64 { return c.consumed.Load() }

func (c *CountingConsumer[T]) run() {
	c.consumed.Store(0)
	for !c.ThreadMustQuit() {
		c.in.Read()
		c.consumed.Add(1)

		if c.sleepAfterRead != 0 {
			c.sleepAfterRead.Sleep()
		}
	}
}
