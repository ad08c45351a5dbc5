package nodes

import (
	"sync/atomic"

	"github.com/jpilet/mediagraph"
	"github.com/jpilet/mediagraph/timestamp"
)

// CounterProducer emits increasing int values on its "out" stream, each
// tagged with the time of emission. With a zero cadence it pushes as fast as
// the stream accepts; with a non-zero time limit it exits on its own once
// the limit elapsed.
type CounterProducer struct {
	mediagraph.ThreadedNode

	out       *mediagraph.Stream[int]
	cadence   timestamp.Duration
	timeLimit timestamp.Duration
	sent      atomic.Int64
}

// NewCounterProducer creates a producer. cadence is the pause between
// emissions, timeLimit bounds the total runtime; both may be zero.
func NewCounterProducer(cadence, timeLimit timestamp.Duration) *CounterProducer {
	p := &CounterProducer{cadence: cadence, timeLimit: timeLimit}
	p.out = mediagraph.NewStream[int]("out", p)
	p.AddOutputStream(p.out)
	p.BindThreadMain(p.run)
	mediagraph.AddGetProperty(p.Properties(), "NumSent", func() int64 { return p.sent.Load() })
	return p
}

// Out returns the producer's output stream.
func (p *CounterProducer) Out() *mediagraph.Stream[int] { return p.out }

// NumSent returns the number of values emitted since the last start.
func (p *CounterProducer) NumSent() int64 { return p.sent.Load() }

func (p *CounterProducer) run() {
	p.sent.Store(0)
	startTime := timestamp.Now()
	for value := 0; !p.ThreadMustQuit(); value++ {
		ts := timestamp.Now()
		if p.timeLimit != 0 && ts.Sub(startTime) > p.timeLimit {
			return
		}
		if !p.out.Write(ts, value) {
			return
		}
		p.sent.Add(1)
		if p.cadence != 0 {
			p.cadence.Sleep()
		}
	}
}
