// Package mediagraph is a runtime-constructed dataflow framework for
// media-like workloads. A directed graph of producer, filter, and consumer
// nodes is assembled at runtime; each node exposes named typed output
// streams and named typed input pins, connected by name. Once the graph is
// started, timestamped samples flow concurrently from producers to any
// number of consumers.
//
// The synchronization primitive underneath is Stream: a bounded, in-order,
// timestamped queue with one writer and any number of independent reader
// cursors sharing the buffer. A configurable drop policy decides when
// entries may be discarded; per-reader seek positions let slow consumers
// skip old data. Nodes either run their own worker goroutine (ThreadedNode)
// or are driven synchronously by whoever reads their outputs.
//
// Graphs are hot-pluggable: nodes can be added, connected, and removed while
// data is flowing. Stopping a node disconnects its pins so the rest of the
// graph keeps running.
package mediagraph
