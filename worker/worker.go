// Package worker wraps a single goroutine with a lifecycle the graph nodes
// can observe: start it, ask whether it still runs, and wait for it to
// terminate. The worker records the identity of its goroutine so that a join
// issued from the worker's own body is detected and skipped instead of
// deadlocking.
package worker

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// Worker runs one function on its own goroutine. The zero value is ready to
// use. A Worker can be restarted after the previous run terminated.
type Worker struct {
	mu      sync.Mutex
	done    chan struct{}
	running bool
	goid    uint64
}

// Start launches fn on a new goroutine. It returns false if the worker is
// already running. Start only returns after the goroutine identity has been
// recorded, so IsCurrent is reliable from the first instruction of fn.
func (w *Worker) Start(fn func()) bool {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return false
	}
	w.running = true
	w.done = make(chan struct{})
	w.mu.Unlock()

	started := make(chan struct{})
	go func() {
		w.mu.Lock()
		w.goid = curGoroutineID()
		w.mu.Unlock()
		close(started)

		defer func() {
			w.mu.Lock()
			w.running = false
			close(w.done)
			w.mu.Unlock()
		}()
		fn()
	}()
	<-started
	return true
}

// IsRunning reports whether the worker goroutine has started and not yet
// terminated.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// IsCurrent reports whether the caller is the worker goroutine itself.
func (w *Worker) IsCurrent() bool {
	w.mu.Lock()
	goid := w.goid
	running := w.running
	w.mu.Unlock()
	return running && goid == curGoroutineID()
}

// Join blocks until the worker goroutine terminates. Joining a worker that
// never started returns immediately. Joining from inside the worker would
// never return, so it is detected and skipped.
func (w *Worker) Join() {
	w.mu.Lock()
	done := w.done
	running := w.running
	goid := w.goid
	w.mu.Unlock()

	if done == nil || !running {
		return
	}
	if goid == curGoroutineID() {
		return
	}
	<-done
}

var goroutinePrefix = []byte("goroutine ")

// curGoroutineID extracts the goroutine id from the runtime stack header,
// "goroutine N [state]:". There is no supported API for this; the header
// format has been stable since Go 1.0.
func curGoroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, goroutinePrefix)
	i := bytes.IndexByte(buf, ' ')
	if i < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(buf[:i]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
