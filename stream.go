package mediagraph

import (
	"sync"

	"github.com/jpilet/mediagraph/metric"
	"github.com/jpilet/mediagraph/timestamp"
	"github.com/jpilet/mediagraph/types"
)

// SequenceId identifies an entry within one open/close cycle of a stream.
// Ids are assigned in strictly increasing order starting at 0. The value -1
// means "never read".
type SequenceId int64

// NamedStream is the type-agnostic view of a Stream. Nodes expose their
// output streams through this interface.
type NamedStream interface {
	StreamName() string
	TypeName() string
	Node() NodeHandle
	Open()
	Close()
	NumReaders() int
	Reader(index int) NamedPin
	IsReaderRegistered(reader NamedPin) bool
	DisconnectReaders()
	Properties() *PropertyList
}

// StreamSource is the typed read surface a StreamReader binds to. Stream is
// the standard implementation; pull-driven sources that synthesize data on
// demand can implement it as well. The entry methods are intended to be
// called only through a StreamReader.
type StreamSource[T any] interface {
	NamedStream

	// ReadEntry blocks until an entry qualifies for reader, then delivers
	// it. Returns ok == false on stream error.
	ReadEntry(reader *StreamReader[T]) (value T, ts timestamp.Timestamp, seq SequenceId, ok bool)

	// TryReadEntry is ReadEntry without the wait: if no entry qualifies it
	// returns ok == false immediately.
	TryReadEntry(reader *StreamReader[T]) (value T, ts timestamp.Timestamp, seq SequenceId, ok bool)

	// CanReadEntry reports whether an entry newer than consumedUntil and
	// fresher than fresherThan is available.
	CanReadEntry(consumedUntil SequenceId, fresherThan timestamp.Timestamp) bool

	// RegisterReader and UnregisterReader maintain the reader set.
	RegisterReader(reader *StreamReader[T])
	UnregisterReader(reader *StreamReader[T]) bool
}

// DropPolicy decides when a stream may discard buffered entries.
type DropPolicy int

const (
	dropAny DropPolicy = 1 << iota
	dropZeroReads
	dropReadByAllReaders
)

const (
	// NeverBlockDropOldest drops from the front whenever the queue is full
	// at write time. Writes never block.
	NeverBlockDropOldest = dropAny

	// WaitForConsumptionNeverDrop blocks writes until every buffered entry
	// has been read by every registered or lost reader. This is the default.
	WaitForConsumptionNeverDrop = dropReadByAllReaders

	// WaitForConsumptionOrDropZeroReads additionally evicts entries that no
	// reader has seen, to unblock writers when all readers seek-skipped past
	// them.
	WaitForConsumptionOrDropZeroReads = dropReadByAllReaders | dropZeroReads
)

// DefaultMaxQueueSize is the queue limit used by NewStream.
const DefaultMaxQueueSize = 4

type entry[T any] struct {
	timestamp  timestamp.Timestamp
	sequenceId SequenceId
	value      T

	// Counts how many readers observed the entry. When all of them did, the
	// entry can be discarded.
	numReads int
}

// Stream is a thread-safe, bounded, in-order queue of timestamped values of
// a single element type. A producer calls Write; any number of StreamReaders
// consume at their own pace, each with an independent cursor sharing the one
// buffer. It is the only synchronization and buffering primitive in the
// graph.
type Stream[T any] struct {
	PropertyList
	name string
	node NodeHandle

	mu            sync.Mutex
	dataAvailable *sync.Cond
	slotAvailable *sync.Cond

	buffer     []entry[T]
	queueLimit int
	closed     bool

	// Readers that disconnected while the stream was operating.
	numLostReaders int

	// Counts the calls to Write since the last opening. Used to assign a
	// unique and monotonic sequence id to each entry.
	nextSequenceId SequenceId

	dropPolicy DropPolicy

	// Remember when the last write was, to avoid going back in time.
	lastWrittenTimestamp timestamp.Timestamp

	readers []*StreamReader[T]
}

// NewStream creates a stream with the default policy
// (WaitForConsumptionNeverDrop) and queue limit.
func NewStream[T any](name string, node NodeHandle) *Stream[T] {
	return NewStreamWithPolicy[T](name, node, WaitForConsumptionNeverDrop, DefaultMaxQueueSize)
}

// NewStreamWithPolicy creates a stream with an explicit drop policy and
// queue limit. The policy is fixed for the stream's lifetime.
func NewStreamWithPolicy[T any](name string, node NodeHandle, policy DropPolicy, maxQueueSize int) *Stream[T] {
	s := &Stream[T]{
		name:       name,
		node:       node,
		queueLimit: maxQueueSize,
		dropPolicy: policy,
	}
	s.dataAvailable = sync.NewCond(&s.mu)
	s.slotAvailable = sync.NewCond(&s.mu)
	AddGetProperty(&s.PropertyList, "NumUpdates", s.NumUpdateCalls)
	AddGetProperty(&s.PropertyList, "NumItemsInQueue", s.NumItemsInQueue)
	AddGetSetProperty(&s.PropertyList, "MaxQueueSize", s.MaxQueueSize, s.SetMaxQueueSize)
	return s
}

// StreamName returns the name the stream was created with.
func (s *Stream[T]) StreamName() string { return s.name }

// TypeName returns the element type tag.
func (s *Stream[T]) TypeName() string { return types.Name[T]() }

// Node returns the owning node, or nil.
func (s *Stream[T]) Node() NodeHandle { return s.node }

// DropPolicy returns the policy fixed at construction.
func (s *Stream[T]) DropPolicy() DropPolicy { return s.dropPolicy }

// Write appends (ts, data) as a new entry with the next sequence id,
// provided the stream is open and ts does not go back in time. Depending on
// the drop policy it may block until a slot is available or the stream
// closes. Returns false if the stream closed before a slot became available
// or if the timestamp check failed.
func (s *Stream[T]) Write(ts timestamp.Timestamp, data T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ts.Before(s.lastWrittenTimestamp) {
		metric.Default.StreamRejected.WithLabelValues(s.name).Inc()
		return false
	}
	s.lastWrittenTimestamp = ts

	if s.closed {
		metric.Default.StreamRejected.WithLabelValues(s.name).Inc()
		return false
	}

	seq := s.nextSequenceId
	s.nextSequenceId++

	s.dropEntriesLocked()
	for !s.closed && len(s.buffer) >= s.queueLimit {
		s.slotAvailable.Wait()
		s.dropEntriesLocked()
	}
	if s.closed {
		metric.Default.StreamRejected.WithLabelValues(s.name).Inc()
		return false
	}

	// Count how many readers are interested in this entry. Uninterested
	// readers are credited as if they had read and discarded it.
	interested := 0
	for _, reader := range s.readers {
		if reader.seekPosition().Before(ts) {
			interested++
			reader.SignalActivity()
		} else {
			reader.lastRead.Store(int64(seq))
		}
	}

	if interested > 0 {
		// At least one reader does not want to skip the entry. Lost readers
		// are considered not interested.
		s.buffer = append(s.buffer, entry[T]{
			timestamp:  ts,
			sequenceId: seq,
			value:      data,
			numReads:   s.numLostAndActiveReadersLocked() - interested,
		})
		s.dataAvailable.Broadcast()
	}
	metric.Default.StreamWrites.WithLabelValues(s.name).Inc()
	metric.Default.QueueDepth.WithLabelValues(s.name).Set(float64(len(s.buffer)))
	return true
}

// CanWrite reports whether a Write would proceed without blocking.
func (s *Stream[T]) CanWrite() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropPolicy&dropAny != 0 || len(s.buffer) < s.queueLimit
}

// Close wakes all waiting goroutines, making all current and future calls to
// Write and read fail, and drains the buffer.
func (s *Stream[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = nil
	s.closed = true

	// Tell everybody it is no use to wait for us.
	s.dataAvailable.Broadcast()
	s.slotAvailable.Broadcast()
	for _, reader := range s.readers {
		reader.SignalActivity()
	}
	metric.Default.QueueDepth.WithLabelValues(s.name).Set(0)
}

// Open cancels Close: Write and read behave as normal again. Reopening a
// previously closed stream resets the sequence counter, so readers that were
// connected across the close must disconnect and reconnect.
func (s *Stream[T]) Open() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.numLostReaders = 0
		s.nextSequenceId = 0
	}
	s.closed = false
}

// LastWrittenTimestamp returns the timestamp of the most recent write that
// passed the back-in-time check. A write refused because the stream is
// closed still updates it.
func (s *Stream[T]) LastWrittenTimestamp() timestamp.Timestamp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWrittenTimestamp
}

// NumUpdateCalls returns the number of accepted writes since the stream was
// last opened.
func (s *Stream[T]) NumUpdateCalls() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(s.nextSequenceId)
}

// NumItemsInQueue returns the number of buffered entries.
func (s *Stream[T]) NumItemsInQueue() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffer)
}

// MaxQueueSize returns the queue limit.
func (s *Stream[T]) MaxQueueSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queueLimit
}

// SetMaxQueueSize changes the queue limit. Growing the limit wakes writers
// blocked on a full queue.
func (s *Stream[T]) SetMaxQueueSize(size int) bool {
	if size < 1 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	grown := size > s.queueLimit
	s.queueLimit = size
	if grown {
		s.slotAvailable.Broadcast()
	}
	return true
}

// NumReaders returns the number of registered readers.
func (s *Stream[T]) NumReaders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.readers)
}

// Reader returns registered reader number index, or nil.
func (s *Stream[T]) Reader(index int) NamedPin {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.readers) {
		return nil
	}
	return s.readers[index]
}

// IsReaderRegistered reports whether reader is currently registered.
func (s *Stream[T]) IsReaderRegistered(reader NamedPin) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.readers {
		if NamedPin(r) == reader {
			return true
		}
	}
	return false
}

// DisconnectReaders disconnects every registered reader, notifying the
// owning node of each.
func (s *Stream[T]) DisconnectReaders() {
	for {
		s.mu.Lock()
		if len(s.readers) == 0 {
			s.mu.Unlock()
			return
		}
		reader := s.readers[len(s.readers)-1]
		s.mu.Unlock()
		reader.Disconnect()
	}
}

// RegisterReader adds reader to the stream's reader set. Registering twice
// is ignored. Called by StreamReader.Connect.
func (s *Stream[T]) RegisterReader(reader *StreamReader[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.readers {
		if r == reader {
			return
		}
	}
	s.readers = append(s.readers, reader)
}

// UnregisterReader removes reader from the stream. The departing reader is
// accounted as lost: entries it had not read yet get a synthetic read
// credit, so the remaining readers can still drain them. Called by
// StreamReader.Disconnect.
func (s *Stream[T]) UnregisterReader(reader *StreamReader[T]) bool {
	s.mu.Lock()
	found := false
	for i, r := range s.readers {
		if r == reader {
			seq := SequenceId(reader.lastRead.Load())
			s.readers = append(s.readers[:i], s.readers[i+1:]...)
			s.numLostReaders++
			s.markReadAfterLocked(seq)
			found = true
			break
		}
	}
	if found {
		// The disconnected reader might be waiting. Wake it.
		s.dataAvailable.Broadcast()
		reader.SignalActivity()
	}
	s.mu.Unlock()
	return found
}

// ReadEntry returns the oldest entry the cursor has not consumed that is
// fresher than its seek position, blocking until one arrives. Returns
// ok == false if the stream closes or the reader disconnects while waiting.
func (s *Stream[T]) ReadEntry(reader *StreamReader[T]) (value T, ts timestamp.Timestamp, seq SequenceId, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.closed && reader.IsConnected() &&
		!s.findAndReadEntryLocked(reader, &value, &ts, &seq) {
		// No data. We need to wait.
		s.dataAvailable.Wait()
	}

	ok = !s.closed && reader.IsConnected()
	return value, ts, seq, ok
}

// TryReadEntry is the non-blocking variant of ReadEntry.
func (s *Stream[T]) TryReadEntry(reader *StreamReader[T]) (value T, ts timestamp.Timestamp, seq SequenceId, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok = !s.closed && reader.IsConnected() &&
		s.findAndReadEntryLocked(reader, &value, &ts, &seq)
	return value, ts, seq, ok
}

// CanReadEntry reports whether a qualifying entry is buffered.
func (s *Stream[T]) CanReadEntry(consumedUntil SequenceId, fresherThan timestamp.Timestamp) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.findEntryLocked(consumedUntil, fresherThan)
}

func (s *Stream[T]) findEntryLocked(consumedUntil SequenceId, fresherThan timestamp.Timestamp) bool {
	for i := range s.buffer {
		e := &s.buffer[i]
		if consumedUntil < e.sequenceId && fresherThan.Before(e.timestamp) {
			return true
		}
	}
	return false
}

// findAndReadEntryLocked scans from the oldest entry. Entries older than the
// cursor's seek position are consumed silently: the cursor's last-read id
// advances and the read is counted, which lets the entry be dropped once all
// cursors move past it.
func (s *Stream[T]) findAndReadEntryLocked(reader *StreamReader[T], data *T, ts *timestamp.Timestamp, seq *SequenceId) bool {
	fresherThan := reader.seekPosition()
	found := false

	for i := 0; !found && i < len(s.buffer); {
		e := &s.buffer[i]
		erased := false
		if SequenceId(reader.lastRead.Load()) < e.sequenceId {
			reader.lastRead.Store(int64(e.sequenceId))
			e.numReads++

			if fresherThan.Before(e.timestamp) {
				*data = e.value
				*ts = e.timestamp
				if seq != nil {
					*seq = e.sequenceId
				}
				found = true
				if s.dropPolicy&dropReadByAllReaders != 0 &&
					e.numReads >= s.numLostAndActiveReadersLocked() {
					s.buffer = append(s.buffer[:i], s.buffer[i+1:]...)
					erased = true
					s.slotAvailable.Signal()
				}
			}
		}
		if !erased {
			i++
		}
	}
	s.dropEntriesLocked()
	if found {
		metric.Default.StreamReads.WithLabelValues(s.name).Inc()
		metric.Default.QueueDepth.WithLabelValues(s.name).Set(float64(len(s.buffer)))
	}
	return found
}

// markReadAfterLocked credits one read to every entry newer than seq.
func (s *Stream[T]) markReadAfterLocked(seq SequenceId) {
	for i := range s.buffer {
		if s.buffer[i].sequenceId > seq {
			s.buffer[i].numReads++
		}
	}
	s.dropEntriesLocked()
}

// dropEntriesLocked applies the drop policy once: under NeverBlockDropOldest
// it trims the front until the queue fits, under the waiting policies it
// evicts at most one fully-read (or, if allowed, never-read) entry.
func (s *Stream[T]) dropEntriesLocked() {
	if len(s.buffer) == 0 {
		return
	}
	if s.dropPolicy&dropAny != 0 {
		for len(s.buffer) >= s.queueLimit {
			if s.buffer[0].numReads < s.numLostAndActiveReadersLocked() {
				metric.Default.StreamDropped.WithLabelValues(s.name).Inc()
			}
			s.buffer = s.buffer[1:]
		}
		metric.Default.QueueDepth.WithLabelValues(s.name).Set(float64(len(s.buffer)))
		return
	}
	for i := range s.buffer {
		e := &s.buffer[i]
		zeroReads := s.dropPolicy&dropZeroReads != 0 && e.numReads == 0
		readByAll := s.dropPolicy&dropReadByAllReaders != 0 &&
			e.numReads >= s.numLostAndActiveReadersLocked()
		if zeroReads || readByAll {
			s.buffer = append(s.buffer[:i], s.buffer[i+1:]...)
			if len(s.buffer) < s.queueLimit {
				s.slotAvailable.Signal()
			}
			if zeroReads {
				metric.Default.StreamDropped.WithLabelValues(s.name).Inc()
			}
			metric.Default.QueueDepth.WithLabelValues(s.name).Set(float64(len(s.buffer)))
			return
		}
	}
}

func (s *Stream[T]) numLostAndActiveReadersLocked() int {
	return len(s.readers) + s.numLostReaders
}
