package mediagraph

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpilet/mediagraph/timestamp"
)

func at(usec int64) timestamp.Timestamp { return timestamp.MicroSecondsSince1970(usec) }

func connectedReader(t *testing.T, s *Stream[int]) *StreamReader[int] {
	t.Helper()
	r := NewStreamReader[int]("in", nil)
	require.True(t, r.Connect(s))
	return r
}

func TestWriteReadInOrder(t *testing.T) {
	s := NewStream[int]("s", nil)
	r := connectedReader(t, s)

	require.True(t, s.Write(at(10), 100))
	require.True(t, s.Write(at(20), 200))
	require.True(t, s.Write(at(30), 300))

	for i, want := range []struct {
		value int
		ts    int64
		seq   SequenceId
	}{{100, 10, 0}, {200, 20, 1}, {300, 30, 2}} {
		value, ts, seq, ok := r.Read()
		require.True(t, ok, "read %d", i)
		assert.Equal(t, want.value, value)
		assert.Equal(t, at(want.ts), ts)
		assert.Equal(t, want.seq, seq)
	}
	_, _, _, ok := r.TryRead()
	assert.False(t, ok)
}

func TestWriteRefusesToGoBackInTime(t *testing.T) {
	s := NewStream[int]("s", nil)
	r := connectedReader(t, s)

	require.True(t, s.Write(at(100), 1))
	assert.False(t, s.Write(at(99), 2))
	assert.Equal(t, at(100), s.LastWrittenTimestamp())

	// Equal timestamps are permitted for distinct sequence ids.
	require.True(t, s.Write(at(100), 3))

	_, ts, seq, ok := r.Read()
	require.True(t, ok)
	assert.Equal(t, at(100), ts)
	assert.Equal(t, SequenceId(0), seq)
	_, ts, seq, ok = r.Read()
	require.True(t, ok)
	assert.Equal(t, at(100), ts)
	assert.Equal(t, SequenceId(1), seq)
}

func TestWriteOnClosedStreamFails(t *testing.T) {
	s := NewStream[int]("s", nil)
	s.Close()
	assert.False(t, s.Write(at(1), 1))
	s.Open()
	assert.True(t, s.Write(at(2), 1))
}

func TestWriteWithoutInterestedReaderIsAbsorbed(t *testing.T) {
	s := NewStream[int]("s", nil)

	// No reader at all.
	require.True(t, s.Write(at(10), 1))
	assert.Equal(t, 0, s.NumItemsInQueue())
	assert.Equal(t, int64(1), s.NumUpdateCalls())

	// A reader that seek-skipped the write is pre-credited.
	r := connectedReader(t, s)
	require.True(t, r.Seek(at(100)))
	require.True(t, s.Write(at(50), 2))
	assert.Equal(t, 0, s.NumItemsInQueue())
	assert.Equal(t, SequenceId(1), r.LastReadSequenceId())

	// A fresher write is stored.
	require.True(t, s.Write(at(150), 3))
	assert.Equal(t, 1, s.NumItemsInQueue())

	value, ts, seq, ok := r.Read()
	require.True(t, ok)
	assert.Equal(t, 3, value)
	assert.Equal(t, at(150), ts)
	assert.Equal(t, SequenceId(2), seq)
}

func TestSeekIsMonotonic(t *testing.T) {
	s := NewStream[int]("s", nil)
	r := connectedReader(t, s)

	require.True(t, r.Seek(at(100)))
	assert.False(t, r.Seek(at(99)))
	assert.Equal(t, at(100), r.SeekPosition())
	require.True(t, r.Seek(at(100)))
}

func TestTryReadHonorsSeekPosition(t *testing.T) {
	s := NewStream[int]("s", nil)
	r := connectedReader(t, s)

	require.True(t, s.Write(at(10), 1))
	require.True(t, s.Write(at(20), 2))
	require.True(t, r.Seek(at(15)))

	assert.True(t, r.CanRead())
	value, ts, seq, ok := r.TryRead()
	require.True(t, ok)
	assert.Equal(t, 2, value)
	assert.Equal(t, at(20), ts)
	assert.Equal(t, SequenceId(1), seq)

	// The skipped entry was still accounted as read by this cursor.
	assert.Equal(t, 0, s.NumItemsInQueue())
	assert.False(t, r.CanRead())
}

func TestNeverBlockDropOldest(t *testing.T) {
	s := NewStreamWithPolicy[int]("s", nil, NeverBlockDropOldest, 2)
	r := connectedReader(t, s)

	for i := 0; i < 5; i++ {
		assert.True(t, s.CanWrite())
		require.True(t, s.Write(at(int64(10*(i+1))), i))
		assert.LessOrEqual(t, s.NumItemsInQueue(), 2)
	}

	// The oldest entries were dropped; the reader observes the tail.
	value, _, seq, ok := r.TryRead()
	require.True(t, ok)
	assert.Equal(t, 3, value)
	assert.Equal(t, SequenceId(3), seq)

	value, _, seq, ok = r.TryRead()
	require.True(t, ok)
	assert.Equal(t, 4, value)
	assert.Equal(t, SequenceId(4), seq)
}

func TestBlockingWriteWaitsForConsumption(t *testing.T) {
	s := NewStreamWithPolicy[int]("s", nil, WaitForConsumptionNeverDrop, 2)
	r := connectedReader(t, s)

	require.True(t, s.Write(at(10), 0))
	require.True(t, s.Write(at(20), 1))
	assert.False(t, s.CanWrite())

	done := make(chan bool, 1)
	go func() {
		done <- s.Write(at(30), 2)
	}()

	select {
	case <-done:
		t.Fatal("write should have blocked on a full queue")
	case <-time.After(50 * time.Millisecond):
	}

	// Reading one entry frees a slot.
	_, _, _, ok := r.Read()
	require.True(t, ok)

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("write did not resume after a slot became available")
	}
}

func TestDropZeroReadsUnblocksWriter(t *testing.T) {
	s := NewStreamWithPolicy[int]("s", nil, WaitForConsumptionOrDropZeroReads, 2)
	connectedReader(t, s)

	// Nobody reads, yet writes keep going: never-read entries are evicted.
	for i := 0; i < 10; i++ {
		require.True(t, s.Write(at(int64(10*(i+1))), i))
	}
	assert.LessOrEqual(t, s.NumItemsInQueue(), 2)
}

func TestTwoReadersShareTheBuffer(t *testing.T) {
	s := NewStreamWithPolicy[int]("s", nil, WaitForConsumptionNeverDrop, 4)
	a := connectedReader(t, s)
	b := connectedReader(t, s)

	require.True(t, s.Write(at(10), 1))
	require.True(t, s.Write(at(20), 2))

	// a reads both entries; they stay buffered for b.
	for want := 1; want <= 2; want++ {
		value, _, _, ok := a.Read()
		require.True(t, ok)
		assert.Equal(t, want, value)
	}
	assert.Equal(t, 2, s.NumItemsInQueue())

	// b reads both entries; now they can go.
	for want := 1; want <= 2; want++ {
		value, _, _, ok := b.Read()
		require.True(t, ok)
		assert.Equal(t, want, value)
	}
	assert.Equal(t, 0, s.NumItemsInQueue())
}

func TestDisconnectedReaderCreditsItsUnreadEntries(t *testing.T) {
	s := NewStreamWithPolicy[int]("s", nil, WaitForConsumptionNeverDrop, 4)
	a := connectedReader(t, s)
	b := connectedReader(t, s)

	require.True(t, s.Write(at(10), 1))
	require.True(t, s.Write(at(20), 2))

	value, _, _, ok := a.Read()
	require.True(t, ok)
	assert.Equal(t, 1, value)

	// b leaves without reading anything: its credits let a drain alone.
	b.Disconnect()
	assert.Equal(t, 1, s.NumReaders())

	value, _, _, ok = a.Read()
	require.True(t, ok)
	assert.Equal(t, 2, value)
	assert.Equal(t, 0, s.NumItemsInQueue())
}

func TestCloseWakesBlockedReader(t *testing.T) {
	s := NewStream[int]("s", nil)
	r := connectedReader(t, s)

	result := make(chan bool, 1)
	go func() {
		_, _, _, ok := r.Read()
		result <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	s.Close()

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked read did not return after close")
	}
}

func TestCloseWakesBlockedWriter(t *testing.T) {
	s := NewStreamWithPolicy[int]("s", nil, WaitForConsumptionNeverDrop, 1)
	connectedReader(t, s)

	require.True(t, s.Write(at(10), 1))

	result := make(chan bool, 1)
	go func() {
		result <- s.Write(at(20), 2)
	}()

	time.Sleep(20 * time.Millisecond)
	s.Close()

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked write did not return after close")
	}
}

func TestDisconnectWakesBlockedReader(t *testing.T) {
	s := NewStream[int]("s", nil)
	r := connectedReader(t, s)

	result := make(chan bool, 1)
	go func() {
		_, _, _, ok := r.Read()
		result <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	r.Disconnect()

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked read did not return after disconnect")
	}
	assert.False(t, r.IsConnected())
}

func TestReopenResetsSequenceIds(t *testing.T) {
	s := NewStream[int]("s", nil)
	r := connectedReader(t, s)

	require.True(t, s.Write(at(10), 1))
	_, _, seq, ok := r.Read()
	require.True(t, ok)
	require.Equal(t, SequenceId(0), seq)

	s.Close()
	assert.Equal(t, 0, s.NumItemsInQueue())
	s.Open()
	assert.Equal(t, int64(0), s.NumUpdateCalls())

	// A reader that stayed connected across the cycle must reconnect to see
	// post-reopen writes: its cursor is ahead of the fresh ids.
	r.Disconnect()
	r = connectedReader(t, s)

	require.True(t, s.Write(at(20), 2))
	_, _, seq, ok = r.Read()
	require.True(t, ok)
	assert.Equal(t, SequenceId(0), seq)
}

func TestConnectRejectsTypeMismatch(t *testing.T) {
	ints := NewStream[int]("ints", nil)
	r := NewStreamReader[string]("in", nil)

	assert.False(t, r.Connect(ints))
	assert.False(t, r.IsConnected())
	assert.Equal(t, 0, ints.NumReaders())
}

func TestConnectSwitchesStreams(t *testing.T) {
	a := NewStream[int]("a", nil)
	b := NewStream[int]("b", nil)
	r := NewStreamReader[int]("in", nil)

	require.True(t, r.Connect(a))
	require.True(t, a.IsReaderRegistered(r))

	require.True(t, a.Write(at(10), 1))
	_, _, seq, ok := r.Read()
	require.True(t, ok)
	require.Equal(t, SequenceId(0), seq)

	// Connecting elsewhere resets the cursor and unregisters from a.
	require.True(t, r.Connect(b))
	assert.Equal(t, 0, a.NumReaders())
	require.True(t, b.IsReaderRegistered(r))

	require.True(t, b.Write(at(5), 7))
	value, _, seq, ok := r.Read()
	require.True(t, ok)
	assert.Equal(t, 7, value)
	assert.Equal(t, SequenceId(0), seq)
}

func TestDisconnectReaders(t *testing.T) {
	s := NewStream[int]("s", nil)
	a := connectedReader(t, s)
	b := connectedReader(t, s)
	require.Equal(t, 2, s.NumReaders())

	s.DisconnectReaders()
	assert.Equal(t, 0, s.NumReaders())
	assert.False(t, a.IsConnected())
	assert.False(t, b.IsConnected())
}

func TestSetMaxQueueSizeUnblocksWriter(t *testing.T) {
	s := NewStreamWithPolicy[int]("s", nil, WaitForConsumptionNeverDrop, 1)
	connectedReader(t, s)

	require.True(t, s.Write(at(10), 1))

	result := make(chan bool, 1)
	go func() {
		result <- s.Write(at(20), 2)
	}()

	time.Sleep(20 * time.Millisecond)
	require.True(t, s.SetMaxQueueSize(2))

	select {
	case ok := <-result:
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("blocked write did not notice the larger queue")
	}
	assert.False(t, s.SetMaxQueueSize(0))
}

// A writer and several readers hammer the stream concurrently; every reader
// must observe strictly increasing sequence ids and non-decreasing
// timestamps.
func TestConcurrentReadersSeeMonotonicEntries(t *testing.T) {
	const numReaders = 4
	const numWrites = 200

	s := NewStreamWithPolicy[int]("s", nil, WaitForConsumptionNeverDrop, 4)
	readers := make([]*StreamReader[int], numReaders)
	for i := range readers {
		readers[i] = connectedReader(t, s)
	}

	var wg sync.WaitGroup
	for _, r := range readers {
		wg.Add(1)
		go func(r *StreamReader[int]) {
			defer wg.Done()
			lastSeq := SequenceId(-1)
			lastTs := timestamp.Timestamp(0)
			for {
				_, ts, seq, ok := r.Read()
				if !ok {
					return
				}
				assert.Greater(t, seq, lastSeq)
				assert.GreaterOrEqual(t, ts, lastTs)
				lastSeq, lastTs = seq, ts
			}
		}(r)
	}

	for i := 0; i < numWrites; i++ {
		require.True(t, s.Write(at(int64(i+1)), i))
	}
	s.Close()
	wg.Wait()
}
