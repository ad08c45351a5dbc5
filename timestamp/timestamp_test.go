package timestamp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationUnits(t *testing.T) {
	assert.Equal(t, int64(1500000), Seconds(1.5).MicroSeconds())
	assert.Equal(t, int64(2500), MilliSeconds(2.5).MicroSeconds())
	assert.Equal(t, int64(42), MicroSeconds(42).MicroSeconds())
	assert.Equal(t, int64(2), MilliSeconds(2.5).MilliSeconds())
	assert.InDelta(t, 0.25, MilliSeconds(250).Seconds(), 1e-9)
}

func TestDurationArithmetic(t *testing.T) {
	d := Seconds(1) - Seconds(2)
	assert.Equal(t, int64(-1000000), d.MicroSeconds())
	assert.Equal(t, Seconds(1), d.Abs())
	assert.Equal(t, MilliSeconds(500), Seconds(1).Scale(0.5))
}

func TestTimestampOrdering(t *testing.T) {
	a := MicroSecondsSince1970(1000)
	b := MicroSecondsSince1970(2000)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(b))
	assert.Equal(t, MicroSeconds(1000), b.Sub(a))
	assert.Equal(t, b, a.Add(MicroSeconds(1000)))
	assert.Equal(t, a, b.Add(MicroSeconds(-1000)))
}

func TestNowIsMonotonicEnough(t *testing.T) {
	// Now() must move forward and have at least 100 micro-sec resolution.
	start := Now()
	deadline := time.Now().Add(time.Second)
	for Now() == start {
		require.True(t, time.Now().Before(deadline), "clock did not advance")
	}
	end := Now()
	require.True(t, end.After(start))
	require.Less(t, end.Sub(start).MicroSeconds(), int64(100))
}

func TestSleepWaitsAtLeastTheDuration(t *testing.T) {
	before := Now()
	MilliSeconds(10).Sleep()
	elapsed := Now().Sub(before)
	assert.GreaterOrEqual(t, elapsed.MicroSeconds(), int64(10000))
}

func TestStringIsUTC(t *testing.T) {
	ts := MicroSecondsSince1970(0)
	assert.Equal(t, "1970.01.01 - 00:00:00.000000", ts.String())
}
