// Package timestamp provides microsecond-resolution instants and durations
// used to tag every entry flowing through a media graph.
package timestamp

import (
	"time"
)

// Duration is a relative time period in microseconds. It can be built from a
// constant in a specified unit, or by subtracting two Timestamps. The zero
// value is a duration of length 0.
type Duration int64

// Seconds builds a Duration from a floating point number of seconds.
func Seconds(sec float64) Duration {
	return Duration(int64(sec * 1e6))
}

// MilliSeconds builds a Duration from a floating point number of milliseconds.
func MilliSeconds(msec float64) Duration {
	return Duration(int64(msec * 1e3))
}

// MicroSeconds builds a Duration from an integer number of microseconds.
func MicroSeconds(usec int64) Duration {
	return Duration(usec)
}

func (d Duration) MicroSeconds() int64 { return int64(d) }
func (d Duration) MilliSeconds() int64 { return int64(d) / 1000 }
func (d Duration) Seconds() float64    { return float64(d) * 1e-6 }

// Abs returns the absolute value of d.
func (d Duration) Abs() Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Scale multiplies the duration by a floating point factor.
func (d Duration) Scale(factor float64) Duration {
	return Duration(int64(float64(d) * factor))
}

// Sleep pauses the current goroutine for at least d. The pause can be longer,
// expect a few milliseconds of slack. To wait for a short and more accurate
// time, poll Now() until it reaches the time you want.
func (d Duration) Sleep() {
	if d > 0 {
		time.Sleep(time.Duration(d) * time.Microsecond)
	}
}

// Timestamp represents the time at which an event occurred, in microseconds
// elapsed since Jan. 1st 1970, UTC. The internal accuracy depends on the
// system; the unit test checks that it is at least 100 microseconds.
type Timestamp int64

// Now returns a timestamp containing the current time.
func Now() Timestamp {
	return Timestamp(time.Now().UnixMicro())
}

// MicroSecondsSince1970 builds a Timestamp from a Unix epoch in microseconds.
func MicroSecondsSince1970(epoch int64) Timestamp {
	return Timestamp(epoch)
}

func (t Timestamp) MicroSecondsSince1970() int64 { return int64(t) }

// Sub returns the duration elapsed between u and t.
func (t Timestamp) Sub(u Timestamp) Duration {
	return Duration(int64(t) - int64(u))
}

// Add returns t shifted forward by d.
func (t Timestamp) Add(d Duration) Timestamp {
	return Timestamp(int64(t) + int64(d))
}

// Before reports whether t is strictly earlier than u.
func (t Timestamp) Before(u Timestamp) bool { return t < u }

// After reports whether t is strictly later than u.
func (t Timestamp) After(u Timestamp) bool { return t > u }

// Time converts the timestamp to a time.Time in UTC.
func (t Timestamp) Time() time.Time {
	return time.UnixMicro(int64(t)).UTC()
}

// String formats the timestamp as UTC time.
func (t Timestamp) String() string {
	return t.Time().Format("2006.01.02 - 15:04:05.000000")
}
