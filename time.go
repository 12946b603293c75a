package gatesched

// time.go defines the integer time representation used throughout scheduling.
// Descriptor files carry times in seconds (float64), the way the rest of the
// iti tooling does; internally every quantity is an integer count of picoseconds
// so that window comparisons are exact and repeated runs are bit-identical.

import (
	"fmt"
	"github.com/iti/evt/vrtime"
	"math"
)

// Time is a point in, or a span of, the gate cycle, in picoseconds
type Time int64

const (
	Picosecond  Time = 1
	Nanosecond  Time = 1000 * Picosecond
	Microsecond Time = 1000 * Nanosecond
	Millisecond Time = 1000 * Microsecond
	Second      Time = 1000 * Millisecond
)

// Unresolved marks a start offset that the resolver has not yet written
const Unresolved Time = -1

// SecondsToTime converts a time expressed in seconds, rounding to the nearest picosecond
func SecondsToTime(secs float64) Time {
	return Time(math.Round(secs * float64(Second)))
}

// Seconds returns the time expressed in seconds
func (t Time) Seconds() float64 {
	return float64(t) / float64(Second)
}

// VrTime converts to the virtual time representation used by the iti discrete-event
// simulators, at the tick rate vrtime is set to, so that offsets can be handed to traffic
// sources there.  A time falling between two ticks is rounded up to the later one and
// exact is false; a packet released on the returned time is never early for its window.
// vrtime.TicksPerSecond is expected to divide 1e12, or be a multiple of it.
func (t Time) VrTime() (vrt vrtime.Time, exact bool) {
	psPerTick := int64(Second) / vrtime.TicksPerSecond
	if psPerTick == 0 {
		// ticks finer than a picosecond
		return vrtime.CreateTime(int64(t)*(vrtime.TicksPerSecond/int64(Second)), 0), true
	}
	ticks, rem := int64(t)/psPerTick, int64(t)%psPerTick
	if rem > 0 {
		ticks += 1
	}
	return vrtime.CreateTime(ticks, 0), rem == 0
}

// String prints the time in the largest unit that represents it exactly
func (t Time) String() string {
	if t == 0 {
		return "0s"
	}
	units := []struct {
		size Time
		name string
	}{
		{Second, "s"}, {Millisecond, "ms"}, {Microsecond, "us"}, {Nanosecond, "ns"},
	}
	for _, u := range units {
		if t%u.size == 0 {
			return fmt.Sprintf("%d%s", t/u.size, u.name)
		}
	}
	return fmt.Sprintf("%dps", int64(t))
}

// bitTime returns the time needed to serialize the given number of bits at datarate (bits/sec)
func bitTime(bits int64, datarate float64) Time {
	return Time(math.Round(float64(bits) * float64(Second) / datarate))
}
