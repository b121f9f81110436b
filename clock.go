package tickloop

import (
	"sync/atomic"
	"time"
)

// Clock is the host-provided monotonic time oracle, per spec.md §6: it
// returns an unsigned count in its own resolution, and callers must tolerate
// wraparound (all scheduler arithmetic on a Clock's output is modular).
type Clock interface {
	// Now returns the current monotonic count. It must never go backwards,
	// except by wrapping around the full range of uint64.
	Now() uint64
}

// Resolution reports the duration represented by one unit of a Clock's
// count, e.g. time.Millisecond for MillisClock.
type Resolution interface {
	Resolution() time.Duration
}

// MillisClock is a Clock backed by time.Now(), counting in milliseconds.
// It is the default used by NewScheduler when no Clock option is given.
type MillisClock struct{ start time.Time }

// NewMillisClock constructs a MillisClock anchored to the current time.
func NewMillisClock() *MillisClock { return &MillisClock{start: time.Now()} }

// Now implements Clock.
func (c *MillisClock) Now() uint64 { return uint64(time.Since(c.start).Milliseconds()) }

// Resolution implements Resolution.
func (c *MillisClock) Resolution() time.Duration { return time.Millisecond }

// MicrosClock is a Clock backed by time.Now(), counting in microseconds.
// It is the Go-native replacement for the original's compile-time
// microsecond-resolution build switch (see SPEC_FULL.md §6).
type MicrosClock struct{ start time.Time }

// NewMicrosClock constructs a MicrosClock anchored to the current time.
func NewMicrosClock() *MicrosClock { return &MicrosClock{start: time.Now()} }

// Now implements Clock.
func (c *MicrosClock) Now() uint64 { return uint64(time.Since(c.start).Microseconds()) }

// Resolution implements Resolution.
func (c *MicrosClock) Resolution() time.Duration { return time.Microsecond }

// ManualClock is a synthetic Clock for deterministic tests: time advances
// only when Advance is called. It is also used to exercise counter
// wraparound (P8 of spec.md §8) by seeding near math.MaxUint64.
type ManualClock struct {
	now  atomic.Uint64
	unit time.Duration
}

// NewManualClock constructs a ManualClock starting at 0, with the given
// unit (the duration one tick of Now represents, purely informational for
// tests that want to convert back to time.Duration).
func NewManualClock(unit time.Duration) *ManualClock {
	c := &ManualClock{unit: unit}
	return c
}

// Now implements Clock.
func (c *ManualClock) Now() uint64 { return c.now.Load() }

// Resolution implements Resolution.
func (c *ManualClock) Resolution() time.Duration { return c.unit }

// Set pins the clock to an exact value, e.g. to seed a wraparound test.
func (c *ManualClock) Set(v uint64) { c.now.Store(v) }

// Advance moves the clock forward by n units and returns the new value.
// n wraps around uint64 the same way a real hardware counter would.
func (c *ManualClock) Advance(n uint64) uint64 { return c.now.Add(n) }

// unitsOf converts a time.Duration to a count of clock units, rounding down.
// Resolution-less clocks (a bespoke Clock implementation with no Resolution
// method) fall back to millisecond units, matching the package default.
func unitsOf(c Clock, d time.Duration) uint64 {
	res := time.Millisecond
	if r, ok := c.(Resolution); ok {
		res = r.Resolution()
	}
	if d <= 0 {
		return 0
	}
	return uint64(d / res)
}

// durationOf is the inverse of unitsOf: converts a count of clock units back
// to a time.Duration, for APIs like Scheduler.NextRun.
func durationOf(c Clock, units uint64) time.Duration {
	res := time.Millisecond
	if r, ok := c.(Resolution); ok {
		res = r.Resolution()
	}
	return time.Duration(units) * res
}

// signedDiff computes a-b as a signed difference over the modular uint64
// space, tolerating wraparound, per spec.md §4.3's readiness test. It is
// only meaningful (and only used) for differences whose true magnitude
// spans less than half of the uint64 range.
func signedDiff(a, b uint64) int64 { return int64(a - b) }
