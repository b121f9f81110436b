package tickloop

import "sync/atomic"

// StatusRequest is a refcount-like event object, per spec.md §3/§4.2: it
// carries an integer status and a pending count, and transitions from
// pending to signaled exactly once per arming cycle.
//
// StatusRequest.Signal is the sole operation documented as safe to call
// concurrently with everything else in this package (spec.md §5, §9) — it
// is implemented with atomics rather than a mutex so it may be called from
// an interrupt-like context in an embedded port.
type StatusRequest struct {
	count  atomic.Int64
	status atomic.Int32
}

// NewStatusRequest constructs a StatusRequest already in the signaled state
// (count 0), matching the zero-value behavior of the original's struct.
func NewStatusRequest() *StatusRequest { return &StatusRequest{} }

// SetWaiting arms the StatusRequest for n pending signals, clears the
// status code, and marks it unsignaled until Signal brings the count back
// to zero. n must be >= 1.
func (sr *StatusRequest) SetWaiting(n int) {
	if n < 1 {
		n = 1
	}
	sr.status.Store(0)
	sr.count.Store(int64(n))
}

// Signal decrements the pending count by one and records status. If this
// call brings the count to zero, the StatusRequest becomes signaled and
// Signal returns true; any Task waiting on it becomes eligible to dispatch
// at the scheduler's next pass. A Signal on an already-signaled (count <= 0)
// StatusRequest is a no-op, per spec.md §4.2/§7.
func (sr *StatusRequest) Signal(status int) bool {
	for {
		cur := sr.count.Load()
		if cur <= 0 {
			return false
		}
		next := cur - 1
		if !sr.count.CompareAndSwap(cur, next) {
			continue
		}
		sr.status.Store(int32(status))
		return next == 0
	}
}

// SignalComplete forces the StatusRequest directly to the signaled state
// (count 0) with the given status, regardless of how many signals were
// outstanding.
func (sr *StatusRequest) SignalComplete(status int) {
	sr.status.Store(int32(status))
	sr.count.Store(0)
}

// Signaled reports whether the pending count has reached zero.
func (sr *StatusRequest) Signaled() bool { return sr.count.Load() <= 0 }

// Status returns the last status code recorded by Signal or SignalComplete.
// 0 means OK; by convention negative values mean error/cancel/abort/timeout,
// but the value is entirely opaque to the scheduler (spec.md §7).
func (sr *StatusRequest) Status() int { return int(sr.status.Load()) }

// Count returns the number of signals still outstanding before this
// StatusRequest becomes signaled. It is zero or negative once signaled.
func (sr *StatusRequest) Count() int { return int(sr.count.Load()) }
