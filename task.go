package tickloop

import "time"

// defaultClock is the fallback Clock for Tasks and Schedulers constructed
// without an explicit clock. It is a single process-wide MillisClock,
// mirroring the original's reliance on a single global millis() source.
var defaultClock = NewMillisClock()

// Task is the scheduled unit of work, per spec.md §3: timing, counters,
// callbacks, chain linkage, and the optional features gated by TaskOption.
//
// A Task belongs to at most one Scheduler chain at a time (spec.md §3's
// chain-membership invariant); all of its lifecycle methods must be called
// from the goroutine driving that Scheduler's Execute, with the sole
// exception of anything reached only through StatusRequest.Signal.
type Task struct {
	scheduler  *Scheduler
	prev, next *Task

	clock         Clock
	clockExplicit bool

	interval       time.Duration
	iterations     int64
	origIterations int64
	runCounter     int64
	enabled        bool

	previousMillis uint64
	delayUnits     uint64
	schedulingOpt  SchedulingOption

	callback  func(*Task)
	onEnable  func() bool
	onDisable func()

	statusRequest *StatusRequest
	internalSR    *StatusRequest

	id           int32
	hasID        bool
	controlPoint func() bool
	localStorage any

	timeoutUnits    uint64
	timeoutArmed    bool
	enableTimeUnits uint64
	timedOutFlag    bool

	overrunUnits    int64
	startDelayUnits int64

	logger *Logger
}

// NewTask constructs a disabled Task with the given interval, iteration
// count (Forever for an unbounded task, Once for a one-shot, or any
// positive count), and callback. The Task is not chained to any Scheduler
// until AddTask is called.
func NewTask(interval time.Duration, iterations int64, callback func(*Task), opts ...TaskOption) *Task {
	var cfg taskConfig
	cfg.schedulingOpt = ScheduleCatchUp
	for _, o := range opts {
		if o != nil {
			o.applyTask(&cfg)
		}
	}

	t := &Task{
		clock:          defaultClock,
		interval:       interval,
		iterations:     iterations,
		origIterations: iterations,
		callback:       callback,
		schedulingOpt:  cfg.schedulingOpt,
		onEnable:       cfg.onEnable,
		onDisable:      cfg.onDisable,
		controlPoint:   cfg.controlPoint,
		localStorage:   cfg.localStorage,
		id:             cfg.id,
		hasID:          cfg.hasID,
	}
	if cfg.clockExplicit {
		t.clock = cfg.clock
		t.clockExplicit = true
	}
	return t
}

func (t *Task) now() uint64 { return t.clock.Now() }

// Set reconfigures the Task's interval, iteration count, and callback.
// Calling Set on an enabled Task updates these fields without re-anchoring
// the next dispatch time (spec.md §4.1).
func (t *Task) Set(interval time.Duration, iterations int64, callback func(*Task)) {
	t.interval = interval
	t.iterations = iterations
	t.origIterations = iterations
	t.callback = callback
}

// SetInterval updates the interval without re-anchoring.
func (t *Task) SetInterval(d time.Duration) { t.interval = d }

// SetIterations updates the remaining (and the Restart-baseline) iteration
// count without re-anchoring.
func (t *Task) SetIterations(n int64) {
	t.iterations = n
	t.origIterations = n
}

// SetCallback replaces the dispatch callback.
func (t *Task) SetCallback(fn func(*Task)) { t.callback = fn }

// Interval returns the Task's configured interval.
func (t *Task) Interval() time.Duration { return t.interval }

// Iterations returns the Task's current remaining iteration count.
func (t *Task) Iterations() int64 { return t.iterations }

// RunCounter returns the count of completed invocations since the last
// enable; 1-based, valid during the callback (spec.md §3).
func (t *Task) RunCounter() int64 { return t.runCounter }

// Enabled reports whether the Task is currently enabled.
func (t *Task) Enabled() bool { return t.enabled }

// ID returns the Task's application-defined identifier and whether one was
// set via WithID.
func (t *Task) ID() (int32, bool) { return t.id, t.hasID }

// LocalStorage returns the opaque value attached via WithLocalStorage, or
// nil if none was set.
func (t *Task) LocalStorage() any { return t.localStorage }

// ControlPoint polls the predicate installed via WithControlPoint, for
// cooperative early exit from a long-running callback. A Task with no
// control point always reports true (keep going).
func (t *Task) ControlPoint() bool {
	if t.controlPoint == nil {
		return true
	}
	return t.controlPoint()
}

// SchedulingOption returns the Task's catch-up policy.
func (t *Task) SchedulingOption() SchedulingOption { return t.schedulingOpt }

// SetSchedulingOption changes the Task's catch-up policy.
func (t *Task) SetSchedulingOption(opt SchedulingOption) { t.schedulingOpt = opt }

// NextTask returns the next Task in chain order, or nil at the tail (or if
// this Task is unchained). See spec.md §4.4's chain introspection feature.
func (t *Task) NextTask() *Task {
	if t.next == nil {
		return nil
	}
	return t.next
}

// IsFirstIteration reports whether this is the first callback invocation
// since the last enable; valid only while the callback is running
// (spec.md §8, P4).
func (t *Task) IsFirstIteration() bool { return t.runCounter == 1 }

// IsLastIteration reports whether this dispatch will decrement the
// iteration count to zero; valid only while the callback is running
// (spec.md §8, P4). A Forever task never reports true.
func (t *Task) IsLastIteration() bool {
	return t.iterations != Forever && t.iterations == 1
}

// Overrun returns the deviation of the most recent dispatch from its
// nominal due time: positive if it ran late, zero if on time. A Task is only
// dispatched once it is due, so the value is never negative (spec.md §4.3).
func (t *Task) Overrun() time.Duration { return durationOfSigned(t.clock, t.overrunUnits) }

// StartDelay returns the positive portion of Overrun — how much the most
// recent dispatch actually ran late, zero if it ran on time or early.
func (t *Task) StartDelay() time.Duration { return durationOfSigned(t.clock, t.startDelayUnits) }

// StatusRequest returns the Task's internal StatusRequest, lazily creating
// it on first use. Peer tasks may WaitFor it, to be notified each time this
// Task completes a dispatch (spec.md §3's internalStatusRequest).
func (t *Task) StatusRequest() *StatusRequest {
	if t.internalSR == nil {
		t.internalSR = NewStatusRequest()
	}
	return t.internalSR
}

// TriggerStatus returns the Status of the external StatusRequest this Task
// is (or was) waiting on via WaitFor/WaitForDelayed, letting a callback
// consult the status that unblocked it (spec.md §4.2). Returns 0 if the
// Task has no external StatusRequest.
func (t *Task) TriggerStatus() int {
	if t.statusRequest == nil {
		return 0
	}
	return t.statusRequest.Status()
}

// Timeout arms (or, with NoTimeout, disarms) an overall lifetime cap
// measured from the most recent enable/restart/ResetTimeout instant. Once
// now-enableTime >= d, the Task is disabled with TimedOut true, before its
// next dispatch (spec.md §4.1).
func (t *Task) Timeout(d time.Duration) {
	t.timeoutArmed = d != NoTimeout
	t.timeoutUnits = unitsOf(t.clock, d)
}

// UntilTimeout returns the remaining time before this Task's timeout
// fires, or zero if no timeout is armed or it has already elapsed.
func (t *Task) UntilTimeout() time.Duration {
	if !t.timeoutArmed {
		return 0
	}
	elapsed := signedDiff(t.now(), t.enableTimeUnits)
	remaining := int64(t.timeoutUnits) - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return durationOf(t.clock, uint64(remaining))
}

// ResetTimeout re-anchors the timeout window to the current instant,
// without changing the armed duration.
func (t *Task) ResetTimeout() { t.enableTimeUnits = t.now() }

// TimedOut reports whether the Task's most recent disable was caused by
// timeout expiry.
func (t *Task) TimedOut() bool { return t.timedOutFlag }

// Enable transitions the Task to enabled, anchoring it so the first
// dispatch happens on the very next pass (previousMillis = now, delay = 0).
// runCounter resets to 0. If this is a disabled->enabled transition and an
// onEnable guard is installed, it runs before Enable returns; returning
// false vetoes the enable (the Task stays/returns to disabled) regardless
// of any pending StatusRequest (spec.md §9's veto-wins resolution). Enable
// returns the Task's enabled state after the guard has run.
func (t *Task) Enable() bool { return t.enable(false, false, 0) }

// EnableErr is Enable's explicit-error variant: it returns ErrEnableVetoed
// if an installed onEnable guard refused the disabled->enabled transition.
func (t *Task) EnableErr() error {
	if !t.Enable() {
		return ErrEnableVetoed
	}
	return nil
}

// EnableDelayed is like Enable, but anchors previousMillis to now and sets
// the initial delay to d (defaulting to the Task's interval when d <= 0).
func (t *Task) EnableDelayed(d time.Duration) bool {
	if d <= 0 {
		d = t.interval
	}
	return t.enable(false, true, d)
}

// Restart is like Enable, but additionally resets the iteration count to
// the value most recently configured via NewTask/Set/SetIterations. Per
// spec.md §9, onEnable fires only on a disabled->enabled transition, never
// when Restart is called on an already-enabled Task (it still re-anchors
// and resets iterations).
func (t *Task) Restart() bool { return t.enable(true, false, 0) }

// RestartDelayed combines Restart's iteration reset with EnableDelayed's
// anchoring.
func (t *Task) RestartDelayed(d time.Duration) bool {
	if d <= 0 {
		d = t.interval
	}
	return t.enable(true, true, d)
}

func (t *Task) enable(resetIterations, delayed bool, delay time.Duration) bool {
	wasEnabled := t.enabled
	now := t.now()

	if delayed {
		t.previousMillis = now
		t.delayUnits = unitsOf(t.clock, delay)
	} else {
		// Anchor the first due instant to exactly now, not now-interval:
		// the latter would make the anchor-update rules of ScheduleCatchUp
		// mistake this synthetic first due instant for a real missed grid
		// point and fail to advance past it.
		t.previousMillis = now
		t.delayUnits = 0
	}

	t.runCounter = 0
	if resetIterations {
		t.iterations = t.origIterations
	}
	t.enabled = true
	t.timedOutFlag = false
	t.enableTimeUnits = now

	if !wasEnabled {
		if t.onEnable != nil && !t.onEnable() {
			t.enabled = false
			t.statusRequest = nil
			return false
		}
	}
	return true
}

// Delay re-anchors the next invocation to now+d, without changing the
// enabled state, iteration count, or runCounter (spec.md §4.1).
func (t *Task) Delay(d time.Duration) {
	now := t.now()
	t.previousMillis = now
	t.delayUnits = unitsOf(t.clock, d)
}

// Disable transitions the Task to disabled and, unless it was already
// disabled, invokes onDisable exactly once. Disable detaches any external
// StatusRequest association (spec.md's design note on the StatusRequest<->
// Task weak relation).
func (t *Task) Disable() {
	if !t.enabled {
		return
	}
	t.enabled = false
	t.statusRequest = nil
	if t.onDisable != nil {
		t.onDisable()
	}
}

// WaitFor enables the Task, but additionally requires sr to be Signaled
// before the first dispatch; once signaled, the Task dispatches once and
// then proceeds with normal iteration/interval bookkeeping (spec.md §4.1,
// P5). interval and iterations reconfigure the Task as Set would.
func (t *Task) WaitFor(sr *StatusRequest, interval time.Duration, iterations int64) bool {
	t.interval = interval
	t.iterations = iterations
	t.origIterations = iterations
	t.statusRequest = sr
	return t.enable(false, false, 0)
}

// WaitForDelayed is WaitFor with an additional initial delay before the
// StatusRequest gate is even considered.
func (t *Task) WaitForDelayed(sr *StatusRequest, delay, interval time.Duration, iterations int64) bool {
	t.interval = interval
	t.iterations = iterations
	t.origIterations = iterations
	t.statusRequest = sr
	if delay <= 0 {
		delay = interval
	}
	return t.enable(false, true, delay)
}

// durationOfSigned converts a signed unit count back to a time.Duration,
// preserving sign, for Overrun/StartDelay.
func durationOfSigned(c Clock, units int64) time.Duration {
	neg := units < 0
	if neg {
		units = -units
	}
	d := durationOf(c, uint64(units))
	if neg {
		d = -d
	}
	return d
}
