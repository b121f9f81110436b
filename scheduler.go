package tickloop

import "time"

// Scheduler owns a doubly-linked chain of Tasks and drives their dispatch
// via Execute, per spec.md §3/§4.4. It is single-threaded: every exported
// method except what's reachable only via StatusRequest.Signal must be
// called from the same goroutine.
type Scheduler struct {
	head, tail *Task
	current    *Task

	clock       Clock
	highPri     *Scheduler
	sleepMethod func(time.Duration)
	logger      *Logger
	metrics     *Metrics
}

// NewScheduler constructs an empty Scheduler. With no options, it shares
// the package-wide default MillisClock, has no higher-priority layer, no
// sleep method, and no logging or metrics.
func NewScheduler(opts ...SchedulerOption) *Scheduler {
	var cfg schedulerConfig
	for _, o := range opts {
		if o != nil {
			o.applyScheduler(&cfg)
		}
	}
	s := &Scheduler{
		clock:       cfg.clock,
		highPri:     cfg.highPri,
		sleepMethod: cfg.sleepMethod,
		logger:      cfg.logger,
		metrics:     cfg.metrics,
	}
	if s.clock == nil {
		s.clock = defaultClock
	}
	return s
}

// AddTask chains t to this Scheduler. Adding a Task that already belongs to
// a chain (this one or another's) is a no-op and returns false, per
// spec.md §7. Unless the Task was constructed with WithTaskClock, it
// adopts this Scheduler's clock.
func (s *Scheduler) AddTask(t *Task) bool {
	if t.scheduler != nil {
		return false
	}
	if !t.clockExplicit {
		t.clock = s.clock
	}
	t.scheduler = s
	t.prev = s.tail
	t.next = nil
	if s.tail != nil {
		s.tail.next = t
	} else {
		s.head = t
	}
	s.tail = t
	return true
}

// AddTaskErr is AddTask's explicit-error variant, for callers that want to
// errors.Is(err, ErrAlreadyChained) instead of checking a bool.
func (s *Scheduler) AddTaskErr(t *Task) error {
	if !s.AddTask(t) {
		return ErrAlreadyChained
	}
	return nil
}

// DeleteTask unchains t from this Scheduler. Deleting a Task that does not
// belong to this Scheduler's chain is a no-op and returns false, per
// spec.md §7. It does not disable t or touch its callback state; the
// caller retains an ordinary (now-unchained) Task value.
func (s *Scheduler) DeleteTask(t *Task) bool {
	if t.scheduler != s {
		return false
	}
	if t.prev != nil {
		t.prev.next = t.next
	} else {
		s.head = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else {
		s.tail = t.prev
	}
	t.prev = nil
	t.next = nil
	t.scheduler = nil
	return true
}

// DeleteTaskErr is DeleteTask's explicit-error variant.
func (s *Scheduler) DeleteTaskErr(t *Task) error {
	if !s.DeleteTask(t) {
		return ErrNotChained
	}
	return nil
}

// FirstTask returns the head of the chain, or nil if empty.
func (s *Scheduler) FirstTask() *Task { return s.head }

// LastTask returns the tail of the chain, or nil if empty.
func (s *Scheduler) LastTask() *Task { return s.tail }

// CurrentTask returns the Task whose callback is presently running. It is
// only valid while inside Execute; outside of a pass it returns nil
// (spec.md §7).
func (s *Scheduler) CurrentTask() *Task { return s.current }

// SetHighPriorityScheduler installs s2 as this Scheduler's higher-priority
// layer: every visit to a base Task, in Execute, interleaves one full pass
// of s2 first (spec.md §4.5).
func (s *Scheduler) SetHighPriorityScheduler(s2 *Scheduler) { s.highPri = s2 }

// SetSleepMethod installs the idle/tickless hook, invoked with NextRun's
// hint whenever a pass dispatches nothing (spec.md §4.6).
func (s *Scheduler) SetSleepMethod(fn func(next time.Duration)) { s.sleepMethod = fn }

// StartNow re-anchors previousMillis to the current instant for every
// enabled Task in the chain, without changing enabled state, iterations,
// or delay (spec.md §4.4).
func (s *Scheduler) StartNow() {
	now := s.clock.Now()
	for t := s.head; t != nil; t = t.next {
		if t.enabled {
			t.previousMillis = now
		}
	}
}

// EnableAll enables every Task in the chain. If recursive, it also enables
// every Task of the higher-priority layer (and so on up the chain of
// layers).
func (s *Scheduler) EnableAll(recursive bool) {
	for t := s.head; t != nil; t = t.next {
		t.Enable()
	}
	if recursive && s.highPri != nil {
		s.highPri.EnableAll(true)
	}
}

// DisableAll disables every Task in the chain, invoking each one's
// onDisable. If recursive, it also disables every Task of the
// higher-priority layer.
func (s *Scheduler) DisableAll(recursive bool) {
	for t := s.head; t != nil; t = t.next {
		t.Disable()
	}
	if recursive && s.highPri != nil {
		s.highPri.DisableAll(true)
	}
}

// NextRun computes the tickless sleep hint: the minimum positive duration
// until the next due, enabled, non-status-request-blocked Task, or zero if
// any such Task is already overdue (spec.md §4.6, §8 P9).
func (s *Scheduler) NextRun() time.Duration {
	now := s.clock.Now()
	var minUnits uint64
	found := false
	for t := s.head; t != nil; t = t.next {
		if !t.enabled {
			continue
		}
		if t.statusRequest != nil && !t.statusRequest.Signaled() {
			continue
		}
		due := t.previousMillis + t.delayUnits
		diff := signedDiff(now, due)
		if diff >= 0 {
			return 0
		}
		remaining := uint64(-diff)
		if !found || remaining < minUnits {
			minUnits = remaining
			found = true
		}
	}
	if !found {
		return 0
	}
	return durationOf(s.clock, minUnits)
}

// Execute performs one dispatch pass over the chain in insertion order,
// interleaving a full pass of the higher-priority layer (if any) before
// each Task visit. It returns true iff the pass was idle (no callback ran),
// in which case, if a sleep method is installed, it is invoked with
// NextRun's hint (spec.md §4.4).
func (s *Scheduler) Execute() bool {
	idle := true

	cur := s.head
	for cur != nil {
		next := cur.next // snapshot before invoking the callback: safe if the callback deletes cur

		if s.highPri != nil {
			s.highPri.Execute()
		}

		if s.dispatch(cur) {
			idle = false
		}

		if cur.scheduler == s {
			// cur is still chained: follow its current link, so a Task
			// deleted further down the chain during the callback is skipped.
			next = cur.next
		}
		cur = next
	}

	if idle {
		if s.metrics != nil {
			s.metrics.observeIdlePass()
		}
		if s.sleepMethod != nil {
			s.sleepMethod(s.NextRun())
		}
	}

	return idle
}

// dispatch evaluates t's readiness and, if due, invokes its callback and
// applies its scheduling-option anchor update, per spec.md §4.3/§4.4.
func (s *Scheduler) dispatch(t *Task) bool {
	if !t.enabled {
		return false
	}

	now := s.clock.Now()

	if t.timeoutArmed && signedDiff(now, t.enableTimeUnits) >= int64(t.timeoutUnits) {
		t.timedOutFlag = true
		t.Disable()
		if s.metrics != nil {
			s.metrics.observeTimeout()
		}
		if s.logger != nil {
			s.logger.Notice().Str(`category`, logCategoryTask).Log(`task timed out`)
		}
		return false
	}

	if t.statusRequest != nil && !t.statusRequest.Signaled() {
		if s.logger != nil {
			s.logger.Debug().Str(`category`, logCategoryStatus).Log(`task waiting on unsignaled status request`)
		}
		return false
	}

	due := t.previousMillis + t.delayUnits
	overrun := signedDiff(now, due)
	if overrun < 0 {
		return false
	}

	t.overrunUnits = overrun
	if overrun > 0 {
		t.startDelayUnits = overrun
	} else {
		t.startDelayUnits = 0
	}

	s.current = t
	t.runCounter++

	if t.callback != nil {
		t.callback(t)
	}

	if t.statusRequest != nil && t.runCounter == 1 {
		// The wait gate is satisfied by exactly one dispatch; subsequent
		// iterations proceed as an ordinary Task (spec.md §4.1).
		t.statusRequest = nil
	}

	switch t.schedulingOpt {
	case ScheduleCatchUpNone:
		// Re-anchor to the next grid point on the original interval-I phase
		// that is still ahead of now, discarding any fully-missed ticks
		// in between rather than bursting through them.
		intervalUnits := unitsOf(t.clock, t.interval)
		var phase uint64
		if intervalUnits > 0 {
			phase = uint64(overrun) % intervalUnits
		}
		t.previousMillis = now - phase
		t.delayUnits = intervalUnits
	case ScheduleInterval:
		t.previousMillis = now
		t.delayUnits = unitsOf(t.clock, t.interval)
	default: // ScheduleCatchUp
		t.previousMillis = due
		t.delayUnits = unitsOf(t.clock, t.interval)
	}

	terminal := false
	if t.iterations != Forever {
		t.iterations--
		if t.iterations <= 0 {
			terminal = true
		}
	}

	if t.internalSR != nil {
		t.internalSR.SignalComplete(0)
	}

	s.current = nil

	if terminal {
		t.Disable()
	}

	if s.metrics != nil {
		s.metrics.observeDispatch(t, overrun)
	}
	if s.logger != nil {
		s.logger.Debug().Str(`category`, logCategoryScheduler).Log(`task dispatched`)
	}

	return true
}
