package tickloop

import "time"

// schedulerConfig holds configuration resolved from SchedulerOption values,
// generalizing the teacher's loopOptions/LoopOption pattern from a single
// event loop to this package's Scheduler and Task types.
type schedulerConfig struct {
	clock       Clock
	highPri     *Scheduler
	sleepMethod func(next time.Duration)
	logger      *Logger
	metrics     *Metrics
}

// SchedulerOption configures a Scheduler constructed via NewScheduler.
type SchedulerOption interface {
	applyScheduler(*schedulerConfig)
}

type schedulerOptionFunc func(*schedulerConfig)

func (f schedulerOptionFunc) applyScheduler(c *schedulerConfig) { f(c) }

// WithClock overrides the Scheduler's time source. The default is the
// package-wide MillisClock shared by every Scheduler and Task built without
// a clock, anchored when the package is initialized.
func WithClock(c Clock) SchedulerOption {
	return schedulerOptionFunc(func(cfg *schedulerConfig) { cfg.clock = c })
}

// WithHighPriorityScheduler installs s as this Scheduler's higher-priority
// layer, equivalent to calling Scheduler.SetHighPriorityScheduler after
// construction.
func WithHighPriorityScheduler(s *Scheduler) SchedulerOption {
	return schedulerOptionFunc(func(cfg *schedulerConfig) { cfg.highPri = s })
}

// WithSleepMethod installs the idle/tickless sleep callback, invoked with
// Scheduler.NextRun's hint whenever a pass is idle.
func WithSleepMethod(fn func(next time.Duration)) SchedulerOption {
	return schedulerOptionFunc(func(cfg *schedulerConfig) { cfg.sleepMethod = fn })
}

// WithLogger attaches a structured Logger to the Scheduler. A nil Logger
// (the default) disables logging entirely, at no runtime cost beyond a nil
// check (logiface.Logger's methods are nil-safe).
func WithLogger(l *Logger) SchedulerOption {
	return schedulerOptionFunc(func(cfg *schedulerConfig) { cfg.logger = l })
}

// WithMetrics attaches Prometheus instrumentation to the Scheduler. A nil
// Metrics (the default) disables instrumentation entirely.
func WithMetrics(m *Metrics) SchedulerOption {
	return schedulerOptionFunc(func(cfg *schedulerConfig) { cfg.metrics = m })
}

// taskConfig holds configuration resolved from TaskOption values.
type taskConfig struct {
	clock         Clock
	clockExplicit bool
	id            int32
	hasID         bool
	controlPoint  func() bool
	localStorage  any
	onEnable      func() bool
	onDisable     func()
	schedulingOpt SchedulingOption
}

// TaskOption configures a Task constructed via NewTask. These are the
// Go-idiomatic rendering of the original's compile-time feature switches
// (ID, control point, local storage, scheduling option) — see SPEC_FULL.md
// §9 for the rationale.
type TaskOption interface {
	applyTask(*taskConfig)
}

type taskOptionFunc func(*taskConfig)

func (f taskOptionFunc) applyTask(c *taskConfig) { f(c) }

// WithTaskClock overrides the Task's time source, for use independent of a
// Scheduler (e.g. in tests). If not given, a Task adopts its Scheduler's
// clock when added via Scheduler.AddTask.
func WithTaskClock(c Clock) TaskOption {
	return taskOptionFunc(func(cfg *taskConfig) {
		cfg.clock = c
		cfg.clockExplicit = true
	})
}

// WithID attaches an application-defined identifier to the Task, retrieved
// via Task.ID.
func WithID(id int32) TaskOption {
	return taskOptionFunc(func(cfg *taskConfig) {
		cfg.id = id
		cfg.hasID = true
	})
}

// WithControlPoint installs a predicate a long-running callback may poll via
// Task.ControlPoint, for cooperative early exit. A Task with no control
// point reports true (keep going) unconditionally.
func WithControlPoint(fn func() bool) TaskOption {
	return taskOptionFunc(func(cfg *taskConfig) { cfg.controlPoint = fn })
}

// WithLocalStorage attaches an opaque value to the Task, retrieved via
// Task.LocalStorage, for callback-private state that should outlive a
// single dispatch.
func WithLocalStorage(v any) TaskOption {
	return taskOptionFunc(func(cfg *taskConfig) { cfg.localStorage = v })
}

// WithOnEnable installs the enable-guard: called on every disabled->enabled
// transition, before the first callback; returning false vetoes the enable
// (see SPEC_FULL.md §9 for the veto-wins-over-StatusRequest resolution).
func WithOnEnable(fn func() bool) TaskOption {
	return taskOptionFunc(func(cfg *taskConfig) { cfg.onEnable = fn })
}

// WithOnDisable installs the disable hook, called exactly once per
// transition to disabled (including auto-disable on iteration exhaustion or
// timeout). An enable vetoed by onEnable does not call it.
func WithOnDisable(fn func()) TaskOption {
	return taskOptionFunc(func(cfg *taskConfig) { cfg.onDisable = fn })
}

// WithSchedulingOption selects the catch-up policy; the default is
// ScheduleCatchUp.
func WithSchedulingOption(opt SchedulingOption) TaskOption {
	return taskOptionFunc(func(cfg *taskConfig) { cfg.schedulingOpt = opt })
}
