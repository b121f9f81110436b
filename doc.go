// Package tickloop provides a cooperative, tick-driven task scheduler for
// single-threaded environments, including microcontrollers as well as
// ordinary hosted Go programs.
//
// # Architecture
//
// The scheduler is built around a [Scheduler] core that owns a doubly-linked
// chain of [Task] values. The host application drives dispatch by calling
// [Scheduler.Execute] from a central loop; the scheduler never starts a
// goroutine and never preempts a running callback. [StatusRequest] provides
// the one cross-context safe synchronization primitive, for tasks that must
// block on an external condition, and for signaling from outside the
// scheduling goroutine (e.g. an interrupt handler, in an embedded port).
//
// # Scheduling Policies
//
// Each [Task] picks one of three [SchedulingOption] values, which determine
// how its anchor is re-based after a dispatch, and therefore how it behaves
// when a callback runs long or the host loop falls behind:
//   - [ScheduleCatchUp] bursts extra dispatches to catch up to the nominal
//     schedule.
//   - [ScheduleCatchUpNone] preserves the nominal schedule but skips missed
//     iterations rather than bursting.
//   - [ScheduleInterval] re-anchors to the actual dispatch instant, so the
//     next run is always exactly one interval after this one actually ran.
//
// # Priority Layering
//
// A [Scheduler] may delegate to a higher-priority [Scheduler] via
// [Scheduler.SetHighPriorityScheduler]. Only the base scheduler is driven by
// the host loop; each visit to a base task interleaves a full pass of the
// higher layer, which itself interleaves full passes of any layer above it.
//
// # Tickless Sleep
//
// [Scheduler.NextRun] computes the exact duration until the next due task,
// for hosts that want to sleep deterministically between ticks rather than
// poll at a fixed rate. [Scheduler.SetSleepMethod] installs a callback
// invoked with that duration whenever a pass is idle.
//
// # Thread Safety
//
// The scheduler itself is single-threaded: [Scheduler.Execute],
// [Scheduler.AddTask], [Scheduler.DeleteTask], and every [Task] lifecycle
// method must be called from the same goroutine. The sole exception is
// [StatusRequest.Signal], which is safe to call concurrently (it is
// implemented without a mutex, for use from interrupt-like contexts).
//
// # Usage
//
//	sched := tickloop.NewScheduler()
//
//	t := tickloop.NewTask(2*time.Second, tickloop.Forever, func(task *tickloop.Task) {
//	    fmt.Println("tick", task.RunCounter())
//	})
//	sched.AddTask(t)
//	t.Enable()
//
//	for {
//	    sched.Execute()
//	    time.Sleep(time.Millisecond)
//	}
package tickloop
