package tickloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() (*Scheduler, *ManualClock) {
	clk := NewManualClock(time.Millisecond)
	return NewScheduler(WithClock(clk)), clk
}

func TestScheduler_AddTaskRejectsAlreadyChained(t *testing.T) {
	sched, clk := newTestScheduler()
	other := NewScheduler(WithClock(clk))
	task := NewTask(time.Second, Forever, func(*Task) {})

	require.True(t, sched.AddTask(task))
	assert.False(t, sched.AddTask(task))
	assert.False(t, other.AddTask(task))
	assert.ErrorIs(t, other.AddTaskErr(task), ErrAlreadyChained)
}

func TestScheduler_DeleteTaskRejectsUnchained(t *testing.T) {
	sched, _ := newTestScheduler()
	task := NewTask(time.Second, Forever, func(*Task) {})

	assert.False(t, sched.DeleteTask(task))
	assert.ErrorIs(t, sched.DeleteTaskErr(task), ErrNotChained)

	sched.AddTask(task)
	require.True(t, sched.DeleteTask(task))
	assert.Nil(t, task.NextTask())
	assert.False(t, sched.DeleteTask(task))
}

func TestScheduler_ChainOrderAndFirstLastTask(t *testing.T) {
	sched, _ := newTestScheduler()
	a := NewTask(time.Second, Forever, func(*Task) {})
	b := NewTask(time.Second, Forever, func(*Task) {})
	c := NewTask(time.Second, Forever, func(*Task) {})
	sched.AddTask(a)
	sched.AddTask(b)
	sched.AddTask(c)

	assert.Same(t, a, sched.FirstTask())
	assert.Same(t, c, sched.LastTask())
	assert.Same(t, b, a.NextTask())
	assert.Same(t, c, b.NextTask())
	assert.Nil(t, c.NextTask())
}

func TestScheduler_DeleteDuringPassIsSafe(t *testing.T) {
	sched, clk := newTestScheduler()
	var ran []string

	a := NewTask(100*time.Millisecond, Forever, nil)
	b := NewTask(100*time.Millisecond, Forever, nil)
	c := NewTask(100*time.Millisecond, Forever, func(*Task) { ran = append(ran, "c") })
	a.SetCallback(func(*Task) {
		ran = append(ran, "a")
		sched.DeleteTask(b)
	})
	b.SetCallback(func(*Task) { ran = append(ran, "b") })

	sched.AddTask(a)
	sched.AddTask(b)
	sched.AddTask(c)
	a.Enable()
	b.Enable()
	c.Enable()

	sched.Execute()
	clk.Advance(100)

	assert.Equal(t, []string{"a", "c"}, ran)
}

// P1: SCHEDULE (ScheduleCatchUp) bursts catch-up dispatches so that, over
// k intervals, exactly k dispatches are observed even if the host loop
// falls behind.
func TestScheduler_P1_ScheduleCatchUpBursts(t *testing.T) {
	sched, clk := newTestScheduler()
	count := 0
	task := NewTask(100*time.Millisecond, Forever, func(*Task) { count++ },
		WithSchedulingOption(ScheduleCatchUp))
	sched.AddTask(task)
	task.Enable()

	sched.Execute() // t=0, first dispatch
	clk.Advance(1000)

	// Each pass dispatches the task at most once, so drain the 1000ms
	// backlog with repeated calls to Execute, as a tight host loop would.
	for i := 0; i < 20 && sched.Execute() == false; i++ {
	}

	assert.Equal(t, 11, count) // t=0,100,...,1000
}

// P2: SCHEDULE_NC never bursts; consecutive dispatches stay >= I apart, and
// a long gap is simply skipped rather than replayed.
func TestScheduler_P2_ScheduleCatchUpNoneSkipsBacklog(t *testing.T) {
	sched, clk := newTestScheduler()
	count := 0
	task := NewTask(100*time.Millisecond, Forever, func(*Task) { count++ },
		WithSchedulingOption(ScheduleCatchUpNone))
	sched.AddTask(task)
	task.Enable()

	sched.Execute() // t=0
	clk.Advance(1000)
	sched.Execute() // one dispatch, anchor snaps to "now"
	clk.Advance(1000)
	sched.Execute()

	assert.Equal(t, 3, count)
}

// P3: INTERVAL re-anchors to the actual dispatch instant.
func TestScheduler_P3_ScheduleIntervalReanchorsToDispatchInstant(t *testing.T) {
	sched, clk := newTestScheduler()
	var dispatchTimes []uint64
	task := NewTask(100*time.Millisecond, Forever, func(*Task) {
		dispatchTimes = append(dispatchTimes, clk.Now())
	}, WithSchedulingOption(ScheduleInterval))
	sched.AddTask(task)
	task.Enable()

	sched.Execute() // t=0
	clk.Advance(250)
	sched.Execute() // late dispatch at t=250
	clk.Advance(100)
	sched.Execute() // due again at t=350, exactly +100 from the late dispatch

	require.Len(t, dispatchTimes, 3)
	assert.Equal(t, []uint64{0, 250, 350}, dispatchTimes)
}

// P5: a task with WaitFor never dispatches while its gate is unsignaled.
func TestScheduler_P5_WaitForGatesDispatch(t *testing.T) {
	sched, clk := newTestScheduler()
	sr := NewStatusRequest()
	sr.SetWaiting(1)
	count := 0
	task := NewTask(0, Forever, nil)
	task.SetCallback(func(*Task) { count++ })
	sched.AddTask(task)

	task.WaitFor(sr, 100*time.Millisecond, Forever)

	for i := 0; i < 5; i++ {
		sched.Execute()
		clk.Advance(100)
	}
	assert.Equal(t, 0, count)

	sr.Signal(0)
	sched.Execute()
	assert.Equal(t, 1, count)

	// Gate detaches after the first dispatch: subsequent runs are
	// unconditional on the (now-consumed) StatusRequest.
	clk.Advance(100)
	sched.Execute()
	assert.Equal(t, 2, count)
}

// Scenario 4: a timeout disables a FOREVER task independent of its own
// interval due-ness, with TimedOut() true thereafter.
func TestScheduler_Scenario4_Timeout(t *testing.T) {
	sched, clk := newTestScheduler()
	count := 0
	task := NewTask(1000*time.Millisecond, Forever, func(*Task) { count++ })
	task.Timeout(10000 * time.Millisecond)
	sched.AddTask(task)
	task.Enable()

	for ms := uint64(0); ms <= 10000; ms += 1000 {
		sched.Execute()
		clk.Set(ms + 1000)
	}

	assert.Equal(t, 10, count) // dispatches at 0..9000
	assert.False(t, task.Enabled())
	assert.True(t, task.TimedOut())
}

// P9: NextRun is 0 when any enabled task is overdue, else the minimum
// positive remaining duration across enabled, ungated tasks.
func TestScheduler_P9_NextRun(t *testing.T) {
	sched, clk := newTestScheduler()
	fast := NewTask(500*time.Millisecond, Forever, func(*Task) {})
	slow := NewTask(3000*time.Millisecond, Forever, func(*Task) {})
	sched.AddTask(fast)
	sched.AddTask(slow)
	fast.Enable()
	slow.Enable()

	assert.Equal(t, time.Duration(0), sched.NextRun()) // both due immediately at t=0

	sched.Execute()
	assert.Equal(t, 500*time.Millisecond, sched.NextRun())

	clk.Advance(501)
	sched.Execute()
	assert.InDelta(t, float64(500*time.Millisecond), float64(sched.NextRun()), float64(2*time.Millisecond))
}

func TestScheduler_NextRun_IgnoresDisabledAndGatedTasks(t *testing.T) {
	sched, _ := newTestScheduler()
	disabled := NewTask(10*time.Millisecond, Forever, func(*Task) {})
	sched.AddTask(disabled)

	sr := NewStatusRequest()
	sr.SetWaiting(1)
	gated := NewTask(0, Forever, func(*Task) {})
	sched.AddTask(gated)
	gated.WaitFor(sr, 10*time.Millisecond, Forever)

	assert.Equal(t, time.Duration(0), sched.NextRun())
}

func TestScheduler_StartNowReanchorsEnabledTasks(t *testing.T) {
	sched, clk := newTestScheduler()
	task := NewTask(1000*time.Millisecond, Forever, func(*Task) {})
	sched.AddTask(task)
	task.Enable()
	sched.Execute() // consume the immediate first dispatch, arming the interval
	clk.Advance(500)

	sched.StartNow()
	assert.Equal(t, 1000*time.Millisecond, sched.NextRun())
}

func TestScheduler_EnableAllDisableAll(t *testing.T) {
	sched, _ := newTestScheduler()
	a := NewTask(time.Second, Forever, func(*Task) {})
	b := NewTask(time.Second, Forever, func(*Task) {})
	sched.AddTask(a)
	sched.AddTask(b)

	sched.EnableAll(false)
	assert.True(t, a.Enabled())
	assert.True(t, b.Enabled())

	sched.DisableAll(false)
	assert.False(t, a.Enabled())
	assert.False(t, b.Enabled())
}

func TestScheduler_EnableAllDisableAll_Recursive(t *testing.T) {
	base, clk := newTestScheduler()
	high := NewScheduler(WithClock(clk))
	base.SetHighPriorityScheduler(high)

	ht := NewTask(time.Second, Forever, func(*Task) {})
	high.AddTask(ht)

	base.EnableAll(true)
	assert.True(t, ht.Enabled())

	base.DisableAll(true)
	assert.False(t, ht.Enabled())
}

func TestScheduler_CurrentTaskOnlyValidDuringDispatch(t *testing.T) {
	sched, _ := newTestScheduler()
	var seenCurrent *Task
	task := NewTask(0, Once, func(*Task) { seenCurrent = sched.CurrentTask() })
	sched.AddTask(task)
	task.Enable()

	assert.Nil(t, sched.CurrentTask())
	sched.Execute()
	assert.Same(t, task, seenCurrent)
	assert.Nil(t, sched.CurrentTask())
}

// P7/Scenario 5: priority layering. Between any two dispatches of a base
// task, every higher-priority task is considered at least once.
func TestScheduler_P7_PriorityLayering(t *testing.T) {
	clk := NewManualClock(time.Millisecond)
	c := NewScheduler(WithClock(clk))
	h := NewScheduler(WithClock(clk), WithHighPriorityScheduler(c))
	b := NewScheduler(WithClock(clk), WithHighPriorityScheduler(h))

	hCount, cCount, bCount := 0, 0, 0
	h.AddTask(NewTask(500*time.Millisecond, Forever, func(*Task) { hCount++ }))
	c.AddTask(NewTask(500*time.Millisecond, Forever, func(*Task) { cCount++ }))
	b1 := NewTask(1000*time.Millisecond, Forever, func(*Task) { bCount++ })
	b.AddTask(b1)

	b.EnableAll(true)
	h.EnableAll(false)
	c.EnableAll(false)

	b.Execute()
	b.Execute()

	assert.GreaterOrEqual(t, hCount, 1)
	assert.GreaterOrEqual(t, cCount, 1)
	assert.GreaterOrEqual(t, bCount, 1)
}

func TestScheduler_SleepMethodInvokedOnIdlePass(t *testing.T) {
	var gotHint time.Duration
	invoked := false
	clk := NewManualClock(time.Millisecond)
	sched := NewScheduler(WithClock(clk), WithSleepMethod(func(d time.Duration) {
		invoked = true
		gotHint = d
	}))
	task := NewTask(250*time.Millisecond, Forever, func(*Task) {})
	sched.AddTask(task)
	task.Enable()

	sched.Execute() // dispatches once; not idle
	assert.False(t, invoked)

	sched.Execute() // nothing due yet; idle
	assert.True(t, invoked)
	assert.Equal(t, 250*time.Millisecond, gotHint)
}
