package tickloop

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_DispatchIncrementsCounterByTaskID(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	clk := NewManualClock(time.Millisecond)
	sched := NewScheduler(WithClock(clk), WithMetrics(metrics))

	task := NewTask(100*time.Millisecond, Forever, func(*Task) {}, WithID(42))
	sched.AddTask(task)
	task.Enable()

	sched.Execute()
	clk.Advance(100)
	sched.Execute()

	got := testutil.ToFloat64(metrics.dispatchesTotal.WithLabelValues("42"))
	assert.Equal(t, float64(2), got)
}

func TestMetrics_DispatchWithoutIDUsesPlaceholderLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	clk := NewManualClock(time.Millisecond)
	sched := NewScheduler(WithClock(clk), WithMetrics(metrics))

	task := NewTask(0, Once, func(*Task) {})
	sched.AddTask(task)
	task.Enable()
	sched.Execute()

	got := testutil.ToFloat64(metrics.dispatchesTotal.WithLabelValues("-"))
	assert.Equal(t, float64(1), got)
}

func TestMetrics_IdlePassIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	clk := NewManualClock(time.Millisecond)
	sched := NewScheduler(WithClock(clk), WithMetrics(metrics))

	task := NewTask(100*time.Millisecond, Forever, func(*Task) {})
	sched.AddTask(task)
	task.Enable()

	sched.Execute() // dispatches; not idle
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.idlePassesTotal))

	sched.Execute() // nothing due; idle
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.idlePassesTotal))
}

func TestMetrics_TimeoutIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	clk := NewManualClock(time.Millisecond)
	sched := NewScheduler(WithClock(clk), WithMetrics(metrics))

	task := NewTask(1000*time.Millisecond, Forever, func(*Task) {})
	task.Timeout(500 * time.Millisecond)
	sched.AddTask(task)
	task.Enable()

	clk.Advance(500)
	sched.Execute()

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.timeoutsTotal))
	assert.True(t, task.TimedOut())
}

func TestMetrics_TwoSchedulersOnIndependentRegistriesDoNotCollide(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()

	require.NotPanics(t, func() {
		NewMetrics(reg1)
		NewMetrics(reg2)
	})
}

func TestMetrics_OverrunHistogramObservesLateDispatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	clk := NewManualClock(time.Millisecond)
	sched := NewScheduler(WithClock(clk), WithMetrics(metrics))

	task := NewTask(100*time.Millisecond, Forever, func(*Task) {})
	sched.AddTask(task)
	task.Enable()
	sched.Execute() // on-time dispatch at t=0

	clk.Advance(150) // 50ms late relative to the 100ms-interval grid
	sched.Execute()

	out, err := testutil.GatherAndCount(reg, "tickloop_task_overrun_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, out)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, fam := range families {
		if strings.HasSuffix(fam.GetName(), "overrun_seconds") {
			found = true
			require.Len(t, fam.Metric, 1)
			assert.Equal(t, uint64(2), fam.Metric[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, found)
}
