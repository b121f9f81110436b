package tickloop

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the optional Prometheus instrumentation a Scheduler records
// dispatch activity to, attached via WithMetrics. A nil *Metrics (the
// default) disables instrumentation; every Scheduler call site nil-checks
// before touching it.
type Metrics struct {
	dispatchesTotal *prometheus.CounterVec
	idlePassesTotal prometheus.Counter
	timeoutsTotal   prometheus.Counter
	overrunSeconds  prometheus.Histogram
}

// NewMetrics registers this package's collectors against reg and returns a
// Metrics ready to pass to WithMetrics. Passing prometheus.NewRegistry()
// gives a Scheduler its own isolated metric namespace, useful in tests
// where multiple Schedulers would otherwise collide on the default
// registry's global collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		dispatchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tickloop_task_dispatches_total",
			Help: "Total number of Task callback invocations, by task id.",
		}, []string{"task_id"}),
		idlePassesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "tickloop_idle_passes_total",
			Help: "Total number of Execute passes that dispatched nothing.",
		}),
		timeoutsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "tickloop_task_timeouts_total",
			Help: "Total number of Tasks auto-disabled by lifetime timeout expiry.",
		}),
		overrunSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tickloop_task_overrun_seconds",
			Help:    "Observed overrun (actual minus nominal dispatch instant) per callback.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observeDispatch(t *Task, overrunUnits int64) {
	id := "-"
	if v, ok := t.ID(); ok {
		id = strconv.Itoa(int(v))
	}
	m.dispatchesTotal.WithLabelValues(id).Inc()
	m.overrunSeconds.Observe(durationOfSigned(t.clock, overrunUnits).Seconds())
}

func (m *Metrics) observeIdlePass() { m.idlePassesTotal.Inc() }

func (m *Metrics) observeTimeout() { m.timeoutsTotal.Inc() }
