package tickloop

import "time"

// Sentinel values, mirroring the reserved constants of spec.md §6.
const (
	// Forever marks a Task's iteration count as never decrementing.
	Forever int64 = -1

	// Once is the iteration count for a one-shot Task.
	Once int64 = 1

	// Immediate is an interval of zero, i.e. "dispatch on the very next pass".
	Immediate time.Duration = 0

	// NoTimeout disarms Task.Timeout.
	NoTimeout time.Duration = 0
)

// SchedulingOption selects how a Task's anchor is re-based after a dispatch,
// and therefore how it behaves when the host loop falls behind. See the
// package doc comment for the behavioral summary of each value.
type SchedulingOption int

const (
	// ScheduleCatchUp advances the anchor by exactly one nominal interval
	// per dispatch, so a Task that falls behind bursts extra dispatches
	// until it has caught up to the nominal schedule. This is the default,
	// matching the original's SCHEDULE option.
	//
	// A callback that routinely runs longer than its interval will starve
	// its chain-mates under this policy; no backpressure is applied. This
	// is an accepted limitation, not a bug.
	ScheduleCatchUp SchedulingOption = iota

	// ScheduleCatchUpNone re-anchors to "now minus (overrun modulo interval)",
	// the latest point of the nominal grid at or before now, preserving the
	// nominal cadence without bursting: missed iterations are skipped
	// rather than replayed. Matches the original's SCHEDULE_NC.
	ScheduleCatchUpNone

	// ScheduleInterval re-anchors to the actual dispatch instant, so the
	// next run is always exactly one interval after this dispatch, however
	// late this dispatch was. Matches the original's INTERVAL.
	ScheduleInterval
)

// String implements fmt.Stringer.
func (s SchedulingOption) String() string {
	switch s {
	case ScheduleCatchUp:
		return "ScheduleCatchUp"
	case ScheduleCatchUpNone:
		return "ScheduleCatchUpNone"
	case ScheduleInterval:
		return "ScheduleInterval"
	default:
		return "SchedulingOption(unknown)"
	}
}
