package tickloop

import "errors"

// Sentinel errors for the explicit Err()-returning variants of operations
// spec.md §7 otherwise specifies as silent no-ops (AddTask on an already
// chained Task, DeleteTask on an unchained one, and so on). The silent
// behavior remains the default on AddTask/DeleteTask/Enable — these errors
// exist only for callers that opted into the *Err variant and want to
// errors.Is against a specific condition, matching the teacher's own
// typed-error-with-Is pattern in its errors.go.
var (
	// ErrAlreadyChained is returned by AddTaskErr when the Task already
	// belongs to a chain (its own, or another Scheduler's).
	ErrAlreadyChained = errors.New("tickloop: task already chained")

	// ErrNotChained is returned by DeleteTaskErr when the Task does not
	// belong to this Scheduler's chain.
	ErrNotChained = errors.New("tickloop: task not chained to this scheduler")

	// ErrEnableVetoed is returned by EnableErr when onEnable returned false.
	ErrEnableVetoed = errors.New("tickloop: onEnable vetoed enable")
)
