package tickloop

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger type used throughout this package,
// instantiated via the pack's own logiface facade with the stumpy JSON
// backend (the same pairing used elsewhere in the pack, e.g.
// sql/export.Exporter.Logger). A nil *Logger is valid: Scheduler checks for
// nil before each log call, so a Scheduler without a Logger logs nothing.
type Logger = logiface.Logger[*stumpy.Event]

// NewLogger constructs a Logger writing newline-delimited JSON to w, at the
// given minimum level. Pass os.Stderr and logiface.LevelInformational for a
// reasonable default.
func NewLogger(w io.Writer, level logiface.Level) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		stumpy.L.WithLevel(level),
	)
}

// Logging categories, mirroring the "timer", "promise", "microtask" style
// category tags the teacher attaches to structured log entries.
const (
	logCategoryTask      = "task"
	logCategoryScheduler = "scheduler"
	logCategoryStatus    = "statusrequest"
)
