package looper

/*------------------------------------------------------------------
 *
 * Purpose:	Structured logging for every subsystem of the looper.
 *
 * Description:	Replaces the teacher's legacy dw_printf/text_color_set
 *		console writer with github.com/charmbracelet/log. One
 *		base logger is created at startup; each subsystem gets
 *		its own prefixed child via Sub().
 *
 *------------------------------------------------------------------*/

import (
	"os"

	"github.com/charmbracelet/log"
)

// Log is the base logger. Tests may swap it for a logger pointed at a
// buffer; production code should prefer Sub() over touching this directly.
var Log = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05.000",
})

// Sub returns a child logger prefixed with the given subsystem name, e.g.
// Sub("capture"), Sub("mix"), Sub("state").
func Sub(subsystem string) *log.Logger {
	return Log.WithPrefix(subsystem)
}

// SetLogLevel maps a verbosity count (as accumulated by -v/-v -v/...) onto
// charmbracelet/log's level, in the teacher's "more -v, more noise" style.
func SetLogLevel(verbosity int) {
	switch {
	case verbosity <= 0:
		Log.SetLevel(log.InfoLevel)
	case verbosity == 1:
		Log.SetLevel(log.DebugLevel)
	default:
		Log.SetLevel(log.DebugLevel)
		Log.SetReportCaller(true)
	}
}
