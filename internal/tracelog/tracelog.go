// Package tracelog provides the decoder's verbosity-gated tracing sink. The
// teacher package gates its own trace prints behind a package-level
// dbg.Debug bool (see mewkiz/pkg/dbg); this module keeps that exact shape
// but backs it with a structured github.com/rs/zerolog logger so a caller
// that does turn tracing on gets fielded, leveled output instead of bare
// fmt.Println lines.
package tracelog

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Logger is the package-wide sink. It defaults to Disabled so that hot
// paths (the per-frame loop) pay only the cost of a level check until a
// caller opts in via Enable.
var Logger = zerolog.New(io.Discard).Level(zerolog.Disabled)

// Enable routes trace output to w (os.Stderr in the CLI) at the given
// level. Call once at startup; concurrent decoders share the sink, matching
// the process-wide read-only posture of the CRC and Rice tables.
func Enable(w io.Writer, level zerolog.Level) {
	Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// EnableStderrDebug is a convenience for CLI -v flags.
func EnableStderrDebug() {
	Enable(os.Stderr, zerolog.DebugLevel)
}

// Enabled reports whether debug-level logging would actually be observed,
// so hot loops can skip building arguments when it would not.
func Enabled() bool {
	return Logger.GetLevel() <= zerolog.DebugLevel
}
