package config

import "github.com/brettbedarf/bootfs/internal/util"

// Log verbosity values accepted from the CLI and config files. Values outside
// the range are clamped.
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Transport names known to the builtin adapters
const (
	TFTPTransport = "tftp"
	HTTPTransport = "http"
)

var verboseLevels = [5]util.LogLevel{
	util.ErrorLevel,
	util.WarnLevel,
	util.InfoLevel,
	util.DebugLevel,
	util.TraceLevel,
}

// VerboseToLogLevel maps a CLI verbosity between 1 (error) and 5 (trace) to a
// log level, clamping out of range values.
func VerboseToLogLevel(verbose int) util.LogLevel {
	verbose = max(ErrorVerbose, min(verbose, TraceVerbose))
	return verboseLevels[verbose-1]
}
