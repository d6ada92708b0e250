// Package ports defines the interfaces between the encoder core and the
// outside world: logging, files, frame sources, containers and debug output.
package ports

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// LevelDebug is for per-frame encoder details such as targets,
	// quantizer ranges and bit counts.
	LevelDebug LogLevel = iota
	// LevelInfo is for stage-level progress.
	LevelInfo
	// LevelWarn is for conditions the encode survives: dropped trailing
	// frames, retried reads, buffer violations, saturated quantization.
	LevelWarn
	// LevelError is for failures that abort the encode.
	LevelError
	// LevelQuiet suppresses all log output.
	LevelQuiet
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// ParseLogLevel parses a string into a LogLevel. Unknown names map to info.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	case "quiet":
		return LevelQuiet
	default:
		return LevelInfo
	}
}

// Logger abstracts leveled logging. The msg parameter is a message key
// that implementations may translate before formatting args into it.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithComponent returns a Logger that prefixes messages with the
	// component name, e.g. "encoder" or "ratectl".
	WithComponent(component string) Logger
}
