package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the root logger. Packages derive per-component children
// from it with WithComponent instead of logging through it directly.
// The zero value discards everything, so code paths that run before
// Init stay quiet rather than panicking.
var Logger zerolog.Logger

// Level names the minimum severity a record needs to be emitted.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

var levels = map[Level]zerolog.Level{
	DebugLevel: zerolog.DebugLevel,
	InfoLevel:  zerolog.InfoLevel,
	WarnLevel:  zerolog.WarnLevel,
	ErrorLevel: zerolog.ErrorLevel,
}

// Config controls the root logger built by Init.
type Config struct {
	// Level is matched case-insensitively. Unrecognized values fall
	// back to info so a mistyped --log-level flag still yields a
	// usable process.
	Level Level

	// JSONOutput emits one JSON object per line for machine
	// collection. The default console format is for humans watching
	// a terminal.
	JSONOutput bool

	// Output defaults to os.Stdout.
	Output io.Writer
}

// Init builds the root logger and sets the global level filter. Call
// it once at process start, before any component asks for a child
// logger.
func Init(cfg Config) {
	level, ok := levels[Level(strings.ToLower(strings.TrimSpace(string(cfg.Level))))]
	if !ok {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if !cfg.JSONOutput {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	Logger = zerolog.New(out).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with a subsystem name
// ("pool", "scheduler", "api"). Long-lived components log through one
// of these so records can be filtered per subsystem; entity fields
// such as task_id and worker_id are attached at the call site.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}
