// Package telemetry builds the structured loggers used across the
// autonomy stack, in the style of the reference repo's zerolog usage:
// one base logger, per-component sub-loggers via With().Str(...).
package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a base logger. When pretty is true it writes a human-readable
// console format (for local development); otherwise it writes JSON lines
// suitable for log aggregation.
func New(pretty bool, level zerolog.Level) zerolog.Logger {
	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Component returns a sub-logger tagged with the given component name.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
