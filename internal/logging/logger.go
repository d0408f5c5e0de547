// Package logging configures the structured logger shared by the pipeline.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a component logger. Outside production the output is the
// human-readable console format.
func New(component, level, environment string) zerolog.Logger {
	return NewWithWriter(os.Stderr, component, level, environment)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, component, level, environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	out := w
	if environment != "production" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
