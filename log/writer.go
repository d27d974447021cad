package log

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

type ConsoleWriterOptions struct {
	// NoColor disables the colorized output.
	NoColor bool

	// TimeFormat specifies the format for timestamp in output.
	TimeFormat string

	// PartsExclude drops the named parts (level, time, message) from output.
	PartsExclude []string
}

// WithNoColor disables colorized output, useful when out is not a terminal.
func WithNoColor() func(*ConsoleWriterOptions) {
	return func(o *ConsoleWriterOptions) { o.NoColor = true }
}

// NewConsoleWriter renders JSON log lines written to it in a human readable
// form on out.
func NewConsoleWriter(out io.Writer, options ...func(*ConsoleWriterOptions)) io.Writer {
	opts := &ConsoleWriterOptions{
		TimeFormat: time.Kitchen,
	}
	for _, fn := range options {
		fn(opts)
	}
	return zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = out
		w.NoColor = opts.NoColor
		w.TimeFormat = opts.TimeFormat
		if len(opts.PartsExclude) > 0 {
			w.PartsExclude = opts.PartsExclude
		}
	})
}
