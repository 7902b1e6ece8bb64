// Package obslog provides structured logging for resaleidx, wrapping
// zerolog with component-scoped sub-loggers.
package obslog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // pretty-print for interactive use
	Output io.Writer
}

// Logger wraps a configured zerolog.Logger.
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	z := zerolog.New(out).Level(level).With().Timestamp().Str("service", "resaleidx").Logger()
	return &Logger{z: z}
}

// Component returns a sub-logger tagged with the given component name,
// e.g. "pager", "column", "bptree", "indexmgr", "loadcsv", "query".
func (l *Logger) Component(name string) *Logger {
	return &Logger{z: l.z.With().Str("component", name).Logger()}
}

func (l *Logger) Debug() *zerolog.Event { return l.z.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.z.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.z.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.z.Error() }

// Nop returns a logger that discards everything, for use in tests.
func Nop() *Logger {
	return &Logger{z: zerolog.Nop()}
}
