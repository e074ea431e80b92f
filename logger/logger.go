// Package logger builds the zerolog loggers used across the ledger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const ModuleKey = "module"

type Config struct {
	Debug   bool
	Console bool // human readable output instead of JSON lines
	Writer  io.Writer
}

// New creates a root logger. Debug enables debug level, otherwise info.
func New(cfg Config) zerolog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	if cfg.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !isTerminal(w)}
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Module returns a sub-logger tagged with the component name.
func Module(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str(ModuleKey, name).Logger()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
