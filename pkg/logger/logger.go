// Package logger configures the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config controls logger construction.
type Config struct {
	Level  string
	Pretty bool
}

// New builds a zerolog.Logger from cfg.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(output).With().Timestamp().Caller().Logger()
}

// SetGlobalLogger installs l as the package-level zerolog logger used by
// zerolog/log convenience calls elsewhere in the process.
func SetGlobalLogger(l zerolog.Logger) {
	log.Logger = l
}
