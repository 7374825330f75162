package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls how log lines are rendered.
type Config struct {
	Level  string `env:"LEVEL"  envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"pretty"`
}

// New builds the process logger. Format "json" writes one JSON object per line,
// anything else uses the human readable console writer.
func New(cfg Config, service string) *zerolog.Logger {
	return newWithWriter(cfg, service, os.Stdout)
}

func newWithWriter(cfg Config, service string, w io.Writer) *zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()

	return &logger
}
