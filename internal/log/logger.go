// Package log builds the zerolog loggers used across caseflow.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultService is attached to every entry unless Config.Service is set.
const DefaultService = "caseflow"

// Config captures options for building the base logger.
type Config struct {
	Level   string    // optional log level ("debug", "info", etc.); LOG_LEVEL is consulted when empty
	Output  io.Writer // optional writer (defaults to os.Stderr)
	Service string    // optional service name attached to every log entry
	Console bool      // human-readable output instead of JSON lines
}

// ParseLevel accepts zerolog level names, case-insensitively. An empty
// string means info.
func ParseLevel(text string) (zerolog.Level, error) {
	text = strings.TrimSpace(strings.ToLower(text))
	if text == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(text)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", text)
	}
	return level, nil
}

// New builds a base logger from cfg.
func New(cfg Config) (zerolog.Logger, error) {
	levelText := cfg.Level
	if levelText == "" {
		levelText = os.Getenv("LOG_LEVEL")
	}
	level, err := ParseLevel(levelText)
	if err != nil {
		return zerolog.Nop(), err
	}

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}
	if cfg.Console {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339, NoColor: true}
	}

	service := cfg.Service
	if service == "" {
		service = DefaultService
	}

	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str(FieldService, service).
		Logger(), nil
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(base zerolog.Logger, component string) zerolog.Logger {
	return base.With().Str(FieldComponent, component).Logger()
}
