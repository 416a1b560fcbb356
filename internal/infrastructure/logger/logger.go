package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/janhq/answer-api/internal/config"
)

// New builds the service logger. Production writes JSON lines; other environments get
// the human readable console format.
func New(cfg *config.Config) zerolog.Logger {
	level := parseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	base := zerolog.New(writerFor(cfg.Environment, os.Stdout)).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("environment", cfg.Environment).
		Logger().
		Level(level)

	// package level log calls in clients share the same sink and fields
	log.Logger = base
	return base
}

func writerFor(environment string, out io.Writer) io.Writer {
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case "production", "prod", "staging":
		return out
	default:
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
}

func parseLevel(raw string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || raw == "" || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
