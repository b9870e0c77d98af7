// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"ukepenger/internal/platform/config"
)

const serviceName = "ukepenger"

// Init installs the global logger described by cfg. A log file that cannot
// be opened falls back to JSON on stdout.
func Init(cfg config.LoggingConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	w, err := writer(cfg, os.Stdout)
	if err != nil {
		w = os.Stdout
	}
	log.Logger = New(w)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.FilePath).Msg("log file unavailable, writing to stdout")
	}
}

// New builds a logger stamped with the service name.
func New(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("service", serviceName).Logger()
}

// Component returns a child logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// writer picks the sink for cfg. The text format only applies to stdout;
// files always get JSON lines.
func writer(cfg config.LoggingConfig, stdout io.Writer) (io.Writer, error) {
	switch {
	case cfg.Output == "file" && cfg.FilePath != "":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, err
		}
		return os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
	case cfg.Format == "text":
		return zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}, nil
	default:
		return stdout, nil
	}
}
