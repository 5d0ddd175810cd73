package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"libris/internal/config"
)

// Setup configures the global zerolog logger from cfg and returns it.
// Unknown levels fall back to info. Format "console" selects human-readable output;
// anything else writes JSON.
func Setup(cfg config.LogConfig, service string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(out).With().
		Timestamp().
		Str("service", service).
		Logger()
	log.Logger = l
	return l
}
