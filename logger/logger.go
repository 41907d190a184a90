// Package logger configures the process-wide zerolog.Logger.
package logger

import (
	"os"

	"github.com/kestrelhq/quotagate/config"
	"github.com/rs/zerolog"
)

// New returns a configured zerolog.Logger. Development gets a console
// writer and debug level; every other environment gets structured JSON.
func New(cfg *config.Config) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		lvl = l
	}
	if cfg.IsDevelopment() {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if cfg.IsDevelopment() {
		out := zerolog.ConsoleWriter{Out: os.Stderr}
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
