package logger

import (
	"io"
	"os"

	"runcrew/internal/config"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func New(cfg *config.Config) zerolog.Logger {
	return build(os.Stdout, cfg.LogLevel)
}

func build(w io.Writer, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).
		With().
		Timestamp().
		Caller().
		Logger().
		Level(lvl)
}

// Nop is used by tests and the CLI where log output is noise.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

var Module = fx.Provide(New)
