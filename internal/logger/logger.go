package logger

import (
	stdlog "log"
	"os"
	"servicecheck/internal/config"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// stdWriter forwards lines written through the standard library logger, used
// by gocron and database drivers, into zerolog.
type stdWriter struct {
	logger zerolog.Logger
}

func (w stdWriter) Write(p []byte) (int, error) {
	w.logger.Info().Str("source", "stdlog").Msg(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Level resolves the global level. An explicit override wins over the
// configured level; development defaults to debug, everything else to info.
func Level(override string) zerolog.Level {
	for _, candidate := range []string{override, configuredLevel()} {
		if candidate == "" {
			continue
		}
		if level, err := zerolog.ParseLevel(candidate); err == nil && level != zerolog.NoLevel {
			return level
		}
	}
	if config.IsDevMode() {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func configuredLevel() string {
	if cfg := config.GetConfig(); cfg != nil {
		return cfg.APP.LogLevel
	}
	return ""
}

// InitializeLogger installs the global zerolog logger. levelOverride may be empty.
func InitializeLogger(levelOverride string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(Level(levelOverride))

	var base zerolog.Logger
	if isatty.IsTerminal(os.Stdout.Fd()) {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	} else {
		base = zerolog.New(os.Stdout)
	}

	log.Logger = base.With().Timestamp().Caller().Logger()

	stdlog.SetFlags(0)
	stdlog.SetOutput(stdWriter{logger: log.Logger})
}
