package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger.
// level is a zerolog level name ("debug", "info", ...); unknown values fall back to info.
// When pretty is true, output is a human-readable console format on stderr.
func Setup(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	var w io.Writer = os.Stderr
	if pretty {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// Component returns a sub-logger tagged with the component name.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
