package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide structured logger. InitLogger replaces it once
// flags are parsed; until then it writes human-readable output at info level.
var Logger = newConsoleLogger(zerolog.InfoLevel)

// InitLogger configures the global logger. Verbose mode enables debug-level
// output, otherwise info and above.
func InitLogger(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	Logger = newConsoleLogger(level)
}

func newConsoleLogger(level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
