// Package logger provides the process-wide leveled logger used by every
// other package. It is a thin facade over zerolog so call sites stay free
// of the third-party import.
package logger

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu  sync.RWMutex
	log = newLogger("development", "debug")
)

// Init reconfigures the default logger. In development the output is a
// human-readable console writer; anywhere else it is JSON on stdout.
func Init(appEnv, level string) {
	mu.Lock()
	defer mu.Unlock()
	log = newLogger(appEnv, level)
}

func newLogger(appEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	l := zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	if appEnv == "development" {
		l = l.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	return l
}

// With returns a zerolog context for callers that want to attach
// structured fields (job IDs, stages) to a sequence of events.
func With() zerolog.Context {
	mu.RLock()
	defer mu.RUnlock()
	return log.With()
}

// Debugf logs a formatted debug message.
func Debugf(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug().Msgf(format, v...)
}

// Infof logs a formatted info message.
func Infof(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info().Msgf(format, v...)
}

// Info logs an info message.
func Info(msg string) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info().Msg(msg)
}

// Warnf logs a formatted warning message.
func Warnf(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn().Msgf(format, v...)
}

// Warn logs a warning message.
func Warn(msg string) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn().Msg(msg)
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error().Msgf(format, v...)
}

// Fatalf logs a formatted error message and exits the process.
func Fatalf(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	log.Fatal().Msgf(format, v...)
}
