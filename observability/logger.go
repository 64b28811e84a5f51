package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	loggerMu     sync.RWMutex
	globalLogger zerolog.Logger
	initialized  bool
)

// InitLogger initializes the global structured logger.
// format is "json" (default) or "console"; output is "stdout" (default) or "stderr".
func InitLogger(level, format, output string) {
	logger := newLogger(level, format, output)

	loggerMu.Lock()
	defer loggerMu.Unlock()
	setGlobal(logger)
}

// GetLogger returns the global logger, creating a default one on first use.
func GetLogger() zerolog.Logger {
	loggerMu.RLock()
	if initialized {
		logger := globalLogger
		loggerMu.RUnlock()
		return logger
	}
	loggerMu.RUnlock()

	loggerMu.Lock()
	defer loggerMu.Unlock()
	if !initialized {
		setGlobal(newLogger("info", "json", "stdout"))
	}
	return globalLogger
}

// setGlobal must be called with loggerMu held.
func setGlobal(logger zerolog.Logger) {
	globalLogger = logger
	log.Logger = logger
	initialized = true
}

func newLogger(level, format, output string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || logLevel == zerolog.NoLevel {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var out io.Writer = os.Stdout
	if strings.EqualFold(output, "stderr") {
		out = os.Stderr
	}

	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).With().Timestamp().Str("service", "kennel-portal").Logger()
}

type loggerKey struct{}

// WithLogger stores a request-scoped logger in ctx.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request-scoped logger, falling back to the global one.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
			return logger
		}
	}
	return GetLogger()
}
