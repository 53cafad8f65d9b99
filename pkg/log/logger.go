// Custom logging utility used internally all over Tracker.

package log

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

func init() {
	// setting configurations for logger
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// Logger acts as a wrapper for zerolog with custom features.
type Logger interface {
	// WithCtx returns a sub-logger based of root logger with added context.
	WithCtx(context.Context) Logger
	// With returns a sub-logger carrying the given fields on every event.
	With(fields map[string]any) Logger
	// Info level log starts a log message with INFO level.
	Info() *zerolog.Event
	// Debug level log starts a log message with DEBUG level.
	Debug() *zerolog.Event
	// Warn level log starts a log message with WARNING level.
	Warn() *zerolog.Event
	// Error level log starts a log message with ERROR level.
	Error() *zerolog.Event
	// Fatal level log starts a log message with FATAL level.
	Fatal() *zerolog.Event
}

type logger struct {
	zerolog.Logger
}

// Creates a new logger instance for other packages to use the internal zerolog.
// env "DEV" prettifies the output, anything else writes JSON lines to stdout.
func New(version string, env string) Logger {
	var output io.Writer
	if env == "DEV" {
		// Set output of Logger to prettified ConsoleOutput for local environment
		output = zerolog.ConsoleWriter{Out: os.Stdout}
	} else {
		// ConsoleWriter prettifies log, inefficient in prod
		output = os.Stdout
	}
	return &logger{zerolog.New(output).With().Str("Version", version).Timestamp().Caller().Stack().Logger()}
}

// NewNop returns a Logger which discards everything, used in tests.
func NewNop() Logger {
	return &logger{zerolog.Nop()}
}

// Returns a sub-logger by adding additional requestID context to it.
// Helps in debugging issues.
func (l *logger) WithCtx(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	fields := l.Logger.With()
	added := false
	if requestID, ok := ctx.Value("ReqID").(string); ok && requestID != "" {
		fields = fields.Str("ReqID", requestID)
		added = true
	}
	if correlationID, ok := ctx.Value("correlation_id").(string); ok && correlationID != "" {
		fields = fields.Str("correlation_id", correlationID)
		added = true
	}
	if !added {
		return l
	}
	return &logger{fields.Logger()}
}

func (l *logger) With(fields map[string]any) Logger {
	return &logger{l.Logger.With().Fields(fields).Logger()}
}
