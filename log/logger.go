package log

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the structured logging interface used by the server wiring.
// Component code logs through zerolog's context logger directly; this
// interface exists so startup/shutdown logging stays testable.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	Fatal(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// zerologAdapter implements Logger on top of zerolog.
type zerologAdapter struct {
	logger zerolog.Logger
}

// NewZerologAdapter creates a Logger implemented with zerolog. With pretty
// output the log goes through a console writer, otherwise raw JSON.
func NewZerologAdapter(level zerolog.Level, pretty bool) Logger {
	var zlog zerolog.Logger
	if pretty {
		zlog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	} else {
		zlog = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	return &zerologAdapter{logger: zlog}
}

// withTrace adds trace_id/span_id when the context carries a recording span,
// so log lines correlate with traces.
func withTrace(ctx context.Context, event *zerolog.Event) *zerolog.Event {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		event = event.
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String())
	}
	return event
}

func (z *zerologAdapter) emit(ctx context.Context, event *zerolog.Event, msg string, fields []map[string]interface{}) {
	event = withTrace(ctx, event)
	for _, f := range fields {
		event = event.Fields(f)
	}
	event.Msg(msg)
}

func (z *zerologAdapter) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	z.emit(ctx, z.logger.Debug(), msg, fields)
}

func (z *zerologAdapter) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	z.emit(ctx, z.logger.Info(), msg, fields)
}

func (z *zerologAdapter) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	z.emit(ctx, z.logger.Warn(), msg, fields)
}

func (z *zerologAdapter) Error(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	z.emit(ctx, z.logger.Error().Err(err), msg, fields)
}

func (z *zerologAdapter) Fatal(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	// zerolog's Fatal event calls os.Exit after writing.
	z.emit(ctx, z.logger.Fatal().Err(err), msg, fields)
}

// With returns a new logger with the provided fields added to its context.
// Trace information is added per call so it stays current.
func (z *zerologAdapter) With(fields map[string]interface{}) Logger {
	return &zerologAdapter{logger: z.logger.With().Fields(fields).Logger()}
}
