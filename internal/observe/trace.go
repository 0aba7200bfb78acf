package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrWong99/speechcoach"

// Span attribute keys shared by the coach and the HTTP layer.
const (
	PersonaKey = attribute.Key("speechcoach.persona.id")
	AttemptKey = attribute.Key("speechcoach.attempt.id")
)

// Persona tags a span with the persona an operation runs against.
func Persona(id string) attribute.KeyValue { return PersonaKey.String(id) }

// Attempt tags a span with the attempt it created or resumed.
func Attempt(id string) attribute.KeyValue { return AttemptKey.String(id) }

// Tracer returns the coach tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span on [Tracer]. The caller ends it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// RecordError marks span as failed with err. A nil err leaves the span
// untouched.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// CorrelationID is the trace ID carried by ctx, or "" without a span. The
// HTTP middleware echoes it as X-Correlation-ID so a client report can be
// matched to server logs.
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger is the default logger with trace_id and span_id attached when ctx
// carries a span.
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}
