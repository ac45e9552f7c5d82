// Package tracing wraps each DecodeFrame call in an OpenTelemetry span,
// grounded on the rest of the example pack's otel usage. Like metrics,
// this is attached around the decoder core as an optional hook rather
// than threaded through it, keeping the core itself free of
// observability concerns.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/i4oolish/h2decode/decoder"

// Tracer returns the module-scoped tracer, resolved from the globally
// configured TracerProvider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartDecodeSpan starts a span around one DecodeFrame call.
func StartDecodeSpan(ctx context.Context, connID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "h2decode.DecodeFrame",
		trace.WithAttributes(attribute.String("h2decode.connection_id", connID)),
	)
}

// EndDecodeSpan records err (if any) on span and ends it.
func EndDecodeSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
