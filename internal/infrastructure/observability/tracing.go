package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/janhq/answer-api"
)

// GetTracer returns the tracer for the answer service.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSearchSpan starts a client span for one search backend call.
func StartSearchSpan(ctx context.Context, path, query string, limit int) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "search."+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("search.path", path),
			attribute.Int("search.query_length", len(query)),
			attribute.Int("search.limit", limit),
		),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error, severity string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.severity", severity))
}
