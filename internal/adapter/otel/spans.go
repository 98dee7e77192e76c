package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "tradeloom"

// StartResolveSpan starts a span for tenant resolution.
func StartResolveSpan(ctx context.Context, host string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tenant.resolve",
		trace.WithAttributes(attribute.String("http.host", host)),
	)
}

// StartPhaseSpan starts a span for one provisioning phase.
func StartPhaseSpan(ctx context.Context, phase int, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "provision.phase",
		trace.WithAttributes(
			attribute.Int("phase.number", phase),
			attribute.String("phase.name", name),
		),
	)
}

// StartSearchSpan starts a span for a cross-entity search.
func StartSearchSpan(ctx context.Context, tenantID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "search",
		trace.WithAttributes(attribute.String("tenant.id", tenantID)),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
