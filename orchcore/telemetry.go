package orchcore

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// This file is a thin progressive-disclosure wrapper over OpenTelemetry,
// in the spirit of the teacher's telemetry package: most callers just want
// to add a span event or bump a counter without touching the SDK types
// directly.

var tracer = otel.Tracer("fleetforge/orchestrator")
var meter = otel.Meter("fleetforge/orchestrator")

// AddSpanEvent records a named event with attributes on the span found in
// ctx, if any. It is a no-op when ctx carries no active span, so callers
// never need a nil check.
func AddSpanEvent(ctx context.Context, name string, kv ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(kv...))
}

// StartSpan starts a new span named name under the module's tracer.
func StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// Counter increments a named counter metric by delta with the given label
// attributes, swallowing instrument-creation errors since telemetry must
// never be allowed to break the orchestration loop.
func Counter(ctx context.Context, name string, delta int64, kv ...attribute.KeyValue) {
	c, err := meter.Int64Counter(name)
	if err != nil {
		return
	}
	c.Add(ctx, delta, metric.WithAttributes(kv...))
}

// Histogram records value for a named distribution metric (latencies,
// token counts, cache sizes).
func Histogram(ctx context.Context, name string, value float64, kv ...attribute.KeyValue) {
	h, err := meter.Float64Histogram(name)
	if err != nil {
		return
	}
	h.Record(ctx, value, metric.WithAttributes(kv...))
}
