package otel

import (
	"context"

	otelglobal "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
var (
	AttrRuleID = attribute.Key("taskflow.rule_id")
	AttrTaskID = attribute.Key("taskflow.task_id")
)

// InitTracerProvider installs a global TracerProvider. A nil exporter keeps spans in-process
// (sampled but not exported), which is what the daemon uses when no collector is configured.
// The returned func flushes and shuts the provider down.
func InitTracerProvider(ctx context.Context, serviceName string, exporter sdktrace.SpanExporter) (func(context.Context) error, error) {
	if serviceName == "" {
		serviceName = "taskflow"
	}
	res, err := sdkresource.New(ctx, sdkresource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, err
	}
	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otelglobal.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns the global tracer for taskflow.
func Tracer() trace.Tracer {
	return otelglobal.Tracer(meterName)
}

// EndSpan marks span as failed when err is non-nil, then ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
