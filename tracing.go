package main

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// setupTracing installs a global tracer provider. OTLP_ENDPOINT selects an
// OTLP-over-HTTP collector, TRACE_STDOUT=1 dumps spans to stdout, and with
// neither set the default no-op provider stays in place. The returned func
// flushes and shuts the provider down.
func setupTracing(ctx context.Context) (func(context.Context) error, error) {
	var exp sdktrace.SpanExporter
	var err error

	switch {
	case os.Getenv("OTLP_ENDPOINT") != "":
		exp, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(os.Getenv("OTLP_ENDPOINT")),
			otlptracehttp.WithInsecure(),
		)
	case os.Getenv("TRACE_STDOUT") == "1":
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return func(context.Context) error { return nil }, nil
	}
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "taskboard-api"),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
