// Package tracing wraps OpenTelemetry span creation for the ranking pipeline and
// the repository. Spans go to the global provider, which is a no-op unless one is
// installed at startup.
package tracing

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentation = "expert-suitability-engine"

// Config selects where spans are exported.
type Config struct {
	ServiceName  string
	Environment  string
	Endpoint     string // OTLP/HTTP URL; empty keeps the no-op provider
	SamplingRate float64
}

// Init installs a batching OTLP/HTTP tracer provider as the global provider. The
// returned function flushes and stops it. With no endpoint, Init installs nothing
// and the shutdown function is a no-op.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop, nil
	}
	if cfg.SamplingRate < 0 || cfg.SamplingRate > 1 {
		return noop, fmt.Errorf("sampling rate must be between 0 and 1, got %g", cfg.SamplingRate)
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	if err != nil {
		return noop, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("deployment.environment", cfg.Environment),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info().Str("endpoint", cfg.Endpoint).Float64("sampling_rate", cfg.SamplingRate).Msg("tracing enabled")
	return tp.Shutdown, nil
}

// StartSpan creates a span for a pipeline stage. The returned function ends the
// span and records err when non-nil.
//
//	ctx, end := tracing.StartSpan(ctx, "ranking.score")
//	defer func() { end(err) }()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := otel.Tracer(instrumentation).Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, endFunc(span)
}

// StartDBSpan creates a client span for a query against table.
func StartDBSpan(ctx context.Context, table, operation string) (context.Context, func(error)) {
	ctx, span := otel.Tracer(instrumentation+"/db").Start(ctx, operation+" "+table,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		),
	)
	return ctx, endFunc(span)
}

func endFunc(span trace.Span) func(error) {
	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
