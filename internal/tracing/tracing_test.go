package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestStartSpan_RecordsError(t *testing.T) {
	rec := withRecorder(t)

	_, end := StartSpan(context.Background(), "ranking.score", attribute.Int("creators", 3))
	end(errors.New("boom"))

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "ranking.score" {
		t.Errorf("span name = %q, want ranking.score", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status().Code)
	}
}

func TestStartDBSpan_Attributes(t *testing.T) {
	rec := withRecorder(t)

	_, end := StartDBSpan(context.Background(), "creators", "query")
	end(nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "query creators" {
		t.Errorf("span name = %q, want %q", spans[0].Name(), "query creators")
	}
	found := false
	for _, a := range spans[0].Attributes() {
		if a.Key == "db.sql.table" && a.Value.AsString() == "creators" {
			found = true
		}
	}
	if !found {
		t.Error("missing db.sql.table attribute")
	}
	if spans[0].Status().Code == codes.Error {
		t.Error("status = Error, want unset for nil error")
	}
}

func TestInit(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	t.Run("no endpoint installs nothing", func(t *testing.T) {
		shutdown, err := Init(context.Background(), Config{ServiceName: "ese"})
		if err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if otel.GetTracerProvider() != prev {
			t.Error("global provider replaced without an endpoint")
		}
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("shutdown() error = %v", err)
		}
	})

	t.Run("rejects sampling rate", func(t *testing.T) {
		if _, err := Init(context.Background(), Config{Endpoint: "http://127.0.0.1:4318", SamplingRate: 1.5}); err == nil {
			t.Error("expected error for sampling rate above 1")
		}
	})

	t.Run("installs provider", func(t *testing.T) {
		shutdown, err := Init(context.Background(), Config{ServiceName: "ese", Endpoint: "http://127.0.0.1:4318", SamplingRate: 1})
		if err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
			t.Errorf("global provider is %T, want *sdktrace.TracerProvider", otel.GetTracerProvider())
		}
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("shutdown() error = %v", err)
		}
	})
}
