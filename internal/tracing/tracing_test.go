package tracing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNewExporterUnknown(t *testing.T) {
	_, err := newExporter(context.Background(), Config{Exporter: "carrier-pigeon"}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestEndRecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	defer tp.Shutdown(context.Background())

	func() (err error) {
		_, span := tp.Tracer("test").Start(context.Background(), "failing")
		defer End(span, &err)
		return errors.New("boom")
	}()

	func() (err error) {
		_, span := tp.Tracer("test").Start(context.Background(), "ok")
		defer End(span, &err)
		return nil
	}()

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 ended spans, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status().Code)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected recorded error event")
	}
	if spans[1].Status().Code == codes.Error {
		t.Error("ok span should not carry error status")
	}
}
