// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_Disabled(t *testing.T) {
	cfg := Config{
		Enabled:      false,
		ServiceName:  "ced",
		ExporterType: "grpc",
	}

	provider, err := NewProvider(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if provider.tp != nil {
		t.Error("Expected noop provider (tp == nil)")
	}

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	if span.IsRecording() {
		t.Error("Expected noop tracer span to be non-recording")
	}
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	cfg := Config{
		Enabled:      true,
		ServiceName:  "ced",
		ExporterType: "invalid",
	}

	_, err := NewProvider(context.Background(), cfg)
	if err == nil {
		t.Fatal("Expected error for invalid exporter type")
	}
	expectedMsg := "unsupported exporter type: invalid (supported: grpc, http)"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestProvider_ShutdownNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &Provider{tp: nil}
	if err := provider.Shutdown(ctx); err != nil {
		t.Errorf("Expected no error on noop shutdown, got: %v", err)
	}
}

func TestStartTaskRecordsOutcome(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	tracer := tp.Tracer("loader")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	spanCtx, span := StartTask(ctx, tracer, "mob", "zone1", "id-1")
	if spanCtx.Err() != nil {
		t.Error("Expected task span context to ignore parent cancellation")
	}
	EndTask(span, 5, nil)

	_, failed := StartTask(context.Background(), tracer, "mpr", "zone2", "id-2")
	EndTask(failed, 0, errors.New("missing"))

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("Expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "mob.task" {
		t.Errorf("Expected span name mob.task, got %s", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("Expected Ok status, got %v", spans[0].Status().Code)
	}
	verifyIntAttribute(t, spans[0].Attributes(), TaskItemsKey, 5)
	verifyAttribute(t, spans[0].Attributes(), TaskNameKey, "zone1")

	if spans[1].Status().Code != codes.Error {
		t.Errorf("Expected Error status, got %v", spans[1].Status().Code)
	}
	verifyBoolAttribute(t, spans[1].Attributes(), ErrorKey, true)
}
