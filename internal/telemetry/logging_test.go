package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newBufferedLogger mirrors NewLogger but writes to an in-memory buffer.
func newBufferedLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	inner := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})
	return slog.New(&traceHandler{inner: inner}), buf
}

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return record
}

func TestLoggerIncludesTraceIDs(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	logger, buf := newBufferedLogger(slog.LevelInfo)

	ctx, span := StartSpan(context.Background(), "logged.operation")
	logger.InfoContext(ctx, "inside span", "order_id", "o-1")
	span.End()

	record := decodeLogLine(t, buf)
	if record["trace_id"] != TraceID(ctx) {
		t.Errorf("expected trace_id %q, got %v", TraceID(ctx), record["trace_id"])
	}
	if record["span_id"] == "" || record["span_id"] == nil {
		t.Error("expected span_id to be present")
	}
	if record["order_id"] != "o-1" {
		t.Errorf("expected order_id o-1, got %v", record["order_id"])
	}
}

func TestLoggerOutsideSpanOmitsTraceIDs(t *testing.T) {
	logger, buf := newBufferedLogger(slog.LevelInfo)

	logger.InfoContext(context.Background(), "no span")

	record := decodeLogLine(t, buf)
	if _, ok := record["trace_id"]; ok {
		t.Error("expected no trace_id outside a span")
	}
	if _, ok := record["span_id"]; ok {
		t.Error("expected no span_id outside a span")
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	logger, buf := newBufferedLogger(slog.LevelWarn)

	logger.Info("filtered out")
	if buf.Len() != 0 {
		t.Fatalf("expected info record to be filtered, got %q", buf.String())
	}

	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Fatal("expected warn record to be written")
	}
}

func TestLoggerPreservesAttrsAndGroups(t *testing.T) {
	logger, buf := newBufferedLogger(slog.LevelInfo)

	logger.With("component", "api").WithGroup("request").Info("handled", "path", "/v1/orders")

	record := decodeLogLine(t, buf)
	if record["component"] != "api" {
		t.Errorf("expected component api, got %v", record["component"])
	}

	group, ok := record["request"].(map[string]any)
	if !ok {
		t.Fatalf("expected request group, got %v", record["request"])
	}
	if group["path"] != "/v1/orders" {
		t.Errorf("expected path /v1/orders in group, got %v", group["path"])
	}
}
