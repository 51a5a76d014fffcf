package observability

import (
	"context"
	"testing"
)

func TestOtelHeaders(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc, broken ,tenant=farms")
	h := otelHeaders()
	if len(h) != 2 || h["x-api-key"] != "abc" || h["tenant"] != "farms" {
		t.Fatalf("unexpected headers: %#v", h)
	}
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "")
	if otelHeaders() != nil {
		t.Fatalf("expected nil headers")
	}
}

func TestOtelSampleRatioClamped(t *testing.T) {
	t.Setenv("OTEL_SAMPLER_RATIO", "3")
	if got := otelSampleRatio(); got != 1 {
		t.Fatalf("expected clamp to 1, got %v", got)
	}
	t.Setenv("OTEL_SAMPLER_RATIO", "-1")
	if got := otelSampleRatio(); got != 0 {
		t.Fatalf("expected clamp to 0, got %v", got)
	}
}

func TestExporterKind(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if got := exporterKind(); got != "stdout" {
		t.Fatalf("default: %s", got)
	}
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	if got := exporterKind(); got != "otlp" {
		t.Fatalf("with endpoint: %s", got)
	}
	t.Setenv("OTEL_TRACES_EXPORTER", "NONE")
	if got := exporterKind(); got != "none" {
		t.Fatalf("explicit: %s", got)
	}
	exp, err := buildTraceExporter(context.Background(), "none")
	if err != nil || exp != nil {
		t.Fatalf("none exporter: %v %v", exp, err)
	}
}
