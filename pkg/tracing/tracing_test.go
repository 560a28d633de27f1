package tracing

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewProviderWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewProvider(Config{ServiceName: "openroute", Environment: "test"}, &buf)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "routing.ComputeRoute")
	span.End()

	// shutdown flushes the batcher
	require.NoError(t, tp.Shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"routing.ComputeRoute"`)
	assert.Contains(t, buf.String(), "openroute")
}

func TestInitTracerNone(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)
	otel.SetTracerProvider(noop.NewTracerProvider())

	tp, shutdown, err := InitTracer(Config{ServiceName: "openroute", Exporter: ExporterNone})
	require.NoError(t, err)
	assert.Equal(t, otel.GetTracerProvider(), tp)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracerStdoutToFile(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	path := filepath.Join(t.TempDir(), "spans.json")
	tp, shutdown, err := InitTracer(Config{ServiceName: "openroute", Exporter: ExporterStdout, Output: path})
	require.NoError(t, err)
	assert.Equal(t, tp, otel.GetTracerProvider(), "installed globally")

	_, span := tp.Tracer("test").Start(context.Background(), "GET /api/route")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "GET /api/route")
}

func TestInitTracerUnknownExporter(t *testing.T) {
	_, _, err := InitTracer(Config{ServiceName: "openroute", Exporter: "jaeger"})
	assert.Error(t, err)
}
