// Package tracing installs the OpenTelemetry tracer provider used by the
// HTTP server and the routing client
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Config selects where spans go
type Config struct {
	ServiceName string `yaml:"service_name" validate:"required"`
	Environment string `yaml:"environment"`
	// Exporter is "none" or "stdout"
	Exporter string `yaml:"exporter" validate:"oneof=none stdout"`
	// Output is the file stdout spans are appended to, stderr when empty
	Output string `yaml:"output"`
}

// ShutdownFunc flushes pending spans and releases the exporter
type ShutdownFunc func(context.Context) error

// NewProvider builds a provider that writes finished spans as JSON to w
func NewProvider(cfg Config, w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create span exporter: %w", err)
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attrs...)),
	), nil
}

// InitTracer installs the configured provider globally. With the "none"
// exporter the global no-op provider is returned untouched.
func InitTracer(cfg Config) (trace.TracerProvider, ShutdownFunc, error) {
	if cfg.Exporter == "" || cfg.Exporter == ExporterNone {
		return otel.GetTracerProvider(), func(context.Context) error { return nil }, nil
	}
	if cfg.Exporter != ExporterStdout {
		return nil, nil, fmt.Errorf("unknown span exporter %q", cfg.Exporter)
	}

	var out io.WriteCloser = nopCloser{os.Stderr}
	if cfg.Output != "" {
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open span output: %w", err)
		}
		out = f
	}

	tp, err := NewProvider(cfg, out)
	if err != nil {
		_ = out.Close()
		return nil, nil, err
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		return err
	}
	return tp, shutdown, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
