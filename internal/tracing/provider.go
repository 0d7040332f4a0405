// Package tracing exports loop phases as OpenTelemetry spans.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"promptopt/internal/spec"
)

const (
	instrumentationName = "promptopt"
	defaultServiceName  = "promptopt"
	defaultEndpoint     = "localhost:4318"
)

// Provider owns the tracer used by the phase observer.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewProvider exports over OTLP/HTTP when tracing is enabled and returns a
// no-op tracer otherwise.
func NewProvider(ctx context.Context, cfg spec.TracingConfig) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(instrumentationName)}, nil
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return NewProviderWithExporter(cfg, exporter), nil
}

// NewProviderWithExporter builds a provider around an explicit exporter.
func NewProviderWithExporter(cfg spec.TracingConfig, exporter sdktrace.SpanExporter) *Provider {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(rate)),
	)
	return &Provider{provider: provider, tracer: provider.Tracer(instrumentationName)}
}

// FromTracer wraps an existing tracer, mostly for tests.
func FromTracer(tracer trace.Tracer) *Provider {
	return &Provider{tracer: tracer}
}

func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// ForceFlush exports pending spans without stopping the provider.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.ForceFlush(ctx)
	}
	return nil
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}
