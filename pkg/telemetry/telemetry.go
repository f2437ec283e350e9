// Package telemetry configures OpenTelemetry tracing for payload generation
// and callback polling. Tracing is off unless an OTLP endpoint is given.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/oobkit/oobkit/pkg/defaults"
	"github.com/oobkit/oobkit/pkg/duration"
)

// TracerName is the instrumentation scope of every span this module emits.
const TracerName = "github.com/oobkit/oobkit"

// Tracer returns the module tracer from the global provider. Components
// use it when no tracer is injected.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// Options configures the tracer provider.
type Options struct {
	// Endpoint is the OTLP/gRPC collector (e.g., "localhost:4317").
	// Empty disables tracing.
	Endpoint string

	// ServiceName is the service name for traces (default: "oobkit").
	ServiceName string

	// Insecure uses a plaintext connection to the collector.
	Insecure bool

	// Headers contains additional headers for the OTLP exporter.
	Headers map[string]string

	// ShutdownTimeout bounds the final span flush (default: 5s).
	ShutdownTimeout time.Duration
}

// Provider owns the tracer provider installed by Setup.
type Provider struct {
	provider        trace.TracerProvider
	sdk             *sdktrace.TracerProvider
	shutdownTimeout time.Duration
}

// Setup builds a tracer provider from opts and installs it as the global
// provider. With an empty endpoint a no-op provider is installed instead.
func Setup(opts Options) (*Provider, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = defaults.ToolName
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = duration.TelemetryShutdown
	}

	if opts.Endpoint == "" {
		p := &Provider{provider: noop.NewTracerProvider(), shutdownTimeout: opts.ShutdownTimeout}
		otel.SetTracerProvider(p.provider)
		return p, nil
	}

	exporterOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.Endpoint),
	}
	if opts.Insecure {
		exporterOpts = append(exporterOpts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(opts.Headers) > 0 {
		exporterOpts = append(exporterOpts, otlptracegrpc.WithHeaders(opts.Headers))
	}

	// The gRPC connection is established lazily; this does not block on
	// an unreachable collector.
	exporter, err := otlptracegrpc.New(context.Background(), exporterOpts...)
	if err != nil {
		return nil, err
	}

	p := NewProvider(exporter, opts.ServiceName)
	p.shutdownTimeout = opts.ShutdownTimeout
	otel.SetTracerProvider(p.provider)
	return p, nil
}

// NewProvider wraps exporter in a batching tracer provider without
// touching the global provider. Tests pass an in-memory exporter.
func NewProvider(exporter sdktrace.SpanExporter, serviceName string) *Provider {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(defaults.Version),
		attribute.String("service.component", "payload-engine"),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	return &Provider{provider: tp, sdk: tp, shutdownTimeout: duration.TelemetryShutdown}
}

// Enabled reports whether spans are exported.
func (p *Provider) Enabled() bool {
	return p.sdk != nil
}

// Tracer returns the module tracer from this provider.
func (p *Provider) Tracer() trace.Tracer {
	return p.provider.Tracer(TracerName)
}

// ForceFlush exports every span ended so far.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.ForceFlush(ctx)
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.shutdownTimeout)
	defer cancel()
	return p.sdk.Shutdown(ctx)
}
