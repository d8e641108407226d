// Package observability provides OpenTelemetry tracing and RED metrics
// (rate, errors, duration) for the moralogy service. Telemetry is disabled
// by default; when enabled, spans and metrics export over OTLP/gRPC.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the OpenTelemetry providers.
type Config struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string // e.g. "localhost:4317"
	Enabled        bool
	Insecure       bool
}

// DefaultConfig returns local-development defaults with telemetry off.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "moralogy",
		ServiceVersion: "1.0.0",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
		Insecure:       true,
	}
}

// Provider manages trace and metric providers plus the service's RED
// instruments.
type Provider struct {
	config         *Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
	logger         *slog.Logger

	deliberations metric.Int64Counter
	denials       metric.Int64Counter
	errors        metric.Int64Counter
	duration      metric.Float64Histogram
}

// New creates an observability provider. With Enabled=false all operations
// are no-ops backed by the global (noop) providers.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Provider{
		config: config,
		logger: slog.Default().With("component", "observability"),
	}

	if !config.Enabled {
		p.tracer = otel.Tracer(config.ServiceName)
		p.meter = otel.Meter(config.ServiceName)
		return p, p.initInstruments()
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	if err := p.initTraceProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("init trace provider: %w", err)
	}
	if err := p.initMetricProvider(ctx, res); err != nil {
		return nil, fmt.Errorf("init metric provider: %w", err)
	}

	p.tracer = otel.Tracer(config.ServiceName, trace.WithInstrumentationVersion(config.ServiceVersion))
	p.meter = otel.Meter(config.ServiceName)
	return p, p.initInstruments()
}

func (p *Provider) initTraceProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return err
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(p.tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return nil
}

func (p *Provider) initMetricProvider(ctx context.Context, res *resource.Resource) error {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(p.config.OTLPEndpoint)}
	if p.config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return err
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(p.meterProvider)
	return nil
}

func (p *Provider) initInstruments() error {
	var err error
	if p.deliberations, err = p.meter.Int64Counter("moralogy.deliberations",
		metric.WithDescription("Deliberations processed")); err != nil {
		return err
	}
	if p.denials, err = p.meter.Int64Counter("moralogy.denials",
		metric.WithDescription("Deliberations blocked by the sandbox")); err != nil {
		return err
	}
	if p.errors, err = p.meter.Int64Counter("moralogy.errors",
		metric.WithDescription("Failed requests")); err != nil {
		return err
	}
	if p.duration, err = p.meter.Float64Histogram("moralogy.request.duration",
		metric.WithDescription("Request duration in seconds"), metric.WithUnit("s")); err != nil {
		return err
	}
	return nil
}

// StartSpan starts a span for one operation.
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordDeliberation counts one deliberation by tier and action.
func (p *Provider) RecordDeliberation(ctx context.Context, tier, action string, blocked bool) {
	attrs := metric.WithAttributes(
		attribute.String("tier", tier),
		attribute.String("action", action),
	)
	p.deliberations.Add(ctx, 1, attrs)
	if blocked {
		p.denials.Add(ctx, 1, attrs)
	}
}

// RecordError counts one failed request.
func (p *Provider) RecordError(ctx context.Context, operation string) {
	p.errors.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordDuration records one request duration.
func (p *Provider) RecordDuration(ctx context.Context, operation string, d time.Duration) {
	p.duration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("operation", operation)))
}

// Shutdown flushes and stops the providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var firstErr error
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		p.logger.Error("telemetry shutdown failed", "error", firstErr)
	}
	return firstErr
}
