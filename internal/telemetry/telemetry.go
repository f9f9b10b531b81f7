package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"servicecheck/internal/config"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/rs/zerolog/log"
)

var (
	ErrResource     = errors.New("failed to create telemetry resource")
	ErrTraceExport  = errors.New("failed to create OTLP trace exporter")
	ErrMetricExport = errors.New("failed to create Prometheus metric exporter")
)

// ShutdownFunc flushes and stops the installed providers.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

var (
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *metric.MeterProvider
)

// InitTelemetry installs the global tracer and meter providers used by check
// run spans, run instruments and the echo middleware. When telemetry is
// disabled the globals stay no-op.
func InitTelemetry(ctx context.Context, settings *config.TelemetryConfig, environment string) (ShutdownFunc, error) {
	if !settings.Enabled {
		log.Debug().Msg("OpenTelemetry disabled")
		return noopShutdown, nil
	}

	res, err := newResource(ctx, settings, environment)
	if err != nil {
		return nil, errors.Join(ErrResource, err)
	}

	tp, err := newTracerProvider(ctx, res, settings)
	if err != nil {
		return nil, errors.Join(ErrTraceExport, err)
	}

	mp, err := newMeterProvider(res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, errors.Join(ErrMetricExport, err)
	}

	tracerProvider, meterProvider = tp, mp
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info().
		Str("service", settings.ServiceName).
		Str("endpoint", otlpEndpoint(settings)).
		Float64("sample_ratio", settings.SampleRatio).
		Msg("OpenTelemetry initialized")

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func newResource(ctx context.Context, settings *config.TelemetryConfig, environment string) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(settings.ServiceName),
			semconv.ServiceVersionKey.String(settings.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(environment),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
}

func otlpEndpoint(settings *config.TelemetryConfig) string {
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return settings.OTLPEndpoint
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

func newTracerProvider(ctx context.Context, res *resource.Resource, settings *config.TelemetryConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(otlpEndpoint(settings))}
	if settings.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("endpoint %s: %w", otlpEndpoint(settings), err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(settings.SampleRatio)),
	), nil
}

// newMeterProvider exports run instruments through the default Prometheus
// registry, so they are served by /metrics/prometheus next to the collector.
func newMeterProvider(res *resource.Resource) (*metric.MeterProvider, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(exporter),
	), nil
}

func GetTracerProvider() *sdktrace.TracerProvider {
	return tracerProvider
}

func GetMeterProvider() *metric.MeterProvider {
	return meterProvider
}
