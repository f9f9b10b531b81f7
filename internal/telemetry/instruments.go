package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

const meterName = "servicecheck"

// RecordRun adds one finished run to the OpenTelemetry run instruments. The
// instruments are looked up on every call so they follow the meter provider
// installed by InitTelemetry.
func RecordRun(ctx context.Context, trigger, status string, duration time.Duration) {
	meter := otel.Meter(meterName)
	attrs := otelmetric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("status", status),
	)

	if runs, err := meter.Int64Counter("servicecheck.runs",
		otelmetric.WithDescription("Finished check runs."),
	); err == nil {
		runs.Add(ctx, 1, attrs)
	}

	if hist, err := meter.Float64Histogram("servicecheck.run.duration",
		otelmetric.WithDescription("Duration of finished check runs."),
		otelmetric.WithUnit("s"),
	); err == nil {
		hist.Record(ctx, duration.Seconds(), attrs)
	}
}
