package telemetry

import (
	"context"
	"servicecheck/internal/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTelemetryDisabled(t *testing.T) {
	settings := config.Default().Telemetry
	settings.Enabled = false

	shutdown, err := InitTelemetry(context.Background(), &settings, "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Nil(t, GetTracerProvider())
}

func TestOTLPEndpointOverride(t *testing.T) {
	settings := config.Default().Telemetry

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	assert.Equal(t, "localhost:4317", otlpEndpoint(&settings))

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	assert.Equal(t, "collector:4317", otlpEndpoint(&settings))
}

func TestRecordRunWithNoopProvider(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordRun(context.Background(), "cli", "completed", time.Second)
	})
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestNewResourceCarriesEnvironment(t *testing.T) {
	settings := config.Default().Telemetry

	res, err := newResource(context.Background(), &settings, "production")
	require.NoError(t, err)

	values := map[string]string{}
	for _, kv := range res.Attributes() {
		values[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "servicecheck", values["service.name"])
	assert.Equal(t, "production", values["deployment.environment"])
}
