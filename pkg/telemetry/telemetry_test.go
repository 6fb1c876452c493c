package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abgdnv/productcatalog/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetup_Disabled(t *testing.T) {
	provider, err := Setup(context.Background(), "catalog", config.TelemetryConfig{Enabled: false})

	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.Nil(t, provider.MetricsHandler())
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSetup_Enabled(t *testing.T) {
	cfg := config.TelemetryConfig{Enabled: true}
	cfg.Traces.OtlpHttp.Endpoint = "localhost:4318"
	cfg.Traces.OtlpHttp.Insecure = true
	cfg.Traces.OtlpHttp.Timeout = 100 * time.Millisecond

	// the exporter connects lazily so no collector is needed here
	provider, err := Setup(context.Background(), "catalog", cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = provider.Shutdown(ctx)
}

func TestSetup_MetricsServedInPrometheusFormat(t *testing.T) {
	// given
	cfg := config.TelemetryConfig{Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"}}
	provider, err := Setup(context.Background(), "catalog", cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	counter, err := otel.Meter("telemetry_test").Int64Counter("catalog.test.hits")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	// when
	rec := httptest.NewRecorder()
	provider.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// then
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog_test_hits_total")
}
