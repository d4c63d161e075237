package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	metrics, err := NewHTTPMetrics(provider.Meter("http-server"))
	require.NoError(t, err)

	router := gin.New()
	router.Use(metrics.Handler())
	router.GET("/payment/get/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, "/payment/get/1")
	serve(router, "/payment/get/2")
	serve(router, "/nowhere")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	paths := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				path, _ := dp.Attributes.Value("path")
				paths[path.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), paths["/payment/get/:id"])
	assert.Equal(t, int64(1), paths["unknown"])
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "3xx", statusClass(302))
	assert.Equal(t, "4xx", statusClass(406))
	assert.Equal(t, "5xx", statusClass(503))
	assert.Equal(t, "unknown", statusClass(100))
}
