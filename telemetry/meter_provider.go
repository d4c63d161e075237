package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// createMeterProvider 创建 MeterProvider，metrics 关闭时返回 nil
func (m *Manager) createMeterProvider(res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	reader := m.metricReader
	if reader == nil {
		if !m.config.Metrics.Enabled || m.config.Metrics.Exporter == "noop" {
			return nil, nil
		}

		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(m.config.Metrics.ExportInterval),
			sdkmetric.WithTimeout(m.config.Metrics.ExportTimeout),
		)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	), nil
}
