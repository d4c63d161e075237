// Package telemetry 初始化 OpenTelemetry 的 TracerProvider 与 MeterProvider
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Taro2021/springcloud/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Manager 管理 TracerProvider 与 MeterProvider 的生命周期
type Manager struct {
	config         Config
	logger         *logger.CtxZapLogger
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	// 测试注入
	spanExporter trace.SpanExporter
	metricReader sdkmetric.Reader
	syncExport   bool
	setGlobal    bool

	mu      sync.RWMutex
	started bool
}

// Option 管理器选项
type Option func(*Manager)

// WithSpanExporter 使用指定的 span exporter（同步导出）
func WithSpanExporter(exporter trace.SpanExporter) Option {
	return func(m *Manager) {
		m.spanExporter = exporter
		m.syncExport = true
	}
}

// WithMetricReader 使用指定的 metric reader，例如 ManualReader
func WithMetricReader(reader sdkmetric.Reader) Option {
	return func(m *Manager) {
		m.metricReader = reader
	}
}

// WithoutGlobal 不覆盖 otel 全局 provider
func WithoutGlobal() Option {
	return func(m *Manager) {
		m.setGlobal = false
	}
}

// NewManager 创建 telemetry 管理器
func NewManager(config Config, log *logger.CtxZapLogger, opts ...Option) *Manager {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}
	m := &Manager{
		config:    config,
		logger:    log,
		setGlobal: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start 创建 provider 并注册为全局
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}
	if !m.config.Enabled {
		m.logger.InfoCtx(ctx, "Telemetry disabled, skipping initialization")
		return nil
	}

	res, err := m.createResource(ctx)
	if err != nil {
		return fmt.Errorf("create resource failed: %w", err)
	}

	tp, err := m.createTracerProvider(res)
	if err != nil {
		return err
	}
	mp, err := m.createMeterProvider(res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return err
	}

	m.tracerProvider = tp
	m.meterProvider = mp
	m.started = true

	if m.setGlobal {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		if mp != nil {
			otel.SetMeterProvider(mp)
		}
	}

	m.logger.InfoCtx(ctx, "✅ Telemetry started",
		zap.String("service_name", m.config.ServiceName),
		zap.String("exporter", m.config.Exporter.Type),
		zap.Bool("metrics", mp != nil),
	)
	return nil
}

// Shutdown 刷新并关闭 provider
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}
	m.started = false

	var errs []error
	if m.meterProvider != nil {
		if err := m.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider failed: %w", err))
		}
	}
	if err := m.tracerProvider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracer provider failed: %w", err))
	}
	return errors.Join(errs...)
}

// Tracer 获取 tracer，未启动时退回全局 provider
func (m *Manager) Tracer(name string) otelTrace.Tracer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name)
	}
	return m.tracerProvider.Tracer(name)
}

// TracerProvider 当前 provider，未启动时退回全局 provider
func (m *Manager) TracerProvider() otelTrace.TracerProvider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.tracerProvider == nil {
		return otel.GetTracerProvider()
	}
	return m.tracerProvider
}

// Meter 获取 meter，metrics 未启用时返回 noop meter
func (m *Manager) Meter(name string) metric.Meter {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.meterProvider == nil {
		return noop.NewMeterProvider().Meter(name)
	}
	return m.meterProvider.Meter(name)
}

// MetricsEnabled 是否有可用的 MeterProvider
func (m *Manager) MetricsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.meterProvider != nil
}

// BreakerMetricsEnabled 是否导出熔断器指标
func (m *Manager) BreakerMetricsEnabled() bool {
	return m.MetricsEnabled() && m.config.Metrics.Breaker
}

// HTTPMetricsEnabled 是否导出 HTTP 指标
func (m *Manager) HTTPMetricsEnabled() bool {
	return m.MetricsEnabled() && m.config.Metrics.HTTP
}

// IsEnabled 是否启用
func (m *Manager) IsEnabled() bool {
	return m.config.Enabled
}

// GetConfig 获取配置
func (m *Manager) GetConfig() Config {
	return m.config
}
