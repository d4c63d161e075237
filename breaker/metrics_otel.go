package breaker

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelBreakerMetrics OpenTelemetry 指标
type OTelBreakerMetrics struct {
	config     BreakerMetricsConfig
	registered bool
	mu         sync.RWMutex

	requestsTotal   metric.Int64Counter
	successesTotal  metric.Int64Counter
	failuresTotal   metric.Int64Counter
	rejectionsTotal metric.Int64Counter
	fallbacksTotal  metric.Int64Counter
	latency         metric.Float64Histogram
	stateGauge      metric.Int64ObservableGauge // 0=closed, 1=open, 2=half-open

	stateCallbacks map[string]func() State
	stateMu        sync.RWMutex
}

// BreakerMetricsConfig 指标配置
type BreakerMetricsConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	RecordState bool `mapstructure:"record_state"`
}

// NewOTelBreakerMetrics 创建指标采集器，需调用 RegisterMetrics 后才会记录
func NewOTelBreakerMetrics(cfg BreakerMetricsConfig) *OTelBreakerMetrics {
	return &OTelBreakerMetrics{
		config:         cfg,
		stateCallbacks: make(map[string]func() State),
	}
}

// MetricsName returns the metrics group name
func (m *OTelBreakerMetrics) MetricsName() string {
	return "breaker"
}

// IsMetricsEnabled returns whether metrics collection is enabled
func (m *OTelBreakerMetrics) IsMetricsEnabled() bool {
	return m.config.Enabled
}

// RegisterMetrics registers all breaker instruments with meter
func (m *OTelBreakerMetrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	var err error
	if m.requestsTotal, err = meter.Int64Counter(
		"breaker_requests_total",
		metric.WithDescription("Total number of dispatched calls"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	if m.successesTotal, err = meter.Int64Counter(
		"breaker_successes_total",
		metric.WithDescription("Total number of successful primary calls"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	if m.failuresTotal, err = meter.Int64Counter(
		"breaker_failures_total",
		metric.WithDescription("Total number of failed primary calls (timeouts included)"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	if m.rejectionsTotal, err = meter.Int64Counter(
		"breaker_rejections_total",
		metric.WithDescription("Total number of calls rejected before the primary ran"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	if m.fallbacksTotal, err = meter.Int64Counter(
		"breaker_fallbacks_total",
		metric.WithDescription("Total number of fallback invocations"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	if m.latency, err = meter.Float64Histogram(
		"breaker_latency_seconds",
		metric.WithDescription("Primary call latency distribution"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}

	if m.config.RecordState {
		if m.stateGauge, err = meter.Int64ObservableGauge(
			"breaker_state",
			metric.WithDescription("Current circuit breaker state (0=closed, 1=open, 2=half-open)"),
			metric.WithInt64Callback(m.collectState),
		); err != nil {
			return err
		}
	}

	m.registered = true
	return nil
}

func (m *OTelBreakerMetrics) collectState(_ context.Context, observer metric.Int64Observer) error {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	for resource, callback := range m.stateCallbacks {
		observer.Observe(int64(callback()), metric.WithAttributes(attribute.String("resource", resource)))
	}
	return nil
}

// RegisterStateCallback 注册资源状态回调（供 state gauge 读取）
func (m *OTelBreakerMetrics) RegisterStateCallback(resource string, callback func() State) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.stateCallbacks[resource] = callback
}

// UnregisterStateCallback removes a resource's state callback
func (m *OTelBreakerMetrics) UnregisterStateCallback(resource string) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	delete(m.stateCallbacks, resource)
}

// IsRegistered returns whether metrics have been registered
func (m *OTelBreakerMetrics) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

// RecordSuccess 记录 primary 成功
func (m *OTelBreakerMetrics) RecordSuccess(ctx context.Context, resource string, duration time.Duration) {
	if !m.IsRegistered() {
		return
	}

	res := attribute.String("resource", resource)
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(res, attribute.String("result", "success")))
	m.successesTotal.Add(ctx, 1, metric.WithAttributes(res))
	m.latency.Record(ctx, duration.Seconds(), metric.WithAttributes(res))
}

// RecordFailure 记录 primary 失败（Timeout / Exception）
func (m *OTelBreakerMetrics) RecordFailure(ctx context.Context, resource string, duration time.Duration, kind FailureKind) {
	if !m.IsRegistered() {
		return
	}

	res := attribute.String("resource", resource)
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(res, attribute.String("result", "failure")))
	m.failuresTotal.Add(ctx, 1, metric.WithAttributes(res, attribute.String("kind", kind.String())))
	m.latency.Record(ctx, duration.Seconds(), metric.WithAttributes(res))
}

// RecordRejection 记录拒绝（BreakerOpen / RateLimited / HotKeyBlocked）
func (m *OTelBreakerMetrics) RecordRejection(ctx context.Context, resource string, kind FailureKind) {
	if !m.IsRegistered() {
		return
	}

	res := attribute.String("resource", resource)
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(res, attribute.String("result", "rejected")))
	m.rejectionsTotal.Add(ctx, 1, metric.WithAttributes(res, attribute.String("kind", kind.String())))
}

// RecordFallback 记录降级调用
func (m *OTelBreakerMetrics) RecordFallback(ctx context.Context, resource string, success bool) {
	if !m.IsRegistered() {
		return
	}

	result := "success"
	if !success {
		result = "failure"
	}
	m.fallbacksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("result", result),
	))
}
