package limiter

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Rejection reasons reported on limiter_rejected_total
const (
	ReasonFlow   = "flow"
	ReasonHotKey = "hot_key"
)

// OTelMetrics OpenTelemetry instrumentation for the limiter
type OTelMetrics struct {
	config     MetricsConfig
	registered bool
	mu         sync.RWMutex

	requestsTotal metric.Int64Counter
	allowedTotal  metric.Int64Counter
	rejectedTotal metric.Int64Counter
	currentTokens metric.Int64ObservableGauge

	tokenCallbacks map[string]func() int64
	tokenMu        sync.RWMutex
}

// MetricsConfig holds configuration for limiter metrics
type MetricsConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	RecordTokens bool `mapstructure:"record_tokens"`
}

// NewOTelMetrics creates a new OTel metrics provider for limiter
func NewOTelMetrics(cfg MetricsConfig) *OTelMetrics {
	return &OTelMetrics{
		config:         cfg,
		tokenCallbacks: make(map[string]func() int64),
	}
}

// MetricsName returns the metrics group name
func (m *OTelMetrics) MetricsName() string {
	return "limiter"
}

// IsMetricsEnabled returns whether metrics collection is enabled
func (m *OTelMetrics) IsMetricsEnabled() bool {
	return m.config.Enabled
}

// RegisterMetrics registers all limiter metrics with the provided Meter
func (m *OTelMetrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	var err error
	if m.requestsTotal, err = meter.Int64Counter(
		"limiter_requests_total",
		metric.WithDescription("Total number of admission checks"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	if m.allowedTotal, err = meter.Int64Counter(
		"limiter_allowed_total",
		metric.WithDescription("Total number of admitted requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	if m.rejectedTotal, err = meter.Int64Counter(
		"limiter_rejected_total",
		metric.WithDescription("Total number of rejected requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return err
	}

	// Optional: current tokens gauge
	if m.config.RecordTokens {
		if m.currentTokens, err = meter.Int64ObservableGauge(
			"limiter_current_tokens",
			metric.WithDescription("Tokens left after the latest check"),
			metric.WithUnit("{token}"),
			metric.WithInt64Callback(m.collectTokens),
		); err != nil {
			return err
		}
	}

	m.registered = true
	return nil
}

// collectTokens is the callback for the observable gauge
func (m *OTelMetrics) collectTokens(_ context.Context, observer metric.Int64Observer) error {
	m.tokenMu.RLock()
	defer m.tokenMu.RUnlock()

	for resource, callback := range m.tokenCallbacks {
		observer.Observe(callback(), metric.WithAttributes(attribute.String("resource", resource)))
	}
	return nil
}

// RegisterTokenCallback registers a callback for a resource's token count
func (m *OTelMetrics) RegisterTokenCallback(resource string, callback func() int64) {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()
	m.tokenCallbacks[resource] = callback
}

// UnregisterTokenCallback removes a resource's token callback
func (m *OTelMetrics) UnregisterTokenCallback(resource string) {
	m.tokenMu.Lock()
	defer m.tokenMu.Unlock()
	delete(m.tokenCallbacks, resource)
}

// RecordAllowed records an allowed request
func (m *OTelMetrics) RecordAllowed(ctx context.Context, resource string) {
	if !m.IsRegistered() {
		return
	}

	res := attribute.String("resource", resource)
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(res))
	m.allowedTotal.Add(ctx, 1, metric.WithAttributes(res))
}

// RecordRejected records a rejected request, reason is ReasonFlow or ReasonHotKey
func (m *OTelMetrics) RecordRejected(ctx context.Context, resource, reason string) {
	if !m.IsRegistered() {
		return
	}

	res := attribute.String("resource", resource)
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(res))
	m.rejectedTotal.Add(ctx, 1, metric.WithAttributes(res, attribute.String("reason", reason)))
}

// IsRegistered returns whether metrics have been registered
func (m *OTelMetrics) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}
