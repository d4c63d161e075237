package breaker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Taro2021/springcloud/logger"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Manager 降级调度管理器，每个资源一个熔断器
type Manager struct {
	config    Config
	circuits  map[string]*circuit
	eventBus  EventBus
	pool      *ants.Pool
	admission Admission
	metrics   *OTelBreakerMetrics
	logger    *logger.CtxZapLogger
	now       func() time.Time
	mu        sync.RWMutex
	closeOnce sync.Once
}

// Option 管理器选项
type Option func(*Manager)

// WithLogger 设置日志
func WithLogger(log *logger.CtxZapLogger) Option {
	return func(m *Manager) {
		if log != nil {
			m.logger = log
		}
	}
}

// WithAdmission 设置准入检查（限流 / 热点参数）
func WithAdmission(a Admission) Option {
	return func(m *Manager) {
		m.admission = a
	}
}

// WithMetrics 设置 OTel 指标
func WithMetrics(metrics *OTelBreakerMetrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithClock 替换时钟（测试使用）
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager 创建管理器
func NewManager(config Config, opts ...Option) (*Manager, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m := &Manager{
		config:   config,
		circuits: make(map[string]*circuit),
		logger:   logger.GetLogger("springcloud"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	pool, err := ants.NewPool(config.PoolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create isolation pool: %w", err)
	}
	m.pool = pool
	m.eventBus = NewEventBus(config.EventBusBuffer, m.logger)

	if !config.Enabled {
		m.logger.DebugCtx(context.Background(), "⏭️  circuit breaker disabled, only timeout and fallback apply")
	}
	m.logger.DebugCtx(context.Background(), "🎯 breaker manager initialized",
		zap.Bool("enabled", config.Enabled),
		zap.Int("pool_size", config.PoolSize),
		zap.Int("resources", len(config.Resources)))

	return m, nil
}

// Enabled 熔断是否启用
func (m *Manager) Enabled() bool {
	return m.config.Enabled
}

// Policy 返回资源生效的策略
func (m *Manager) Policy(resource string) Policy {
	return m.config.PolicyFor(resource)
}

// State 获取资源的熔断状态
func (m *Manager) State(resource string) State {
	return m.circuit(resource).state.GetState()
}

// Snapshot 获取资源的窗口统计
func (m *Manager) Snapshot(resource string) Snapshot {
	return m.circuit(resource).snapshot()
}

// Reset 手动重置资源的熔断器
func (m *Manager) Reset(resource string) {
	m.circuit(resource).reset(context.Background())
}

// EventBus 获取事件总线
func (m *Manager) EventBus() EventBus {
	return m.eventBus
}

// Shutdown 实现 do.Shutdowner
func (m *Manager) Shutdown() {
	m.Close()
}

// Close 关闭事件总线并释放协程池
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		if m.metrics != nil {
			m.mu.RLock()
			for resource := range m.circuits {
				m.metrics.UnregisterStateCallback(resource)
			}
			m.mu.RUnlock()
		}
		m.eventBus.Close()
		m.pool.Release()
	})
}

// circuit 获取或创建资源熔断器（双重检查）
func (m *Manager) circuit(resource string) *circuit {
	m.mu.RLock()
	c, ok := m.circuits[resource]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.circuits[resource]; ok {
		return c
	}

	policy := m.config.PolicyFor(resource)
	c = newCircuit(resource, policy, m.config.Enabled && policy.Breaker(), m)
	m.circuits[resource] = c

	if m.metrics != nil {
		m.metrics.RegisterStateCallback(resource, c.state.GetState)
	}

	m.logger.DebugCtx(context.Background(), "🎯 circuit created",
		zap.String("resource", resource),
		zap.Bool("gated", c.gated),
		zap.Duration("timeout", policy.Timeout),
		zap.Int("request_volume_threshold", policy.RequestVolumeThreshold),
		zap.Int("error_threshold_percentage", policy.ErrorThresholdPercentage),
		zap.Duration("sleep_window", policy.SleepWindow))

	return c
}
