package limiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Taro2021/springcloud/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Manager 准入管理器：流控规则 + 热点参数规则
type Manager struct {
	config    Config
	store     Store
	ownsStore bool
	redis     *redis.Client
	resources map[string]*resourceLimiter
	params    map[string]*paramGuard
	eventBus  EventBus
	metrics   *OTelMetrics
	logger    *logger.CtxZapLogger
	now       func() time.Time
	mu        sync.RWMutex
}

// resourceLimiter 单个资源的规则集合
type resourceLimiter struct {
	resource string
	flow     FlowRule
	hasFlow  bool
	params   *paramGuard
	stats    *metricsCollector
}

func (rl *resourceLimiter) guarded() bool {
	return rl.hasFlow || rl.params != nil
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

// WithRedisClient Redis 存储使用的客户端
func WithRedisClient(client *redis.Client) Option {
	return func(m *Manager) {
		m.redis = client
	}
}

// WithStore 直接指定存储（优先于 StoreType）
func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithMetrics 设置 OTel 指标
func WithMetrics(metrics *OTelMetrics) Option {
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

// NewManager 创建准入管理器
func NewManager(config Config, opts ...Option) (*Manager, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	m := &Manager{
		config:    config,
		resources: make(map[string]*resourceLimiter),
		params:    make(map[string]*paramGuard),
		logger:    logger.GetLogger("springcloud"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	ctx := context.Background()
	m.eventBus = NewEventBus(config.EventBusBuffer, m.logger)

	// If not enabled, every call is admitted
	if !config.Enabled {
		m.logger.DebugCtx(ctx, "⏭️  limiter disabled, all calls admitted")
		return m, nil
	}

	if m.store == nil {
		switch StoreType(config.StoreType) {
		case StoreTypeMemory:
			m.store = NewMemoryStore()
			m.ownsStore = true
			m.logger.DebugCtx(ctx, "✅ limiter using in-memory store")
		case StoreTypeRedis:
			if m.redis == nil {
				m.eventBus.Close()
				return nil, errors.New("redis client is required for redis store")
			}
			m.store = NewRedisStore(m.redis, config.Redis.KeyPrefix)
			m.logger.DebugCtx(ctx, "✅ limiter using redis store",
				zap.String("key_prefix", config.Redis.KeyPrefix))
		}
	}

	for resource, rule := range config.Params {
		guard, err := newParamGuard(resource, rule, config.HotKeyCacheSize)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.params[resource] = guard
	}

	m.logger.DebugCtx(ctx, "🎯 limiter manager initialized",
		zap.String("store_type", config.StoreType),
		zap.Int("flow_rules", len(config.Resources)),
		zap.Int("param_rules", len(config.Params)))

	return m, nil
}

// IsEnabled 是否启用
func (m *Manager) IsEnabled() bool {
	return m.config.Enabled
}

// GetEventBus 获取事件总线
func (m *Manager) GetEventBus() EventBus {
	return m.eventBus
}

// Admit checks the flow rule, then the param rule, of resource.
// Rejections wrap ErrRateLimited or ErrHotKeyBlocked. A store failure admits the call.
func (m *Manager) Admit(ctx context.Context, resource string, args ...any) error {
	if !m.config.Enabled {
		return nil
	}

	rl := m.limiter(resource)
	if !rl.guarded() {
		return nil
	}

	var remaining int64
	if rl.hasFlow {
		resp, err := take(ctx, m.store, resource, 1, rl.flow, m.now())
		switch {
		case err != nil:
			m.logger.WarnCtx(ctx, "⚠️  [Limiter] store unavailable, call admitted",
				zap.String("resource", resource),
				zap.Error(err))
		case !resp.Allowed:
			m.onRejected(ctx, rl, resp)
			return fmt.Errorf("%w: %s, retry after %s", ErrRateLimited, resource, resp.RetryAfter)
		default:
			remaining = resp.Remaining
		}
	}

	if rl.params != nil {
		if allowed, value, _ := rl.params.allow(m.now(), args); !allowed {
			m.onHotKeyBlocked(ctx, rl, value)
			return fmt.Errorf("%w: %s[%d]=%s", ErrHotKeyBlocked, resource, rl.params.rule.Index, value)
		}
	}

	m.onAllowed(ctx, rl, remaining)
	return nil
}

// Allow check if the request is permitted by the flow rule
func (m *Manager) Allow(ctx context.Context, resource string) (bool, error) {
	return m.AllowN(ctx, resource, 1)
}

// AllowN checks if N tokens are available
func (m *Manager) AllowN(ctx context.Context, resource string, n int64) (bool, error) {
	resp, err := m.take(ctx, resource, n)
	if err != nil || resp == nil {
		return err == nil, err
	}
	return resp.Allowed, nil
}

// take runs the flow rule only. A nil response means no rule applies.
func (m *Manager) take(ctx context.Context, resource string, n int64) (*Response, error) {
	if !m.config.Enabled {
		return nil, nil
	}

	rl := m.limiter(resource)
	if !rl.hasFlow {
		return nil, nil
	}

	resp, err := take(ctx, m.store, resource, n, rl.flow, m.now())
	if err != nil {
		return nil, err
	}

	if resp.Allowed {
		m.onAllowed(ctx, rl, resp.Remaining)
	} else {
		m.onRejected(ctx, rl, resp)
	}
	return resp, nil
}

// Wait 阻塞直到获得令牌或 ctx 结束
func (m *Manager) Wait(ctx context.Context, resource string) error {
	start := time.Now()
	for {
		resp, err := m.take(ctx, resource, 1)
		if err != nil {
			return err
		}
		if resp == nil || resp.Allowed {
			m.publish(&WaitEvent{
				BaseEvent: NewBaseEvent(EventWaitSuccess, resource, ctx),
				Success:   true,
				Waited:    time.Since(start),
			})
			return nil
		}

		timer := time.NewTimer(resp.RetryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.publish(&WaitEvent{
				BaseEvent: NewBaseEvent(EventWaitTimeout, resource, ctx),
				Waited:    time.Since(start),
			})
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// GetMetrics 获取资源指标快照，未配置规则的资源返回 nil
func (m *Manager) GetMetrics(resource string) *MetricsSnapshot {
	m.mu.RLock()
	rl, ok := m.resources[resource]
	m.mu.RUnlock()

	if !ok || !rl.guarded() {
		return nil
	}

	snapshot := rl.stats.GetSnapshot()
	if rl.params != nil {
		snapshot.HotKeyValues = rl.params.size()
	}
	return snapshot
}

// Reset 清空资源的令牌桶、热点缓存和计数
func (m *Manager) Reset(ctx context.Context, resource string) error {
	if !m.config.Enabled {
		return nil
	}

	rl := m.limiter(resource)
	if rl.hasFlow {
		if err := m.store.Reset(ctx, resource); err != nil {
			return fmt.Errorf("reset %s: %w", resource, err)
		}
	}
	if rl.params != nil {
		rl.params.reset()
	}
	rl.stats.Reset()
	return nil
}

// Shutdown 实现 do.ShutdownerWithError
func (m *Manager) Shutdown() error {
	return m.Close()
}

// Close 关闭事件总线和自有存储
func (m *Manager) Close() error {
	m.eventBus.Close()

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.metrics != nil {
		for resource := range m.resources {
			m.metrics.UnregisterTokenCallback(resource)
		}
	}

	if m.ownsStore && m.store != nil {
		return m.store.Close()
	}
	return nil
}

// limiter 获取或创建资源规则（双重检查）
func (m *Manager) limiter(resource string) *resourceLimiter {
	m.mu.RLock()
	rl, ok := m.resources[resource]
	m.mu.RUnlock()
	if ok {
		return rl
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if rl, ok := m.resources[resource]; ok {
		return rl
	}

	flow, hasFlow := m.config.FlowRuleFor(resource)
	rl = &resourceLimiter{
		resource: resource,
		flow:     flow,
		hasFlow:  hasFlow,
		params:   m.paramGuard(resource),
		stats:    newMetricsCollector(resource),
	}
	m.resources[resource] = rl

	if hasFlow && m.metrics != nil {
		m.metrics.RegisterTokenCallback(resource, rl.stats.Remaining)
	}

	if rl.guarded() {
		m.logger.DebugCtx(context.Background(), "🎯 limiter rules bound",
			zap.String("resource", resource),
			zap.Bool("flow", hasFlow),
			zap.Int64("rate", flow.Rate),
			zap.Int64("capacity", flow.Capacity),
			zap.Bool("hot_key", rl.params != nil))
	}
	return rl
}

func (m *Manager) paramGuard(resource string) *paramGuard {
	if guard, ok := m.params[resource]; ok {
		return guard
	}
	return m.params[ConfigKey(resource)]
}

func (m *Manager) onAllowed(ctx context.Context, rl *resourceLimiter, remaining int64) {
	rl.stats.RecordAllowed(remaining)
	if m.metrics != nil {
		m.metrics.RecordAllowed(ctx, rl.resource)
	}
	m.publish(&AllowedEvent{
		BaseEvent: NewBaseEvent(EventAllowed, rl.resource, ctx),
		Remaining: remaining,
		Limit:     rl.flow.Capacity,
	})
}

func (m *Manager) onRejected(ctx context.Context, rl *resourceLimiter, resp *Response) {
	rl.stats.RecordRejected(resp.Remaining)
	if m.metrics != nil {
		m.metrics.RecordRejected(ctx, rl.resource, ReasonFlow)
	}

	m.logger.DebugCtx(ctx, "🚫 [Limiter] flow rule rejected call",
		zap.String("resource", rl.resource),
		zap.Duration("retry_after", resp.RetryAfter))

	m.publish(&RejectedEvent{
		BaseEvent:  NewBaseEvent(EventRejected, rl.resource, ctx),
		RetryAfter: resp.RetryAfter,
		Reason:     "limit exceeded",
	})
}

func (m *Manager) onHotKeyBlocked(ctx context.Context, rl *resourceLimiter, value string) {
	rl.stats.RecordHotKeyBlocked()
	if m.metrics != nil {
		m.metrics.RecordRejected(ctx, rl.resource, ReasonHotKey)
	}

	m.logger.DebugCtx(ctx, "🔥 [Limiter] hot key blocked",
		zap.String("resource", rl.resource),
		zap.Int("index", rl.params.rule.Index),
		zap.String("value", value))

	m.publish(&HotKeyBlockedEvent{
		BaseEvent: NewBaseEvent(EventHotKeyBlocked, rl.resource, ctx),
		Index:     rl.params.rule.Index,
		Value:     value,
	})
}

func (m *Manager) publish(event Event) {
	if m.eventBus != nil {
		m.eventBus.Publish(event)
	}
}

var _ Limiter = (*Manager)(nil)
