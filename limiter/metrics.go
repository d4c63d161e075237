package limiter

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsSnapshot 指标快照
type MetricsSnapshot struct {
	Resource      string
	TotalRequests int64
	Allowed       int64
	Rejected      int64 // 流控拒绝
	HotKeyBlocked int64 // 热点参数拒绝
	Remaining     int64 // 最近一次判定后剩余令牌
	RejectRate    float64
	HotKeyValues  int // 热点规则当前缓存的参数值个数
	LastResetAt   time.Time
}

// metricsCollector 资源级计数
type metricsCollector struct {
	resource      string
	totalRequests atomic.Int64
	allowed       atomic.Int64
	rejected      atomic.Int64
	hotKeyBlocked atomic.Int64
	remaining     atomic.Int64
	lastResetAt   time.Time
	mu            sync.RWMutex
}

func newMetricsCollector(resource string) *metricsCollector {
	return &metricsCollector{
		resource:    resource,
		lastResetAt: time.Now(),
	}
}

// RecordAllowed 记录允许的请求
func (m *metricsCollector) RecordAllowed(remaining int64) {
	m.totalRequests.Add(1)
	m.allowed.Add(1)
	m.remaining.Store(remaining)
}

// RecordRejected 记录流控拒绝
func (m *metricsCollector) RecordRejected(remaining int64) {
	m.totalRequests.Add(1)
	m.rejected.Add(1)
	m.remaining.Store(remaining)
}

// RecordHotKeyBlocked 记录热点参数拒绝
func (m *metricsCollector) RecordHotKeyBlocked() {
	m.totalRequests.Add(1)
	m.hotKeyBlocked.Add(1)
}

// Remaining 最近一次的剩余令牌
func (m *metricsCollector) Remaining() int64 {
	return m.remaining.Load()
}

// GetSnapshot 获取指标快照
func (m *metricsCollector) GetSnapshot() *MetricsSnapshot {
	total := m.totalRequests.Load()
	rejected := m.rejected.Load()
	blocked := m.hotKeyBlocked.Load()

	var rejectRate float64
	if total > 0 {
		rejectRate = float64(rejected+blocked) / float64(total)
	}

	m.mu.RLock()
	lastResetAt := m.lastResetAt
	m.mu.RUnlock()

	return &MetricsSnapshot{
		Resource:      m.resource,
		TotalRequests: total,
		Allowed:       m.allowed.Load(),
		Rejected:      rejected,
		HotKeyBlocked: blocked,
		Remaining:     m.remaining.Load(),
		RejectRate:    rejectRate,
		LastResetAt:   lastResetAt,
	}
}

// Reset 重置指标
func (m *metricsCollector) Reset() {
	m.totalRequests.Store(0)
	m.allowed.Store(0)
	m.rejected.Store(0)
	m.hotKeyBlocked.Store(0)
	m.remaining.Store(0)

	m.mu.Lock()
	m.lastResetAt = time.Now()
	m.mu.Unlock()
}
