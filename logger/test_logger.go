package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger 测试专用 Logger，日志记录到内存，方便在单元测试中断言
// 用法：
//
//	log := logger.NewTestLogger("breaker")
//	mgr, _ := breaker.NewManagerWithLogger(cfg, log.CtxZapLogger)
//	assert.True(t, log.HasLog(zapcore.ErrorLevel, "fallback failed"))
type TestLogger struct {
	*CtxZapLogger
	logs *observer.ObservedLogs
}

// NewTestLogger 创建记录全部级别（含 Debug）的测试 Logger
func NewTestLogger(module string) *TestLogger {
	core, logs := observer.New(zapcore.DebugLevel)
	cfg := DefaultManagerConfig()
	cfg.EnableStacktrace = false

	return &TestLogger{
		CtxZapLogger: &CtxZapLogger{
			base:   zap.New(core).With(zap.String("module", module)),
			module: module,
			config: &cfg,
		},
		logs: logs,
	}
}

// HasLog 检查是否存在指定级别和消息的日志
func (t *TestLogger) HasLog(level zapcore.Level, message string) bool {
	return t.CountMessage(level, message) > 0
}

// CountMessage 统计指定级别和消息的日志数量
func (t *TestLogger) CountMessage(level zapcore.Level, message string) int {
	count := 0
	for _, entry := range t.logs.FilterMessage(message).All() {
		if entry.Level == level {
			count++
		}
	}
	return count
}

// CountLogs 统计指定级别的日志数量
func (t *TestLogger) CountLogs(level zapcore.Level) int {
	return t.logs.FilterLevelExact(level).Len()
}

// Field returns the first value of key on the first entry with message
func (t *TestLogger) Field(message, key string) (interface{}, bool) {
	entries := t.logs.FilterMessage(message).All()
	if len(entries) == 0 {
		return nil, false
	}
	val, ok := entries[0].ContextMap()[key]
	return val, ok
}

// Entries returns every recorded entry
func (t *TestLogger) Entries() []observer.LoggedEntry {
	return t.logs.All()
}

// Clear 清空日志（用于测试隔离）
func (t *TestLogger) Clear() {
	t.logs.TakeAll()
}
