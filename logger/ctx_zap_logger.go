package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CtxZapLogger Context-Aware 的 Zap Logger 包装器
// module 在创建时绑定，使用时只需传递 ctx。统一通过 GetLogger() 或 Manager.GetLogger() 获取。
type CtxZapLogger struct {
	base   *zap.Logger
	module string
	config *ManagerConfig
}

type traceIDCtxKey struct{}

// WithTraceID stores a trace id on ctx for loggers that have no active span
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDCtxKey{}, traceID)
}

// TraceIDFromContext returns the trace id of the active span, or the one set by WithTraceID
func TraceIDFromContext(ctx context.Context) string {
	return extractTraceIDFromContext(ctx, nil)
}

// InfoCtx 记录 Info 级别日志（自动提取 TraceID）
func (l *CtxZapLogger) InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Info(msg, l.enrichFields(ctx, fields)...)
}

// Info 不需要 context 的便捷方法
func (l *CtxZapLogger) Info(msg string, fields ...zap.Field) {
	l.InfoCtx(context.Background(), msg, fields...)
}

// ErrorCtx 记录 Error 级别日志（自动提取 TraceID + 受控深度堆栈）
func (l *CtxZapLogger) ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	enriched := l.enrichFields(ctx, fields)

	if l.config != nil && stacktraceEnabled(zapcore.ErrorLevel, *l.config) {
		depth := l.config.StacktraceDepth
		if depth <= 0 {
			depth = 10
		}
		// skip=3: runtime.Callers -> CaptureStacktrace -> ErrorCtx -> caller
		if stack := CaptureStacktrace(3, depth); stack != "" {
			enriched = append(enriched, zap.String("stack", stack))
		}
	}

	l.base.Error(msg, enriched...)
}

// Error 不需要 context 的便捷方法
func (l *CtxZapLogger) Error(msg string, fields ...zap.Field) {
	l.ErrorCtx(context.Background(), msg, fields...)
}

// DebugCtx 记录 Debug 级别日志（自动提取 TraceID）
func (l *CtxZapLogger) DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Debug(msg, l.enrichFields(ctx, fields)...)
}

// Debug 不需要 context 的便捷方法
func (l *CtxZapLogger) Debug(msg string, fields ...zap.Field) {
	l.DebugCtx(context.Background(), msg, fields...)
}

// WarnCtx 记录 Warn 级别日志（自动提取 TraceID）
func (l *CtxZapLogger) WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	l.base.Warn(msg, l.enrichFields(ctx, fields)...)
}

// Warn 不需要 context 的便捷方法
func (l *CtxZapLogger) Warn(msg string, fields ...zap.Field) {
	l.WarnCtx(context.Background(), msg, fields...)
}

// With 返回带有预设字段的新 Logger
//
//	callLogger := log.With(zap.String("resource", "order.payment.get"))
//	callLogger.InfoCtx(ctx, "fallback invoked")
func (l *CtxZapLogger) With(fields ...zap.Field) *CtxZapLogger {
	return &CtxZapLogger{
		base:   l.base.With(fields...),
		module: l.module,
		config: l.config,
	}
}

// Module returns the module name bound at creation
func (l *CtxZapLogger) Module() string {
	return l.module
}

// GetZapLogger 获取底层的 *zap.Logger（用于第三方库集成，例如 etcd clientv3.Config.Logger）
func (l *CtxZapLogger) GetZapLogger() *zap.Logger {
	return l.base
}

// enrichFields 自动添加 app_name 和 TraceID（module 字段在 Manager.GetLogger 中已添加）
func (l *CtxZapLogger) enrichFields(ctx context.Context, fields []zap.Field) []zap.Field {
	enriched := make([]zap.Field, 0, len(fields)+2)

	if l.config != nil {
		enriched = append(enriched, zap.String("app_name", l.config.AppName))
	}

	if l.config != nil && l.config.EnableTraceID {
		if traceID := extractTraceIDFromContext(ctx, l.config); traceID != "" {
			fieldName := "trace_id"
			if l.config.TraceIDFieldName != "" {
				fieldName = l.config.TraceIDFieldName
			}
			enriched = append(enriched, zap.String(fieldName, traceID))
		}
	}

	return append(enriched, fields...)
}

// extractTraceIDFromContext 优先级：OpenTelemetry Span > WithTraceID > 配置的 Context Key
func extractTraceIDFromContext(ctx context.Context, cfg *ManagerConfig) string {
	if ctx == nil {
		return ""
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}

	if traceID, ok := ctx.Value(traceIDCtxKey{}).(string); ok {
		return traceID
	}

	if cfg != nil && cfg.TraceIDKey != "" {
		if traceID, ok := ctx.Value(cfg.TraceIDKey).(string); ok {
			return traceID
		}
	}

	return ""
}
