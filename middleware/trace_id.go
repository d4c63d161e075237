package middleware

import (
	"github.com/Taro2021/springcloud/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TraceIDKeyDefault gin.Context 中的 TraceID key
	TraceIDKeyDefault = "trace_id"

	// TraceIDHeaderDefault 请求/响应头，与 httpclient 透传的一致
	TraceIDHeaderDefault = "X-Trace-ID"
)

// TraceConfig Trace 中间件配置
type TraceConfig struct {
	TraceIDKey           string
	TraceIDHeader        string
	EnableResponseHeader bool
	Generator            func() string
}

// DefaultTraceConfig 默认配置
func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		TraceIDKey:           TraceIDKeyDefault,
		TraceIDHeader:        TraceIDHeaderDefault,
		EnableResponseHeader: true,
		Generator:            func() string { return uuid.New().String() },
	}
}

// TraceID 提取或生成 TraceID，写入 gin.Context 与 request context。
// 存在有效的 OTel span 时使用 span 的 trace id
func TraceID(cfg TraceConfig) gin.HandlerFunc {
	if cfg.TraceIDKey == "" {
		cfg.TraceIDKey = TraceIDKeyDefault
	}
	if cfg.TraceIDHeader == "" {
		cfg.TraceIDHeader = TraceIDHeaderDefault
	}
	if cfg.Generator == nil {
		cfg.Generator = func() string { return uuid.New().String() }
	}

	return func(c *gin.Context) {
		var traceID string
		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = c.GetHeader(cfg.TraceIDHeader)
			if traceID == "" {
				traceID = cfg.Generator()
			}
			c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))
		}

		c.Set(cfg.TraceIDKey, traceID)
		if cfg.EnableResponseHeader {
			c.Writer.Header().Set(cfg.TraceIDHeader, traceID)
		}

		c.Next()
	}
}

// GetTraceID 从 gin.Context 获取 TraceID
func GetTraceID(c *gin.Context) string {
	return c.GetString(TraceIDKeyDefault)
}
