package middleware

import (
	"time"

	"github.com/Taro2021/springcloud/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogConfig HTTP 请求日志配置
type RequestLogConfig struct {
	// SkipPaths 不记录的路径
	SkipPaths []string
	Logger    *logger.CtxZapLogger
}

// DefaultRequestLogConfig 默认配置
func DefaultRequestLogConfig() RequestLogConfig {
	return RequestLogConfig{SkipPaths: []string{}}
}

// RequestLog 结构化请求日志，替代 gin.Logger()
func RequestLog() gin.HandlerFunc {
	return RequestLogWithConfig(DefaultRequestLogConfig())
}

// RequestLogWithConfig 按状态码分级：5xx Error，4xx Warn，其余 Info
func RequestLogWithConfig(cfg RequestLogConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger("springcloud")
	}

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("body_size", c.Writer.Size()),
		}
		if errMsg := c.Errors.ByType(gin.ErrorTypePrivate).String(); errMsg != "" {
			fields = append(fields, zap.String("error", errMsg))
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			log.ErrorCtx(ctx, "HTTP 请求", fields...)
		case status >= 400:
			log.WarnCtx(ctx, "HTTP 请求", fields...)
		default:
			log.InfoCtx(ctx, "HTTP 请求", fields...)
		}
	}
}
