package httpx

import (
	"context"

	"github.com/Taro2021/springcloud/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const errorLoggingConfigKey = "httpx:error_logging_config"

// errorLoggingConfigInternal 预处理后的配置
type errorLoggingConfigInternal struct {
	Enable          bool
	IgnoreStatusMap map[int]bool
	FullErrorChain  bool
	LogLevel        string
	logger          *logger.CtxZapLogger
}

// ErrorLoggingMiddleware 注入错误日志配置到 Context
// 使用此中间件后，HandleError 将根据配置决定是否记录日志；log 为 nil 时使用 httpx 模块日志
func ErrorLoggingMiddleware(cfg ErrorLoggingConfig, log *logger.CtxZapLogger) gin.HandlerFunc {
	if log == nil {
		log = logger.GetLogger("httpx")
	}
	ignoreStatusMap := make(map[int]bool, len(cfg.IgnoreHTTPStatus))
	for _, status := range cfg.IgnoreHTTPStatus {
		ignoreStatusMap[status] = true
	}

	internalCfg := errorLoggingConfigInternal{
		Enable:          cfg.Enable,
		IgnoreStatusMap: ignoreStatusMap,
		FullErrorChain:  cfg.FullErrorChain,
		LogLevel:        cfg.LogLevel,
		logger:          log,
	}

	return func(c *gin.Context) {
		c.Set(errorLoggingConfigKey, internalCfg)
		c.Next()
	}
}

// getErrorLoggingConfig 从 Context 读取配置，缺省不记录
func getErrorLoggingConfig(c *gin.Context) errorLoggingConfigInternal {
	if val, exists := c.Get(errorLoggingConfigKey); exists {
		if cfg, ok := val.(errorLoggingConfigInternal); ok {
			return cfg
		}
	}

	return errorLoggingConfigInternal{
		IgnoreStatusMap: map[int]bool{},
		FullErrorChain:  true,
		LogLevel:        "error",
		logger:          logger.GetLogger("httpx"),
	}
}

func (cfg errorLoggingConfigInternal) logAt(ctx context.Context, msg string, fields ...zap.Field) {
	switch cfg.LogLevel {
	case "warn":
		cfg.logger.WarnCtx(ctx, msg, fields...)
	case "info":
		cfg.logger.InfoCtx(ctx, msg, fields...)
	default:
		cfg.logger.ErrorCtx(ctx, msg, fields...)
	}
}
