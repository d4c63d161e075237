// Package httpx provides the CommonResult envelope and error mapping for gin handlers
package httpx

import (
	"errors"
	"net/http"

	"github.com/Taro2021/springcloud/breaker"
	"github.com/Taro2021/springcloud/errcode"
	"github.com/Taro2021/springcloud/governance"
	"github.com/Taro2021/springcloud/limiter"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BlockedMessage 限流拦截的默认提示
const BlockedMessage = "Blocked by Sentinel (flow limiting)"

// ErrNoInstanceMessage 没有可用实例时的提示
const ErrNoInstanceMessage = "服务不可用: 没有可用实例"

// CommonResult unified response envelope
type CommonResult struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// NewResult builds a CommonResult
func NewResult(code int, message string, data interface{}) CommonResult {
	return CommonResult{Code: code, Message: message, Data: data}
}

// Result writes a CommonResult with HTTP 200; the business outcome lives in Code
func Result(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(http.StatusOK, NewResult(code, message, data))
}

// OK writes a 200 CommonResult
func OK(c *gin.Context, message string, data interface{}) {
	Result(c, errcode.ResultOK, message, data)
}

// Fail writes a 444 CommonResult without data
func Fail(c *gin.Context, message string) {
	Result(c, errcode.ResultFailed, message, nil)
}

// NoRouteHandler 404 route not found handler
func NoRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, NewResult(http.StatusNotFound,
			"路由不存在: "+c.Request.Method+" "+c.Request.URL.Path, nil))
	}
}

// NoMethodHandler 405 method not allowed handler
func NoMethodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, NewResult(http.StatusMethodNotAllowed,
			"方法不允许: "+c.Request.Method+" "+c.Request.URL.Path, nil))
	}
}

// HandleError maps an error to a CommonResult response.
//
//   - *breaker.FallbackError: 500, always logged
//   - *errcode.LayeredError: its HTTP status, result code, message and data
//   - rate limit / hot key rejections: 429 with code 4444
//   - governance.ErrEmptyInstanceSet: 503
//   - anything else: 500 without leaking the cause
func HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	ctx := c.Request.Context()
	cfg := getErrorLoggingConfig(c)

	// 降级失败优先：它同时包裹了原始失败
	var fallbackErr *breaker.FallbackError
	if errors.As(err, &fallbackErr) {
		cfg.logger.ErrorCtx(ctx, "❌ fallback failed",
			zap.String("resource", fallbackErr.Resource),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewResult(errcode.ErrInternal.ResultCode(), errcode.ErrInternal.Message(), nil))
		return
	}

	var layeredErr *errcode.LayeredError
	if errors.As(err, &layeredErr) {
		if shouldLogError(cfg, layeredErr.HTTPStatus()) {
			fields := []zap.Field{
				zap.Int("error_code", layeredErr.Code()),
				zap.String("error_msg", layeredErr.Message()),
			}
			if cfg.FullErrorChain {
				fields = append(fields, zap.String("error_chain", layeredErr.String()), zap.Error(err))
			}
			cfg.logAt(ctx, "业务错误", fields...)
		}

		var data interface{}
		if d := layeredErr.Data(); len(d) > 0 {
			data = d
		}
		c.JSON(layeredErr.HTTPStatus(), NewResult(layeredErr.ResultCode(), layeredErr.Message(), data))
		return
	}

	if errors.Is(err, limiter.ErrRateLimited) || errors.Is(err, limiter.ErrHotKeyBlocked) {
		if shouldLogError(cfg, http.StatusTooManyRequests) {
			cfg.logger.WarnCtx(ctx, "🚫 request blocked", zap.Error(err))
		}
		c.JSON(http.StatusTooManyRequests, NewResult(errcode.ResultBlocked, BlockedMessage, nil))
		return
	}

	if errors.Is(err, governance.ErrEmptyInstanceSet) {
		if shouldLogError(cfg, http.StatusServiceUnavailable) {
			cfg.logger.WarnCtx(ctx, "⚠️  no instance available", zap.Error(err))
		}
		c.JSON(http.StatusServiceUnavailable, NewResult(http.StatusServiceUnavailable, ErrNoInstanceMessage, nil))
		return
	}

	if cfg.Enable {
		cfg.logger.ErrorCtx(ctx, "general error", zap.Error(err))
	}
	c.JSON(http.StatusInternalServerError, NewResult(errcode.ErrInternal.ResultCode(), errcode.ErrInternal.Message(), nil))
}

func shouldLogError(cfg errorLoggingConfigInternal, status int) bool {
	return cfg.Enable && !cfg.IgnoreStatusMap[status]
}
