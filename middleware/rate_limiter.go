package middleware

import (
	"github.com/Taro2021/springcloud/httpx"
	"github.com/Taro2021/springcloud/limiter"
	"github.com/gin-gonic/gin"
)

// RateLimiterConfig 限流中间件配置
type RateLimiterConfig struct {
	// Limiter 限流器（必需）
	Limiter limiter.Limiter

	// KeyFunc 资源名（默认：路由模式，如 /test1）
	KeyFunc func(*gin.Context) string

	// ParamsFunc 热点参数（默认无参数）
	ParamsFunc func(*gin.Context) []any

	// BlockHandler 被拦截时的响应（默认 httpx.HandleError：429 + 4444）
	BlockHandler func(*gin.Context, error)

	// SkipPaths 跳过限流的路径
	SkipPaths []string
}

// RateLimiter 按路由限流，资源名即路由模式
func RateLimiter(l limiter.Limiter) gin.HandlerFunc {
	return RateLimiterWithConfig(RateLimiterConfig{Limiter: l})
}

// RateLimiterWithConfig 创建自定义配置的限流中间件
func RateLimiterWithConfig(cfg RateLimiterConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		panic("RateLimiterConfig.Limiter cannot be nil")
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = RouteKey
	}
	if cfg.BlockHandler == nil {
		cfg.BlockHandler = httpx.HandleError
	}

	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = true
	}

	return func(c *gin.Context) {
		if !cfg.Limiter.IsEnabled() || skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		var params []any
		if cfg.ParamsFunc != nil {
			params = cfg.ParamsFunc(c)
		}

		if err := cfg.Limiter.Admit(c.Request.Context(), cfg.KeyFunc(c), params...); err != nil {
			cfg.BlockHandler(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Resource 固定资源名的限流，对应 @SentinelResource(value = ...)
func Resource(l limiter.Limiter, resource string, block func(*gin.Context, error)) gin.HandlerFunc {
	return RateLimiterWithConfig(RateLimiterConfig{
		Limiter:      l,
		KeyFunc:      func(*gin.Context) string { return resource },
		BlockHandler: block,
	})
}

// RouteKey 路由模式作为资源名，未匹配时使用原始路径
func RouteKey(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// QueryParams 按顺序取查询参数，缺失的参数为 nil（热点规则放行）
func QueryParams(names ...string) func(*gin.Context) []any {
	return func(c *gin.Context) []any {
		params := make([]any, len(names))
		for i, name := range names {
			if v, ok := c.GetQuery(name); ok {
				params[i] = v
			}
		}
		return params
	}
}
