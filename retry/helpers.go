package retry

import (
	"net/http"
	"time"
)

// HTTPDefaults 调用下游 HTTP 服务时的默认重试：网关类错误和 429 才重试
func HTTPDefaults() []Option {
	return []Option{
		MaxAttempts(3),
		Condition(Or(
			RetryOnHTTPStatus(http.StatusTooManyRequests, http.StatusBadGateway,
				http.StatusServiceUnavailable, http.StatusGatewayTimeout),
			RetryOnTemporaryError(),
		)),
		Backoff(ExponentialBackoff(100*time.Millisecond, WithMaxDelay(2*time.Second))),
	}
}
