package retry

import "time"

// settings Do 的运行参数
type settings struct {
	maxAttempts int
	backoff     BackoffStrategy
	condition   RetryCondition
	onRetry     func(attempt int, err error)
	timeout     time.Duration // 单次尝试超时，0 不限制
}

// Option 重试选项
type Option func(*settings)

// newSettings 默认 3 次，1s 起步指数退避，任何错误都重试
func newSettings(opts []Option) *settings {
	s := &settings{
		maxAttempts: 3,
		backoff:     ExponentialBackoff(time.Second),
		condition:   AlwaysRetry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxAttempts 含首次调用在内的最大尝试次数
func MaxAttempts(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func Backoff(b BackoffStrategy) Option {
	return func(s *settings) {
		if b != nil {
			s.backoff = b
		}
	}
}

func Condition(cond RetryCondition) Option {
	return func(s *settings) {
		if cond != nil {
			s.condition = cond
		}
	}
}

// OnRetry 每次决定重试后、等待前回调
func OnRetry(f func(attempt int, err error)) Option {
	return func(s *settings) {
		s.onRetry = f
	}
}

// Timeout 单次尝试超时
func Timeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.timeout = d
		}
	}
}
