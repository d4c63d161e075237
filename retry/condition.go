package retry

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// RetryCondition 重试条件
type RetryCondition interface {
	// ShouldRetry 判断第 attempt 次（从 1 开始）失败后是否继续重试
	ShouldRetry(err error, attempt int) bool
}

// ConditionFunc 函数式重试条件
type ConditionFunc func(err error, attempt int) bool

// ShouldRetry 实现 RetryCondition
func (f ConditionFunc) ShouldRetry(err error, attempt int) bool {
	return f(err, attempt)
}

// AlwaysRetry 所有错误都重试
func AlwaysRetry() RetryCondition {
	return ConditionFunc(func(err error, _ int) bool {
		return err != nil
	})
}

// NeverRetry 从不重试
func NeverRetry() RetryCondition {
	return ConditionFunc(func(error, int) bool {
		return false
	})
}

// RetryOnErrors 错误链中包含任一 target 时重试（errors.Is）
func RetryOnErrors(targets ...error) RetryCondition {
	return ConditionFunc(func(err error, _ int) bool {
		if err == nil {
			return false
		}
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	})
}

// RetryOnCondition 自定义判断
func RetryOnCondition(fn func(error) bool) RetryCondition {
	return ConditionFunc(func(err error, _ int) bool {
		return err != nil && fn(err)
	})
}

// HTTPError 携带 HTTP 状态码的错误
type HTTPError interface {
	error
	StatusCode() int
}

// RetryOnHTTPStatus 状态码命中时重试
func RetryOnHTTPStatus(statuses ...int) RetryCondition {
	set := make(map[int]struct{}, len(statuses))
	for _, status := range statuses {
		set[status] = struct{}{}
	}

	return ConditionFunc(func(err error, _ int) bool {
		var httpErr HTTPError
		if !errors.As(err, &httpErr) {
			return false
		}
		_, ok := set[httpErr.StatusCode()]
		return ok
	})
}

// RetryOnTemporaryError 网络超时、连接被拒绝/重置、上下文超时时重试
func RetryOnTemporaryError() RetryCondition {
	return ConditionFunc(func(err error, _ int) bool {
		if err == nil {
			return false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return true
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}

		return errors.Is(err, syscall.ECONNREFUSED) ||
			errors.Is(err, syscall.ECONNRESET) ||
			errors.Is(err, syscall.ETIMEDOUT) ||
			errors.Is(err, syscall.EPIPE)
	})
}

// Or 任一条件满足即重试
func Or(conditions ...RetryCondition) RetryCondition {
	return ConditionFunc(func(err error, attempt int) bool {
		for _, cond := range conditions {
			if cond.ShouldRetry(err, attempt) {
				return true
			}
		}
		return false
	})
}

// And 所有条件满足才重试
func And(conditions ...RetryCondition) RetryCondition {
	return ConditionFunc(func(err error, attempt int) bool {
		for _, cond := range conditions {
			if !cond.ShouldRetry(err, attempt) {
				return false
			}
		}
		return true
	})
}

// Not 取反
func Not(condition RetryCondition) RetryCondition {
	return ConditionFunc(func(err error, attempt int) bool {
		return !condition.ShouldRetry(err, attempt)
	})
}
