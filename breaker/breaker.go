// Package breaker 提供降级调度（fallback dispatch）与熔断器
//
// 设计理念：
//   - primary 与 fallback 作为一等函数值显式绑定（Command），启动时固定
//   - 调用在独立的协程池中执行，超时即放弃
//   - 事件驱动，应用层可订阅状态变化与调用结果
//   - 指标开放，可接入 OpenTelemetry
package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCircuitOpen 熔断器打开，primary 未被调用
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrNilFallback 构建 Command 时未提供 fallback
	ErrNilFallback = errors.New("fallback must not be nil")

	// ErrNilPrimary 构建 Command 时未提供 primary
	ErrNilPrimary = errors.New("primary must not be nil")

	// ErrPoolSaturated 隔离协程池已满
	ErrPoolSaturated = errors.New("isolation pool saturated")

	// ErrPrimaryPanic primary 发生 panic
	ErrPrimaryPanic = errors.New("primary panicked")

	// ErrTimeout primary 未在超时时间内返回
	ErrTimeout = errors.New("primary call timed out")
)

// Primary 受保护的远程调用
type Primary[A, R any] func(ctx context.Context, args A) (R, error)

// Fallback 降级函数，参数与 primary 一致，另外携带失败详情
type Fallback[A, R any] func(ctx context.Context, args A, failure *Failure) (R, error)

// Admission 准入检查（限流、热点参数），在 primary 之前执行
type Admission interface {
	Admit(ctx context.Context, resource string, params ...any) error
}

// ParamSource 参数类型实现该接口后，其返回值作为热点参数交给 Admission
type ParamSource interface {
	HotParams() []any
}

// FailureKind 失败类型
type FailureKind int

const (
	// FailureTimeout primary 超时
	FailureTimeout FailureKind = iota + 1

	// FailureException primary 返回错误、panic 或协程池拒绝
	FailureException

	// FailureBreakerOpen 熔断器打开被短路
	FailureBreakerOpen

	// FailureRateLimited 被流控规则拒绝
	FailureRateLimited

	// FailureHotKeyBlocked 被热点参数规则拒绝
	FailureHotKeyBlocked
)

// String 返回失败类型名称
func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "Timeout"
	case FailureException:
		return "Exception"
	case FailureBreakerOpen:
		return "BreakerOpen"
	case FailureRateLimited:
		return "RateLimited"
	case FailureHotKeyBlocked:
		return "HotKeyBlocked"
	default:
		return "Unknown"
	}
}

// Rejected reports whether the primary was never attempted
func (k FailureKind) Rejected() bool {
	return k == FailureBreakerOpen || k == FailureRateLimited || k == FailureHotKeyBlocked
}

// Failure 失败详情，fallback 通过它得知失败原因
type Failure struct {
	Kind     FailureKind
	Resource string
	Cause    error
}

func (f *Failure) Error() string {
	if f.Cause == nil {
		return fmt.Sprintf("%s: %s", f.Resource, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Resource, f.Kind, f.Cause)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// FallbackError fallback 本身失败（配置缺陷），没有第二级降级
type FallbackError struct {
	Resource string
	Failure  *Failure
	Err      error
}

func (e *FallbackError) Error() string {
	return fmt.Sprintf("fallback for %s failed: %v (after %v)", e.Resource, e.Err, e.Failure)
}

// Unwrap exposes both the fallback error and the original failure
func (e *FallbackError) Unwrap() []error {
	return []error{e.Err, e.Failure}
}

// Outcome 一次调用的结果
type Outcome[R any] struct {
	Value        R
	FromFallback bool
	Failure      *Failure // primary 成功时为 nil
	Duration     time.Duration
}

// State 熔断器状态
type State int

const (
	// StateClosed 关闭（正常）
	StateClosed State = iota

	// StateOpen 打开（熔断）
	StateOpen

	// StateHalfOpen 半开（一次试探调用）
	StateHalfOpen
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}
