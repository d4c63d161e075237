package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Taro2021/springcloud/limiter"
	"go.uber.org/zap"
)

// Invoke 执行 primary，任何失败（超时、异常、熔断、限流、热点参数）都交给 fallback
//
// fallback 成功时返回其结果（Outcome.FromFallback=true，error 为 nil）；
// fallback 自身失败时返回 *FallbackError。
func Invoke[A, R any](ctx context.Context, m *Manager, resource string, primary Primary[A, R], fallback Fallback[A, R], args A) (Outcome[R], error) {
	if primary == nil {
		return Outcome[R]{}, ErrNilPrimary
	}
	if fallback == nil {
		return Outcome[R]{}, ErrNilFallback
	}
	return dispatch(ctx, m, resource, primary, fallback, nil, args, paramsOf(args))
}

// dispatch 执行一次受保护调用。handles 为 nil 时所有失败都交给 fallback
func dispatch[A, R any](ctx context.Context, m *Manager, resource string, primary Primary[A, R], fallback Fallback[A, R], handles kindSet, args A, params []any) (Outcome[R], error) {
	start := time.Now()
	c := m.circuit(resource)

	// 1. 准入检查，拒绝不计入熔断窗口
	if m.admission != nil {
		if err := m.admission.Admit(ctx, resource, params...); err != nil {
			failure := &Failure{Kind: admissionKind(err), Resource: resource, Cause: err}
			c.recordRejection(ctx, failure)
			return serveFailure(ctx, m, c, fallback, handles, args, failure, start)
		}
	}

	// 2. 熔断闸门
	trial, failure := c.permit(ctx)
	if failure != nil {
		c.recordRejection(ctx, failure)
		return serveFailure(ctx, m, c, fallback, handles, args, failure, start)
	}

	// 3. 隔离执行 primary
	value, failure, duration := runPrimary(ctx, m, resource, c.policy.Timeout, primary, args)
	if failure == nil {
		c.recordSuccess(ctx, duration, trial)
		return Outcome[R]{Value: value, Duration: time.Since(start)}, nil
	}

	m.logger.DebugCtx(ctx, "❌ [Breaker] primary failed",
		zap.String("resource", resource),
		zap.String("kind", failure.Kind.String()),
		zap.Duration("duration", duration),
		zap.Error(failure.Cause))

	// 4. 记录窗口并评估状态
	c.recordFailure(ctx, failure, duration, trial)

	// 5. 降级
	return serveFailure(ctx, m, c, fallback, handles, args, failure, start)
}

type primaryResult[R any] struct {
	value R
	err   error
}

// runPrimary runs primary on the isolation pool and waits at most timeout.
// A worker still running at the deadline is abandoned; its ctx is cancelled.
func runPrimary[A, R any](ctx context.Context, m *Manager, resource string, timeout time.Duration, primary Primary[A, R], args A) (R, *Failure, time.Duration) {
	var zero R

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan primaryResult[R], 1)
	start := time.Now()

	err := m.pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				done <- primaryResult[R]{err: fmt.Errorf("%w: %v", ErrPrimaryPanic, r)}
			}
		}()
		v, err := primary(callCtx, args)
		done <- primaryResult[R]{value: v, err: err}
	})
	if err != nil {
		return zero, &Failure{
			Kind:     FailureException,
			Resource: resource,
			Cause:    fmt.Errorf("%w: %w", ErrPoolSaturated, err),
		}, 0
	}

	select {
	case res := <-done:
		duration := time.Since(start)
		if res.err == nil {
			return res.value, nil, duration
		}
		kind := FailureException
		if errors.Is(res.err, context.DeadlineExceeded) && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			kind = FailureTimeout
		}
		return zero, &Failure{Kind: kind, Resource: resource, Cause: res.err}, duration

	case <-callCtx.Done():
		duration := time.Since(start)
		if res, ok := settledAtDeadline(done); ok {
			if res.err == nil {
				return res.value, nil, duration
			}
			return zero, &Failure{Kind: FailureException, Resource: resource, Cause: res.err}, duration
		}
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return zero, &Failure{
				Kind:     FailureTimeout,
				Resource: resource,
				Cause:    fmt.Errorf("%w after %s", ErrTimeout, timeout),
			}, duration
		}
		return zero, &Failure{Kind: FailureException, Resource: resource, Cause: callCtx.Err()}, duration
	}
}

// settledAtDeadline 截止时刻已经完成的调用按实际结果处理，
// 因 ctx 超时而返回的错误仍算作超时
func settledAtDeadline[R any](done <-chan primaryResult[R]) (primaryResult[R], bool) {
	select {
	case res := <-done:
		if errors.Is(res.err, context.DeadlineExceeded) {
			return res, false
		}
		return res, true
	default:
		return primaryResult[R]{}, false
	}
}

// kindSet 绑定到 fallback 的失败类型
type kindSet map[FailureKind]struct{}

func (s kindSet) has(k FailureKind) bool {
	if s == nil {
		return true
	}
	_, ok := s[k]
	return ok
}

// serveFailure 未绑定的失败类型不走 fallback，原样返回 *Failure
func serveFailure[A, R any](ctx context.Context, m *Manager, c *circuit, fallback Fallback[A, R], handles kindSet, args A, failure *Failure, start time.Time) (Outcome[R], error) {
	if !handles.has(failure.Kind) {
		m.logger.DebugCtx(ctx, "[Breaker] failure not bound to fallback",
			zap.String("resource", c.resource),
			zap.String("kind", failure.Kind.String()))
		return Outcome[R]{Failure: failure, Duration: time.Since(start)}, failure
	}
	return runFallback(ctx, m, c, fallback, args, failure, start)
}

func runFallback[A, R any](ctx context.Context, m *Manager, c *circuit, fallback Fallback[A, R], args A, failure *Failure, start time.Time) (Outcome[R], error) {
	fallbackStart := time.Now()
	value, err := safeFallback(ctx, fallback, args, failure)
	c.recordFallback(ctx, failure, err, time.Since(fallbackStart))

	outcome := Outcome[R]{
		Value:        value,
		FromFallback: true,
		Failure:      failure,
		Duration:     time.Since(start),
	}
	if err != nil {
		m.logger.ErrorCtx(ctx, "❌ [Breaker] fallback failed",
			zap.String("resource", c.resource),
			zap.String("kind", failure.Kind.String()),
			zap.NamedError("failure", failure),
			zap.Error(err))
		return outcome, &FallbackError{Resource: c.resource, Failure: failure, Err: err}
	}

	m.logger.DebugCtx(ctx, "🛟 [Breaker] fallback served",
		zap.String("resource", c.resource),
		zap.String("kind", failure.Kind.String()))
	return outcome, nil
}

func safeFallback[A, R any](ctx context.Context, fallback Fallback[A, R], args A, failure *Failure) (value R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fallback panicked: %v", r)
		}
	}()
	return fallback(ctx, args, failure)
}

func admissionKind(err error) FailureKind {
	if errors.Is(err, limiter.ErrHotKeyBlocked) {
		return FailureHotKeyBlocked
	}
	return FailureRateLimited
}

// paramsOf turns args into the parameter list seen by Admission
func paramsOf(args any) []any {
	switch v := args.(type) {
	case nil:
		return nil
	case ParamSource:
		return v.HotParams()
	case []any:
		return v
	default:
		return []any{v}
	}
}

// Command 启动时固定的 primary/fallback 绑定
type Command[A, R any] struct {
	manager  *Manager
	resource string
	primary  Primary[A, R]
	fallback Fallback[A, R]
	params   func(A) []any
	handles  kindSet
}

// NewCommand 创建 Command，fallback 不能为空
func NewCommand[A, R any](m *Manager, resource string, primary Primary[A, R], fallback Fallback[A, R]) (*Command[A, R], error) {
	if m == nil {
		return nil, errors.New("breaker manager must not be nil")
	}
	if resource == "" {
		return nil, errors.New("resource must not be empty")
	}
	if primary == nil {
		return nil, ErrNilPrimary
	}
	if fallback == nil {
		return nil, fmt.Errorf("command %s: %w", resource, ErrNilFallback)
	}
	return &Command[A, R]{
		manager:  m,
		resource: resource,
		primary:  primary,
		fallback: fallback,
	}, nil
}

// MustCommand 同 NewCommand，失败时 panic（用于启动期静态绑定）
func MustCommand[A, R any](m *Manager, resource string, primary Primary[A, R], fallback Fallback[A, R]) *Command[A, R] {
	cmd, err := NewCommand(m, resource, primary, fallback)
	if err != nil {
		panic(err)
	}
	return cmd
}

// WithParams 指定热点参数的提取方式
func (c *Command[A, R]) WithParams(fn func(A) []any) *Command[A, R] {
	c.params = fn
	return c
}

// WithFallbackOn 只有这些失败类型交给 fallback（Sentinel blockHandler 式绑定），
// 其余失败以 *Failure 原样返回，不记录降级
func (c *Command[A, R]) WithFallbackOn(kinds ...FailureKind) *Command[A, R] {
	c.handles = make(kindSet, len(kinds))
	for _, k := range kinds {
		c.handles[k] = struct{}{}
	}
	return c
}

// Resource 资源名
func (c *Command[A, R]) Resource() string {
	return c.resource
}

// Invoke 执行并返回完整结果
func (c *Command[A, R]) Invoke(ctx context.Context, args A) (Outcome[R], error) {
	params := paramsOf(args)
	if c.params != nil {
		params = c.params(args)
	}
	return dispatch(ctx, c.manager, c.resource, c.primary, c.fallback, c.handles, args, params)
}

// Execute 执行并只返回结果值
func (c *Command[A, R]) Execute(ctx context.Context, args A) (R, error) {
	outcome, err := c.Invoke(ctx, args)
	return outcome.Value, err
}
