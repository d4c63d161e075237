package retry

import (
	"context"
	"errors"
	"time"
)

// Do 执行操作，失败时按配置重试，返回最后一次错误
func Do(ctx context.Context, operation func(ctx context.Context) error, opts ...Option) error {
	_, err := DoWithData(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	}, opts...)
	return err
}

// DoWithData 执行带返回值的操作，失败时按配置重试
func DoWithData[T any](ctx context.Context, operation func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	cfg := newSettings(opts)

	var (
		result T
		errs   []error
	)

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		var err error
		if cfg.timeout > 0 {
			opCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
			result, err = operation(opCtx)
			cancel()
		} else {
			result, err = operation(ctx)
		}
		if err == nil {
			return result, nil
		}

		errs = append(errs, err)
		if attempt == cfg.maxAttempts || !cfg.condition.ShouldRetry(err, attempt) {
			return result, &MultiError{Errors: errs, Attempts: attempt}
		}

		if cfg.onRetry != nil {
			cfg.onRetry(attempt, err)
		}

		// 剩余时间不足以等待退避时直接放弃
		backoff := cfg.backoff.Next(attempt)
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < backoff {
			return result, &MultiError{Errors: append(errs, context.DeadlineExceeded), Attempts: attempt}
		}

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		}
	}

	return result, &MultiError{Errors: errs, Attempts: cfg.maxAttempts}
}

// Attempts 返回失败前的尝试次数
func Attempts(err error) int {
	var multiErr *MultiError
	if errors.As(err, &multiErr) {
		return multiErr.Attempts
	}
	return 0
}
