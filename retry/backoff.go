package retry

import (
	"math/rand/v2"
	"time"
)

// BackoffStrategy 第 attempt 次失败后的等待时间，attempt 从 1 开始
type BackoffStrategy interface {
	Next(attempt int) time.Duration
}

// BackoffOption 调整退避参数，非法值被忽略
type BackoffOption func(*backoff)

// WithMultiplier 指数倍数，默认 2
func WithMultiplier(m float64) BackoffOption {
	return func(b *backoff) {
		if m > 0 {
			b.multiplier = m
		}
	}
}

// WithMaxDelay 等待上限，默认 30s
func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *backoff) {
		if d > 0 {
			b.maxDelay = d
		}
	}
}

// WithJitter 抖动比例 [0, 1]，默认 0.2
func WithJitter(ratio float64) BackoffOption {
	return func(b *backoff) {
		if ratio >= 0 && ratio <= 1 {
			b.jitter = ratio
		}
	}
}

// backoff delay = base * multiplier^(attempt-1)，封顶 maxDelay 后叠加抖动
type backoff struct {
	base       time.Duration
	multiplier float64
	maxDelay   time.Duration
	jitter     float64
}

func newBackoff(base time.Duration, multiplier float64, opts []BackoffOption) *backoff {
	b := &backoff{base: base, multiplier: multiplier, maxDelay: 30 * time.Second, jitter: 0.2}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ExponentialBackoff base=1s 时依次为 1s, 2s, 4s, 8s ...
func ExponentialBackoff(base time.Duration, opts ...BackoffOption) BackoffStrategy {
	return newBackoff(base, 2, opts)
}

// ConstantBackoff 固定间隔，WithMultiplier 对其无效
func ConstantBackoff(delay time.Duration, opts ...BackoffOption) BackoffStrategy {
	b := newBackoff(delay, 1, opts)
	b.multiplier = 1
	return b
}

func (b *backoff) Next(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(b.base)
	for i := 1; i < attempt && delay < float64(b.maxDelay); i++ {
		delay *= b.multiplier
	}
	if delay > float64(b.maxDelay) {
		delay = float64(b.maxDelay)
	}

	if b.jitter > 0 {
		delay += (rand.Float64()*2 - 1) * delay * b.jitter
	}
	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}

type noBackoff struct{}

// NoBackoff 立即重试
func NoBackoff() BackoffStrategy { return noBackoff{} }

func (noBackoff) Next(int) time.Duration { return 0 }
