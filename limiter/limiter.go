// Package limiter provides the admission policy that runs before a guarded call
//
// Two kinds of rules are supported:
// - Flow rules: a token bucket per resource, kept in a Store (memory or Redis)
// - Param rules: per-value limiters for a hot argument of the call
//
// Manager.Admit returns ErrRateLimited or ErrHotKeyBlocked when a call is refused.
// A disabled or unconfigured limiter admits everything.
package limiter

import (
	"context"
	"time"
)

// Limiter core interface
type Limiter interface {
	// Admit checks flow rules, then param rules, for one call
	Admit(ctx context.Context, resource string, args ...any) error

	// Allow check if the request is permitted by the flow rule
	Allow(ctx context.Context, resource string) (bool, error)

	// AllowN checks if N requests are permitted
	AllowN(ctx context.Context, resource string, n int64) (bool, error)

	// Wait blocks until a token is available or ctx is done
	Wait(ctx context.Context, resource string) error

	// GetMetrics获取指标快照
	GetMetrics(resource string) *MetricsSnapshot

	// GetEventBus Obtain the event bus (for subscribing to events)
	GetEventBus() EventBus

	// Reset rate limiter state
	Reset(ctx context.Context, resource string) error

	// Close the rate limiter (clean up resources)
	Close() error

	// Check if the rate limiter is enabled
	IsEnabled() bool
}

// Response 令牌桶判定结果
type Response struct {
	// Allowed 是否允许
	Allowed bool

	// RetryAfter suggests retry time (valid when Allowed=false)
	RetryAfter time.Duration

	// Remaining tokens after this request
	Remaining int64

	// Limit bucket capacity
	Limit int64
}
