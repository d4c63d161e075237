package limiter

import (
	"context"
	"fmt"
	"time"
)

// take 对 resource 的桶取 n 个令牌，n <= 0 视为 1
func take(ctx context.Context, store Store, resource string, n int64, rule FlowRule, now time.Time) (*Response, error) {
	if n <= 0 {
		n = 1
	}

	allowed, tokens, err := store.Take(ctx, resource, rule, n, now)
	if err != nil {
		return nil, fmt.Errorf("token bucket %s: %w", resource, err)
	}

	resp := &Response{
		Allowed:   allowed,
		Remaining: tokens,
		Limit:     rule.Capacity,
	}
	if !allowed {
		resp.RetryAfter = time.Duration((n-tokens)*1000/rule.Rate) * time.Millisecond
		if resp.RetryAfter <= 0 {
			resp.RetryAfter = time.Millisecond
		}
	}
	return resp, nil
}

// refill adds the tokens earned since last (milliseconds).
// The refill mark only advances by the time actually converted into tokens.
func refill(tokens, last, now int64, rule FlowRule) (int64, int64) {
	if now <= last {
		return tokens, last
	}
	added := (now - last) * rule.Rate / 1000
	if added <= 0 {
		return tokens, last
	}
	tokens += added
	if tokens >= rule.Capacity {
		return rule.Capacity, now
	}
	return tokens, last + added*1000/rule.Rate
}

// bucketTTL 空闲桶的过期时间：满桶所需时间的两倍，至少 1 秒
func bucketTTL(rule FlowRule) time.Duration {
	ttl := time.Duration(rule.Capacity*2000/rule.Rate) * time.Millisecond
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
