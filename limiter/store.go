package limiter

import (
	"context"
	"time"
)

// Store 令牌桶状态存储，Take 需原子地完成补充与扣减
type Store interface {
	// Take 按 rule 补充 bucket 后取 n 个令牌，返回是否放行与剩余令牌
	Take(ctx context.Context, bucket string, rule FlowRule, n int64, now time.Time) (allowed bool, remaining int64, err error)

	// Reset 删除 bucket，下次访问重新按初始令牌建桶
	Reset(ctx context.Context, bucket string) error

	Close() error
}

// StoreType storage type
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)
