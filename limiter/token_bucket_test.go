package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefill(t *testing.T) {
	rule := FlowRule{Rate: 10, Capacity: 20}

	tests := []struct {
		name       string
		tokens     int64
		last       int64
		now        int64
		wantTokens int64
		wantLast   int64
	}{
		{"时间未前进", 5, 1000, 1000, 5, 1000},
		{"时钟回拨", 5, 1000, 900, 5, 1000},
		{"不足一个令牌不推进标记", 5, 1000, 1050, 5, 1000},
		{"补充整数个令牌", 5, 1000, 1350, 8, 1300},
		{"补满后标记到当前", 15, 1000, 3000, 20, 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, last := refill(tt.tokens, tt.last, tt.now, rule)
			assert.Equal(t, tt.wantTokens, tokens)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}

// bucketStores 同一组用例分别跑内存和 Redis 存储
func bucketStores(t *testing.T) map[string]Store {
	mem := NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })
	_, redisStore := setupMiniRedis(t)

	return map[string]Store{
		"memory": mem,
		"redis":  redisStore,
	}
}

func TestTokenBucket_Take(t *testing.T) {
	rule := FlowRule{Rate: 1, Capacity: 2}
	base := time.Unix(1_700_000_000, 0)

	for name, store := range bucketStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// 满桶起步：前两次通过
			for i := 0; i < 2; i++ {
				resp, err := take(ctx, store, "test1", 1, rule, base)
				require.NoError(t, err)
				assert.True(t, resp.Allowed, "call %d", i)
				assert.Equal(t, int64(2), resp.Limit)
			}

			resp, err := take(ctx, store, "test1", 1, rule, base)
			require.NoError(t, err)
			assert.False(t, resp.Allowed)
			assert.Equal(t, int64(0), resp.Remaining)
			assert.Equal(t, time.Second, resp.RetryAfter)

			// 1 秒后补充一个令牌
			resp, err = take(ctx, store, "test1", 1, rule, base.Add(time.Second))
			require.NoError(t, err)
			assert.True(t, resp.Allowed)

			resp, err = take(ctx, store, "test1", 1, rule, base.Add(1500*time.Millisecond))
			require.NoError(t, err)
			assert.False(t, resp.Allowed)
		})
	}
}

func TestTokenBucket_InitialTokens(t *testing.T) {
	rule := FlowRule{Rate: 1, Capacity: 5, InitialTokens: 1}
	base := time.Unix(1_700_000_000, 0)

	for name, store := range bucketStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			resp, err := take(ctx, store, "init", 1, rule, base)
			require.NoError(t, err)
			assert.True(t, resp.Allowed)

			resp, err = take(ctx, store, "init", 1, rule, base)
			require.NoError(t, err)
			assert.False(t, resp.Allowed)
		})
	}
}

func TestTokenBucket_TakeN(t *testing.T) {
	rule := FlowRule{Rate: 10, Capacity: 10}
	base := time.Unix(1_700_000_000, 0)

	for name, store := range bucketStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			resp, err := take(ctx, store, "bulk", 8, rule, base)
			require.NoError(t, err)
			assert.True(t, resp.Allowed)
			assert.Equal(t, int64(2), resp.Remaining)

			resp, err = take(ctx, store, "bulk", 5, rule, base)
			require.NoError(t, err)
			assert.False(t, resp.Allowed)
			assert.Equal(t, 300*time.Millisecond, resp.RetryAfter)

			// n <= 0 视为 1
			resp, err = take(ctx, store, "bulk", 0, rule, base)
			require.NoError(t, err)
			assert.True(t, resp.Allowed)
			assert.Equal(t, int64(1), resp.Remaining)
		})
	}
}

func TestTokenBucket_Reset(t *testing.T) {
	rule := FlowRule{Rate: 1, Capacity: 1}
	base := time.Unix(1_700_000_000, 0)

	for name, store := range bucketStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			resp, err := take(ctx, store, "reset", 1, rule, base)
			require.NoError(t, err)
			require.True(t, resp.Allowed)

			require.NoError(t, store.Reset(ctx, "reset"))

			resp, err = take(ctx, store, "reset", 1, rule, base)
			require.NoError(t, err)
			assert.True(t, resp.Allowed, "reset refills the bucket")
		})
	}
}

func TestTokenBucket_StoreError(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	_, err := take(context.Background(), store, "closed", 1, FlowRule{Rate: 1, Capacity: 1}, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStoreClosed))
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, bucketTTL(FlowRule{Rate: 100, Capacity: 10}))
	assert.Equal(t, 20*time.Second, bucketTTL(FlowRule{Rate: 1, Capacity: 10}))
}
