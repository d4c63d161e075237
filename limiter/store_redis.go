package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// takeScript 在一个 hash 上完成补充与扣减
// KEYS[1]: bucket hash. ARGV: rate, capacity, initial, now_ms, n, ttl_ms.
var takeScript = redis.NewScript(`
local state = redis.call('HMGET', KEYS[1], 'tokens', 'last')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[4])
local n = tonumber(ARGV[5])

if tokens == nil or last == nil then
  tokens = tonumber(ARGV[3])
  last = now
elseif now > last then
  local added = math.floor((now - last) * rate / 1000)
  if added > 0 then
    tokens = tokens + added
    if tokens >= capacity then
      tokens = capacity
      last = now
    else
      last = last + math.floor(added * 1000 / rate)
    end
  end
end

local allowed = 0
if tokens >= n then
  tokens = tokens - n
  allowed = 1
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'last', last)
redis.call('PEXPIRE', KEYS[1], ARGV[6])
return {allowed, tokens}
`)

// RedisStore 多实例共享的令牌桶，bucket 存为 <prefix>bucket:<name> 的 hash
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore keyPrefix 为空时使用 "limiter:"
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "limiter:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) key(bucket string) string {
	return s.keyPrefix + "bucket:" + bucket
}

func (s *RedisStore) Take(ctx context.Context, bucket string, rule FlowRule, n int64, now time.Time) (bool, int64, error) {
	reply, err := takeScript.Run(ctx, s.client, []string{s.key(bucket)},
		rule.Rate, rule.Capacity, rule.initialTokens(), now.UnixMilli(), n, bucketTTL(rule).Milliseconds(),
	).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis take %s: %w", bucket, err)
	}
	return parseTakeReply(reply)
}

func (s *RedisStore) Reset(ctx context.Context, bucket string) error {
	return s.client.Del(ctx, s.key(bucket)).Err()
}

// Close 不关闭 client，client 归 redis.Manager 所有
func (s *RedisStore) Close() error {
	return nil
}

func parseTakeReply(reply interface{}) (bool, int64, error) {
	values, ok := reply.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected take reply: %v", reply)
	}
	allowed, ok1 := values[0].(int64)
	tokens, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return false, 0, fmt.Errorf("unexpected take reply: %v", reply)
	}
	return allowed == 1, tokens, nil
}
