package limiter

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/time/rate"
)

// paramGuard 热点参数限流：每个参数值一个 rate.Limiter，LRU 限制数量
type paramGuard struct {
	resource string
	rule     ParamRule
	cache    *lru.Cache
	mu       sync.Mutex
}

func newParamGuard(resource string, rule ParamRule, size int) (*paramGuard, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create hot key cache for %s: %w", resource, err)
	}
	return &paramGuard{
		resource: resource,
		rule:     rule,
		cache:    cache,
	}, nil
}

// allow checks the hot argument. A call without that argument is admitted.
func (g *paramGuard) allow(now time.Time, args []any) (allowed bool, value string, present bool) {
	arg, ok := g.argument(args)
	if !ok {
		return true, "", false
	}
	value = paramKey(arg)
	return g.limiterFor(value).AllowN(now, 1), value, true
}

func (g *paramGuard) argument(args []any) (any, bool) {
	idx := g.rule.Index
	if idx < 0 {
		idx += len(args)
	}
	if idx < 0 || idx >= len(args) || args[idx] == nil {
		return nil, false
	}
	return args[idx], true
}

func (g *paramGuard) limiterFor(value string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cached, ok := g.cache.Get(value); ok {
		return cached.(*rate.Limiter)
	}

	qps := g.rule.qpsFor(value)
	lim := rate.NewLimiter(rate.Limit(qps), g.rule.burstFor(qps))
	g.cache.Add(value, lim)
	return lim
}

// size 当前缓存的参数值个数
func (g *paramGuard) size() int {
	return g.cache.Len()
}

func (g *paramGuard) reset() {
	g.cache.Purge()
}

func paramKey(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
