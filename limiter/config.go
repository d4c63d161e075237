package limiter

import (
	"math"
	"strings"
)

// Rate limiter configuration
type Config struct {
	// Enabled whether to enable rate limiting (false means direct passthrough)
	Enabled bool `mapstructure:"enabled"`

	// StoreType storage type: memory, redis
	StoreType string `mapstructure:"store_type"`

	// Redis configuration (used when StoreType is redis)
	Redis RedisConfig `mapstructure:"redis"`

	// EventBusBuffer event bus buffer size
	EventBusBuffer int `mapstructure:"event_bus_buffer"`

	// HotKeyCacheSize 每个热点规则最多保留多少个参数值的限流器
	HotKeyCacheSize int `mapstructure:"hot_key_cache_size"`

	// Default flow rule (applied to unconfigured resources when not empty)
	Default FlowRule `mapstructure:"default"`

	// Resources flow rules per resource (overrides Default)
	Resources map[string]FlowRule `mapstructure:"resources"`

	// Params hot-key rules per resource
	Params map[string]ParamRule `mapstructure:"params"`
}

// RedisConfig Redis store settings, the client itself is injected
type RedisConfig struct {
	KeyPrefix string `mapstructure:"key_prefix"` // Redis key prefix (default "limiter:")
}

// FlowRule 令牌桶流控规则
type FlowRule struct {
	Rate          int64 `mapstructure:"rate"`           // token generation rate (per second)
	Capacity      int64 `mapstructure:"capacity"`       // bucket capacity
	InitialTokens int64 `mapstructure:"initial_tokens"` // 0 means a full bucket
}

// ParamRule 热点参数规则
type ParamRule struct {
	// Index argument position, negative counts from the end
	Index int `mapstructure:"index"`

	// QPS per distinct value
	QPS float64 `mapstructure:"qps"`

	// Burst bucket size per value, 0 means ceil(qps)
	Burst int `mapstructure:"burst"`

	// Exceptions value -> qps overrides
	Exceptions map[string]float64 `mapstructure:"exceptions"`
}

// Return default configuration
func DefaultConfig() Config {
	return Config{
		Enabled:         false,
		StoreType:       string(StoreTypeMemory),
		Redis:           RedisConfig{KeyPrefix: "limiter:"},
		EventBusBuffer:  500,
		HotKeyCacheSize: 1000,
		Resources:       make(map[string]FlowRule),
		Params:          make(map[string]ParamRule),
	}
}

// ApplyDefaults fills zero values
func (c *Config) ApplyDefaults() {
	if c.StoreType == "" {
		c.StoreType = string(StoreTypeMemory)
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "limiter:"
	}
	if c.EventBusBuffer <= 0 {
		c.EventBusBuffer = 500
	}
	if c.HotKeyCacheSize <= 0 {
		c.HotKeyCacheSize = 1000
	}

	c.Resources = normalizeKeys(c.Resources)
	c.Params = normalizeKeys(c.Params)
}

// ConfigKey 资源在配置文件中的 key：小写，"." 换成 "_"
func ConfigKey(resource string) string {
	return strings.ReplaceAll(strings.ToLower(resource), ".", "_")
}

func normalizeKeys[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[ConfigKey(k)] = v
	}
	return out
}

// Validate configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil // not enabled, verification not required
	}

	// Validate storage type
	if c.StoreType != string(StoreTypeMemory) && c.StoreType != string(StoreTypeRedis) {
		return &ValidationError{Field: "store_type", Message: "must be 'memory' or 'redis'"}
	}

	if !c.Default.isEmpty() {
		if err := c.Default.Validate(); err != nil {
			return err
		}
	}

	// Merge and validate resource configurations
	for name, rule := range c.Resources {
		merged := rule
		if !c.Default.isEmpty() {
			merged = c.Default.Merge(rule)
		}
		c.Resources[name] = merged

		if err := merged.Validate(); err != nil {
			return &ValidationError{Resource: name, Err: err}
		}
	}

	for name, rule := range c.Params {
		if err := rule.Validate(); err != nil {
			return &ValidationError{Resource: name, Err: err}
		}
	}

	return nil
}

// FlowRuleFor 资源的流控规则，ok=false 表示直接放行
func (c *Config) FlowRuleFor(resource string) (FlowRule, bool) {
	if rule, ok := c.Resources[resource]; ok {
		return rule, true
	}
	if rule, ok := c.Resources[ConfigKey(resource)]; ok {
		return rule, true
	}
	if c.Default.isEmpty() {
		return FlowRule{}, false
	}
	return c.Default, true
}

// Merge merge configuration (override default values)
func (r FlowRule) Merge(override FlowRule) FlowRule {
	result := r

	// Only cover non-zero values
	if override.Rate > 0 {
		result.Rate = override.Rate
	}
	if override.Capacity > 0 {
		result.Capacity = override.Capacity
	}
	if override.InitialTokens > 0 {
		result.InitialTokens = override.InitialTokens
	}
	return result
}

func (r FlowRule) isEmpty() bool {
	return r.Rate == 0 && r.Capacity == 0 && r.InitialTokens == 0
}

// initialTokens 首次访问时桶内令牌数
func (r FlowRule) initialTokens() int64 {
	if r.InitialTokens == 0 {
		return r.Capacity
	}
	return r.InitialTokens
}

// Validate flow rule
func (r FlowRule) Validate() error {
	if r.Rate <= 0 {
		return &ValidationError{Field: "rate", Message: "must be > 0"}
	}
	if r.Capacity <= 0 {
		return &ValidationError{Field: "capacity", Message: "must be > 0"}
	}
	if r.InitialTokens < 0 {
		return &ValidationError{Field: "initial_tokens", Message: "must be >= 0"}
	}
	if r.InitialTokens > r.Capacity {
		return &ValidationError{Field: "initial_tokens", Message: "must be <= capacity"}
	}
	return nil
}

// Validate param rule
func (r ParamRule) Validate() error {
	if r.QPS <= 0 {
		return &ValidationError{Field: "qps", Message: "must be > 0"}
	}
	if r.Burst < 0 {
		return &ValidationError{Field: "burst", Message: "must be >= 0"}
	}
	for value, qps := range r.Exceptions {
		if qps < 0 {
			return &ValidationError{Field: "exceptions." + value, Message: "must be >= 0"}
		}
	}
	return nil
}

// qpsFor 参数值对应的阈值
func (r ParamRule) qpsFor(value string) float64 {
	if qps, ok := r.Exceptions[value]; ok {
		return qps
	}
	return r.QPS
}

// burstFor 参数值对应的桶容量
func (r ParamRule) burstFor(qps float64) int {
	if r.Burst > 0 {
		return r.Burst
	}
	return int(math.Ceil(qps))
}
