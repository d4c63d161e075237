package breaker

import (
	"strings"
	"time"
)

// Config 降级调度配置
type Config struct {
	// Enabled 是否启用熔断（false 时跳过熔断判断，超时与降级仍然生效）
	Enabled bool `mapstructure:"enabled"`

	// EventBusBuffer 事件总线缓冲区大小
	EventBusBuffer int `mapstructure:"event_bus_buffer"`

	// PoolSize 隔离协程池大小
	PoolSize int `mapstructure:"pool_size"`

	// Default 默认资源策略
	Default Policy `mapstructure:"default"`

	// Resources 资源级策略（覆盖 Default）
	Resources map[string]Policy `mapstructure:"resources"`
}

// Policy 资源级策略
type Policy struct {
	// Timeout primary 最长执行时间
	Timeout time.Duration `mapstructure:"timeout"`

	// BreakerEnabled 是否跟踪失败率并短路（nil 表示沿用默认）
	BreakerEnabled *bool `mapstructure:"breaker_enabled"`

	// RequestVolumeThreshold 窗口内最少样本数，达到后才评估失败率。
	// 资源级策略中 0 表示沿用默认值，无法覆盖为 0
	RequestVolumeThreshold int `mapstructure:"request_volume_threshold"`

	// ErrorThresholdPercentage 失败率阈值（0-100）。
	// 资源级策略中 0 表示沿用默认值，无法覆盖为 0
	ErrorThresholdPercentage int `mapstructure:"error_threshold_percentage"`

	// SleepWindow Open 状态持续时间，之后允许一次试探
	SleepWindow time.Duration `mapstructure:"sleep_window"`

	// WindowSize 滚动窗口长度
	WindowSize time.Duration `mapstructure:"window_size"`

	// BucketCount 滚动窗口桶数
	BucketCount int `mapstructure:"bucket_count"`
}

// Bool returns a pointer to v, for Policy.BreakerEnabled
func Bool(v bool) *bool {
	return &v
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		EventBusBuffer: 500,
		PoolSize:       100,
		Default:        DefaultPolicy(),
		Resources:      make(map[string]Policy),
	}
}

// DefaultPolicy 返回默认策略（1s 超时，10s 窗口内 20 次以上且失败率 >= 50% 时熔断 5s）
func DefaultPolicy() Policy {
	return Policy{
		Timeout:                  time.Second,
		BreakerEnabled:           Bool(true),
		RequestVolumeThreshold:   20,
		ErrorThresholdPercentage: 50,
		SleepWindow:              5 * time.Second,
		WindowSize:               10 * time.Second,
		BucketCount:              10,
	}
}

// ApplyDefaults 填充零值字段
func (c *Config) ApplyDefaults() {
	if c.EventBusBuffer <= 0 {
		c.EventBusBuffer = 500
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 100
	}
	c.Default = DefaultPolicy().Merge(c.Default)
	if c.Resources == nil {
		c.Resources = make(map[string]Policy)
	}
}

// Validate 合并资源策略并验证
func (c *Config) Validate() error {
	if c.EventBusBuffer < 0 {
		return &ValidationError{Field: "EventBusBuffer", Message: "must be >= 0"}
	}
	if c.PoolSize < 0 {
		return &ValidationError{Field: "PoolSize", Message: "must be >= 0"}
	}

	if err := c.Default.Validate(); err != nil {
		return err
	}

	for name, p := range c.Resources {
		merged := c.Default.Merge(p)
		c.Resources[name] = merged

		if err := merged.Validate(); err != nil {
			return &ValidationError{Resource: name, Err: err}
		}
	}

	return nil
}

// PolicyFor 获取资源策略（优先资源级，否则默认）
func (c *Config) PolicyFor(resource string) Policy {
	if p, ok := c.Resources[resource]; ok {
		return c.Default.Merge(p)
	}
	if p, ok := c.Resources[ConfigKey(resource)]; ok {
		return c.Default.Merge(p)
	}
	return c.Default
}

// SetDefaultPolicy 资源未在配置中出现时使用 p（服务代码内置的策略）
func (c *Config) SetDefaultPolicy(resource string, p Policy) {
	if c.Resources == nil {
		c.Resources = make(map[string]Policy)
	}
	if _, ok := c.Resources[resource]; ok {
		return
	}
	if _, ok := c.Resources[ConfigKey(resource)]; ok {
		return
	}
	c.Resources[resource] = p
}

// ConfigKey 资源在配置文件中的 key：小写，"." 换成 "_"
// 例如 payment.timeout => payment_timeout
func ConfigKey(resource string) string {
	return strings.ReplaceAll(strings.ToLower(resource), ".", "_")
}

// Merge 合并策略：override 中的非零值覆盖，零值沿用 p。
// BreakerEnabled 为指针，nil 沿用，false 可以显式关闭；
// 其余字段的 0 一律视为未设置
func (p Policy) Merge(override Policy) Policy {
	result := p

	if override.Timeout > 0 {
		result.Timeout = override.Timeout
	}
	if override.BreakerEnabled != nil {
		result.BreakerEnabled = Bool(*override.BreakerEnabled)
	}
	if override.RequestVolumeThreshold > 0 {
		result.RequestVolumeThreshold = override.RequestVolumeThreshold
	}
	if override.ErrorThresholdPercentage > 0 {
		result.ErrorThresholdPercentage = override.ErrorThresholdPercentage
	}
	if override.SleepWindow > 0 {
		result.SleepWindow = override.SleepWindow
	}
	if override.WindowSize > 0 {
		result.WindowSize = override.WindowSize
	}
	if override.BucketCount > 0 {
		result.BucketCount = override.BucketCount
	}

	return result
}

// Breaker reports whether the failure-rate breaker is on for this policy
func (p Policy) Breaker() bool {
	return p.BreakerEnabled == nil || *p.BreakerEnabled
}

// Validate 验证策略
func (p Policy) Validate() error {
	if p.Timeout <= 0 {
		return &ValidationError{Field: "Timeout", Message: "must be > 0"}
	}
	if p.RequestVolumeThreshold < 0 {
		return &ValidationError{Field: "RequestVolumeThreshold", Message: "must be >= 0"}
	}
	if p.ErrorThresholdPercentage < 0 || p.ErrorThresholdPercentage > 100 {
		return &ValidationError{Field: "ErrorThresholdPercentage", Message: "must be between 0 and 100"}
	}
	if p.SleepWindow <= 0 {
		return &ValidationError{Field: "SleepWindow", Message: "must be > 0"}
	}
	if p.WindowSize <= 0 {
		return &ValidationError{Field: "WindowSize", Message: "must be > 0"}
	}
	if p.BucketCount <= 0 {
		return &ValidationError{Field: "BucketCount", Message: "must be > 0"}
	}
	if p.WindowSize < time.Duration(p.BucketCount) {
		return &ValidationError{Field: "WindowSize", Message: "must be >= BucketCount nanoseconds"}
	}
	return nil
}

// ValidationError 配置验证错误
type ValidationError struct {
	Resource string
	Field    string
	Message  string
	Err      error
}

func (e *ValidationError) Error() string {
	if e.Resource != "" {
		if e.Err != nil {
			return "breaker config validation failed for resource '" + e.Resource + "': " + e.Err.Error()
		}
		return "breaker config validation failed for resource '" + e.Resource + "." + e.Field + "': " + e.Message
	}

	if e.Field != "" {
		return "breaker config validation failed for field '" + e.Field + "': " + e.Message
	}

	if e.Err != nil {
		return "breaker config validation failed: " + e.Err.Error()
	}

	return "breaker config validation failed"
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
