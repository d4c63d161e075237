package redis

import (
	"fmt"
	"time"
)

// Config Redis 连接配置（redis 段），限流器的 redis 存储使用
type Config struct {
	// Enabled 是否创建连接
	Enabled bool `mapstructure:"enabled"`

	// Addr host:port
	Addr string `mapstructure:"addr"`

	// Password 可选
	Password string `mapstructure:"password"`

	// DB 编号 0-15
	DB int `mapstructure:"db"`

	// PoolSize 连接池大小（默认 10）
	PoolSize int `mapstructure:"pool_size"`

	// MinIdleConns 最小空闲连接（默认 2）
	MinIdleConns int `mapstructure:"min_idle_conns"`

	// MaxRetries 最大重试次数（默认 3）
	MaxRetries int `mapstructure:"max_retries"`

	DialTimeout  time.Duration `mapstructure:"dial_timeout"`  // 默认 5s
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // 默认 3s
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // 默认 3s
}

// ApplyDefaults 填充默认值
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "127.0.0.1:6379"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if c.DB < 0 || c.DB > 15 {
		return fmt.Errorf("db must be between 0 and 15, got: %d", c.DB)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("pool_size must be >= 0, got: %d", c.PoolSize)
	}
	if c.MinIdleConns < 0 {
		return fmt.Errorf("min_idle_conns must be >= 0, got: %d", c.MinIdleConns)
	}
	if c.MinIdleConns > c.PoolSize && c.PoolSize > 0 {
		return fmt.Errorf("min_idle_conns (%d) cannot exceed pool_size (%d)", c.MinIdleConns, c.PoolSize)
	}
	return nil
}
