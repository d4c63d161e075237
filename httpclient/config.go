package httpclient

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/Taro2021/springcloud/retry"
)

// Config 客户端配置（httpclient 段）
type Config struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// ApplyDefaults 填充默认值
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 1
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Timeout, validation.Min(time.Millisecond)),
		validation.Field(&c.MaxAttempts, validation.Min(1)),
		validation.Field(&c.RetryBackoff, validation.Min(time.Duration(0))),
	)
}

// Options 转换为客户端选项，MaxAttempts 为 1 时不重试
func (c Config) Options() []Option {
	opts := []Option{WithTimeout(c.Timeout)}
	if c.MaxAttempts > 1 {
		retryOpts := append(retry.HTTPDefaults(),
			retry.MaxAttempts(c.MaxAttempts),
			retry.Backoff(retry.ExponentialBackoff(c.RetryBackoff, retry.WithMaxDelay(2*time.Second))),
		)
		opts = append(opts, WithRetry(retryOpts...))
	}
	return opts
}
