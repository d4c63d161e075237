package payment

import (
	"time"

	"github.com/Taro2021/springcloud/breaker"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Commands 的资源名
const (
	ResourceTimeout = "payment.timeout"
	ResourceCircuit = "payment.circuit"
)

// Config 支付服务配置（payment 段）
type Config struct {
	// ServiceName 注册与发现使用的服务名
	ServiceName string `mapstructure:"service_name"`

	// TimeoutSleep paymentTimeout 的模拟耗时
	TimeoutSleep time.Duration `mapstructure:"timeout_sleep"`

	// Seed 启动时预置演示记录
	Seed bool `mapstructure:"seed"`
}

// ApplyDefaults 填充默认值
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "cloud-payment-service"
	}
	if c.TimeoutSleep == 0 {
		c.TimeoutSleep = 5 * time.Second
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ServiceName, validation.Required),
		validation.Field(&c.TimeoutSleep, validation.Min(time.Duration(0))),
	)
}

// BreakerPolicies 服务内置的熔断策略，配置文件中的同名策略优先
func BreakerPolicies() map[string]breaker.Policy {
	return map[string]breaker.Policy{
		ResourceTimeout: {
			Timeout: 3 * time.Second,
		},
		ResourceCircuit: {
			BreakerEnabled:           breaker.Bool(true),
			RequestVolumeThreshold:   10,
			SleepWindow:              10 * time.Second,
			ErrorThresholdPercentage: 60,
		},
	}
}
