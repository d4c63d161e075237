// Package order 订单服务（consumer）：调用支付服务、hystrix 与 sentinel 演示接口
package order

import (
	"time"

	"github.com/Taro2021/springcloud/breaker"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// 熔断资源
const (
	ResourcePaymentGet     = "order.payment.get"
	ResourcePaymentTimeout = "order.payment.timeout"
	ResourcePaymentOK      = "order.payment.ok"
	ResourceTest3          = "order.test3"
	ResourceFallback       = "order.fallback"
)

// 限流资源
const (
	ResourceHotKey        = "testHotKey"
	ResourceByResource    = "byResource"
	ResourceCustomerBlock = "customerBlockHandler"
)

// Config 订单服务配置（order 段）
type Config struct {
	// PaymentService 支付服务名
	PaymentService string `mapstructure:"payment_service"`

	// NacosService Nacos 演示的 provider 服务名
	NacosService string `mapstructure:"nacos_service"`
}

// ApplyDefaults 填充默认值
func (c *Config) ApplyDefaults() {
	if c.PaymentService == "" {
		c.PaymentService = "cloud-payment-service"
	}
	if c.NacosService == "" {
		c.NacosService = c.PaymentService
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PaymentService, validation.Required),
		validation.Field(&c.NacosService, validation.Required),
	)
}

// BreakerPolicies 订单服务内置的熔断策略，配置文件中的同名策略优先
func BreakerPolicies() map[string]breaker.Policy {
	return map[string]breaker.Policy{
		ResourcePaymentTimeout: {
			Timeout: 3 * time.Second,
		},
		ResourcePaymentGet: {
			Timeout: 3 * time.Second,
		},
		// 异常比例降级：5 次以上请求且失败率 >= 50% 时熔断 5s
		ResourceTest3: {
			BreakerEnabled:           breaker.Bool(true),
			RequestVolumeThreshold:   5,
			ErrorThresholdPercentage: 50,
			SleepWindow:              5 * time.Second,
		},
		ResourceHotKey: {
			BreakerEnabled: breaker.Bool(false),
		},
		ResourceFallback: {
			Timeout:        3 * time.Second,
			BreakerEnabled: breaker.Bool(false),
		},
	}
}
