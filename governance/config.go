package governance

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config 服务发现配置
type Config struct {
	Type      string              `mapstructure:"type"`      // 发现类型: static | etcd
	Balancer  string              `mapstructure:"balancer"`  // 默认负载均衡器: round_robin | random | weighted
	Balancers map[string]string   `mapstructure:"balancers"` // 服务级负载均衡器（覆盖 Balancer）
	Static    map[string][]string `mapstructure:"static"`    // service -> ["host:port", ...]

	Etcd     EtcdRegistryConfig `mapstructure:"etcd"`
	Register RegisterConfig     `mapstructure:"register"`
}

// EtcdRegistryConfig Etcd 注册中心配置
type EtcdRegistryConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Username    string        `mapstructure:"username"`
	Password    string        `mapstructure:"password"`
}

// RegisterConfig 本节点注册信息（provider 使用）
type RegisterConfig struct {
	Enabled     bool              `mapstructure:"enabled"`
	ServiceName string            `mapstructure:"service_name"`
	Address     string            `mapstructure:"address"` // 为空则自动获取本机 IP
	TTL         int64             `mapstructure:"ttl"`     // 租约秒数
	Metadata    map[string]string `mapstructure:"metadata"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Type:     "static",
		Balancer: "round_robin",
		Static:   make(map[string][]string),
		Etcd: EtcdRegistryConfig{
			Endpoints:   []string{"127.0.0.1:2379"},
			DialTimeout: 5 * time.Second,
		},
		Register: RegisterConfig{TTL: 10},
	}
}

// ApplyDefaults fills zero-valued fields
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Type == "" {
		c.Type = d.Type
	}
	if c.Balancer == "" {
		c.Balancer = d.Balancer
	}
	if c.Static == nil {
		c.Static = d.Static
	}
	if len(c.Etcd.Endpoints) == 0 {
		c.Etcd.Endpoints = d.Etcd.Endpoints
	}
	if c.Etcd.DialTimeout == 0 {
		c.Etcd.DialTimeout = d.Etcd.DialTimeout
	}
	if c.Register.TTL == 0 {
		c.Register.TTL = d.Register.TTL
	}
}

// BalancerFor returns the balancer name configured for service
func (c Config) BalancerFor(service string) string {
	if name, ok := c.Balancers[service]; ok && name != "" {
		return name
	}
	return c.Balancer
}

var balancerNames = []interface{}{"round_robin", "random", "weighted"}

// Validate 验证配置
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Type, validation.Required, validation.In("static", "etcd")),
		validation.Field(&c.Balancer, validation.In(balancerNames...)),
		validation.Field(&c.Balancers, validation.Each(validation.In(balancerNames...))),
		validation.Field(&c.Etcd),
		validation.Field(&c.Register),
	)
}

// Validate 验证 etcd 配置
func (c EtcdRegistryConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Endpoints, validation.Required),
		validation.Field(&c.DialTimeout, validation.Min(time.Millisecond)),
	)
}

// Validate 验证注册配置
func (c RegisterConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(&c,
		validation.Field(&c.ServiceName, validation.Required),
		validation.Field(&c.TTL, validation.Min(int64(1))),
	)
}
