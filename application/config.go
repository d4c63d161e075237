package application

import (
	"fmt"
	"time"

	"github.com/Taro2021/springcloud/config"
	"github.com/Taro2021/springcloud/httpx"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// AppConfig 应用层配置（server / middleware / error_logging 段）
//
// 业务组件（breaker, limiter, discovery ...）由各自的 Provider 读取
type AppConfig struct {
	Server       ServerConfig             `mapstructure:"server"`
	Middleware   MiddlewareConfig         `mapstructure:"middleware"`
	ErrorLogging httpx.ErrorLoggingConfig `mapstructure:"error_logging"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// UnameFilter 缺少 uname 参数的请求返回 406（网关过滤器）
	UnameFilter bool `mapstructure:"uname_filter"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	TraceID    TraceIDConfig    `mapstructure:"trace_id"`
	RequestLog RequestLogConfig `mapstructure:"request_log"`
}

// TraceIDConfig Trace ID 中间件配置
type TraceIDConfig struct {
	Enable               bool   `mapstructure:"enable"`
	TraceIDKey           string `mapstructure:"trace_id_key"`
	TraceIDHeader        string `mapstructure:"trace_id_header"`
	EnableResponseHeader bool   `mapstructure:"enable_response_header"`
}

// RequestLogConfig 请求日志中间件配置
type RequestLogConfig struct {
	Enable    bool     `mapstructure:"enable"`
	SkipPaths []string `mapstructure:"skip_paths"`
}

// DefaultAppConfig 默认配置
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Port:            8080,
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Middleware: MiddlewareConfig{
			TraceID: TraceIDConfig{
				Enable:               true,
				TraceIDKey:           "trace_id",
				TraceIDHeader:        "X-Trace-ID",
				EnableResponseHeader: true,
			},
			RequestLog: RequestLogConfig{Enable: true},
		},
		ErrorLogging: httpx.DefaultErrorLoggingConfig(),
	}
}

// ApplyDefaults 填充零值字段
func (c *AppConfig) ApplyDefaults() {
	d := DefaultAppConfig()
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.Mode == "" {
		c.Server.Mode = d.Server.Mode
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = d.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = d.Server.WriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if c.Middleware.TraceID.TraceIDKey == "" {
		c.Middleware.TraceID.TraceIDKey = d.Middleware.TraceID.TraceIDKey
	}
	if c.Middleware.TraceID.TraceIDHeader == "" {
		c.Middleware.TraceID.TraceIDHeader = d.Middleware.TraceID.TraceIDHeader
	}
	if c.ErrorLogging.LogLevel == "" {
		c.ErrorLogging.LogLevel = d.ErrorLogging.LogLevel
	}
}

// Validate 校验配置
func (c AppConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
	)
}

// Validate 校验 server 段
func (c ServerConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Mode, validation.In("debug", "release", "test")),
		validation.Field(&c.ShutdownTimeout, validation.Min(time.Millisecond)),
	)
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadAppConfig 从 Loader 读取应用配置
func LoadAppConfig(loader *config.Loader) (*AppConfig, error) {
	if loader == nil {
		return nil, fmt.Errorf("配置加载器未初始化")
	}

	cfg := DefaultAppConfig()
	for key, out := range map[string]interface{}{
		"server":        &cfg.Server,
		"middleware":    &cfg.Middleware,
		"error_logging": &cfg.ErrorLogging,
	} {
		if err := loader.UnmarshalKey(key, out); err != nil {
			return nil, err
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("app config: %w", err)
	}
	return &cfg, nil
}
