package telemetry

import (
	"fmt"
	"time"
)

// Config OpenTelemetry 配置（telemetry 段）
type Config struct {
	Enabled        bool                   `mapstructure:"enabled"`             // 是否启用
	ServiceName    string                 `mapstructure:"service_name"`        // 服务名，默认取应用名
	ServiceVersion string                 `mapstructure:"service_version"`     // 服务版本
	Exporter       ExporterConfig         `mapstructure:"exporter"`            // trace 导出
	Sampler        SamplerConfig          `mapstructure:"sampler"`             // 采样
	ResourceAttrs  map[string]interface{} `mapstructure:"resource_attributes"` // 资源属性（支持嵌套）
	Metrics        MetricsConfig          `mapstructure:"metrics"`             // 指标
}

// ExporterConfig trace exporter 配置
type ExporterConfig struct {
	Type        string `mapstructure:"type"`         // stdout, noop
	PrettyPrint bool   `mapstructure:"pretty_print"` // stdout 格式化输出
}

// SamplerConfig 采样配置
type SamplerConfig struct {
	Type  string  `mapstructure:"type"`  // always_on, always_off, trace_id_ratio, parent_based_always_on
	Ratio float64 `mapstructure:"ratio"` // 仅 trace_id_ratio 生效
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Exporter       string        `mapstructure:"exporter"`        // stdout, noop
	ExportInterval time.Duration `mapstructure:"export_interval"` // 导出周期
	ExportTimeout  time.Duration `mapstructure:"export_timeout"`  // 导出超时
	HTTP           bool          `mapstructure:"http"`            // HTTP 层指标
	Breaker        bool          `mapstructure:"breaker"`         // 熔断器指标
}

// DefaultConfig 默认配置（关闭）
func DefaultConfig() Config {
	return Config{
		Enabled:        false,
		ServiceVersion: "1.0.0",
		Exporter: ExporterConfig{
			Type: "stdout",
		},
		Sampler: SamplerConfig{
			Type:  "parent_based_always_on",
			Ratio: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled:        false,
			Exporter:       "stdout",
			ExportInterval: 30 * time.Second,
			ExportTimeout:  10 * time.Second,
			HTTP:           true,
			Breaker:        true,
		},
	}
}

// ApplyDefaults 填充零值字段
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.ServiceVersion == "" {
		c.ServiceVersion = def.ServiceVersion
	}
	if c.Exporter.Type == "" {
		c.Exporter.Type = def.Exporter.Type
	}
	if c.Sampler.Type == "" {
		c.Sampler.Type = def.Sampler.Type
	}
	if c.Sampler.Type == "trace_id_ratio" && c.Sampler.Ratio == 0 {
		c.Sampler.Ratio = def.Sampler.Ratio
	}
	if c.Metrics.Exporter == "" {
		c.Metrics.Exporter = def.Metrics.Exporter
	}
	if c.Metrics.ExportInterval == 0 {
		c.Metrics.ExportInterval = def.Metrics.ExportInterval
	}
	if c.Metrics.ExportTimeout == 0 {
		c.Metrics.ExportTimeout = def.Metrics.ExportTimeout
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required when telemetry is enabled")
	}

	switch c.Exporter.Type {
	case "stdout", "noop":
	default:
		return fmt.Errorf("invalid exporter type: %s (must be stdout or noop)", c.Exporter.Type)
	}

	switch c.Sampler.Type {
	case "always_on", "always_off", "parent_based_always_on":
	case "trace_id_ratio":
		if c.Sampler.Ratio < 0 || c.Sampler.Ratio > 1 {
			return fmt.Errorf("sampler ratio must be between 0 and 1, got: %f", c.Sampler.Ratio)
		}
	default:
		return fmt.Errorf("invalid sampler type: %s", c.Sampler.Type)
	}

	if c.Metrics.Enabled {
		switch c.Metrics.Exporter {
		case "stdout", "noop":
		default:
			return fmt.Errorf("invalid metrics exporter: %s (must be stdout or noop)", c.Metrics.Exporter)
		}
		if c.Metrics.ExportInterval <= 0 {
			return fmt.Errorf("metrics export_interval must be positive")
		}
	}

	return nil
}
