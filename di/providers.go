package di

import (
	"context"
	"fmt"
	"time"

	"github.com/Taro2021/springcloud/breaker"
	"github.com/Taro2021/springcloud/config"
	"github.com/Taro2021/springcloud/governance"
	"github.com/Taro2021/springcloud/httpclient"
	"github.com/Taro2021/springcloud/limiter"
	"github.com/Taro2021/springcloud/logger"
	"github.com/Taro2021/springcloud/redis"
	"github.com/Taro2021/springcloud/telemetry"
	"github.com/samber/do/v2"
	"go.uber.org/zap"
)

// ============================================
// 基础组件 Provider（Config, Logger）
// ============================================

// ConfigOptions 配置组件选项
type ConfigOptions struct {
	AppName    string      // 应用名：payment, order（同时作为默认 service_name）
	ConfigPath string      // 配置目录路径，如 configs/order
	Env        string      // 环境名，为空时读取 APP_ENV
	EnvPrefix  string      // 环境变量前缀（默认 APP）
	Flags      interface{} // 命令行参数（带 config tag 的结构体）
}

// BreakerPolicies 业务层内置的熔断策略，配置文件中的同名策略优先
type BreakerPolicies map[string]breaker.Policy

// ProvideConfigLoader 创建 config.Loader 的 Provider
func ProvideConfigLoader(opts ConfigOptions) func(do.Injector) (*config.Loader, error) {
	return config.ProvideLoader(config.ProvideLoaderOptions{
		ConfigPath: opts.ConfigPath,
		Env:        opts.Env,
		EnvPrefix:  opts.EnvPrefix,
		Flags:      opts.Flags,
	})
}

// ProvideLoggerManager 读取 logger 段并初始化全局 Manager
func ProvideLoggerManager(i do.Injector) (*logger.Manager, error) {
	cfg := logger.DefaultManagerConfig()
	if err := section(i, "logger", &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	logger.InitManager(cfg)
	if err := logger.ReloadConfig(cfg); err != nil {
		return nil, err
	}
	return logger.Default(), nil
}

// ProvideCtxLogger 创建命名 CtxZapLogger 的 Provider 工厂
func ProvideCtxLogger(moduleName string) func(do.Injector) (*logger.CtxZapLogger, error) {
	return func(i do.Injector) (*logger.CtxZapLogger, error) {
		mgr, err := do.Invoke[*logger.Manager](i)
		if err != nil {
			// 回退到全局 logger
			return logger.GetLogger(moduleName), nil
		}
		return mgr.GetLogger(moduleName), nil
	}
}

// ============================================
// 基础设施 Provider（Telemetry, Redis）
// ============================================

// ProvideTelemetryManager 读取 telemetry 段，创建并启动 Manager
func ProvideTelemetryManager(appName string) func(do.Injector) (*telemetry.Manager, error) {
	return func(i do.Injector) (*telemetry.Manager, error) {
		cfg := telemetry.DefaultConfig()
		if err := section(i, "telemetry", &cfg); err != nil {
			return nil, err
		}
		if cfg.ServiceName == "" {
			cfg.ServiceName = appName
		}
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("telemetry: %w", err)
		}

		mgr := telemetry.NewManager(cfg, injectLogger(i))
		if err := mgr.Start(context.Background()); err != nil {
			return nil, err
		}
		return mgr, nil
	}
}

// ProvideRedisManager 读取 redis 段，未启用时返回 nil
func ProvideRedisManager(i do.Injector) (*redis.Manager, error) {
	var cfg redis.Config
	if err := section(i, "redis", &cfg); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, nil
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	return redis.NewManager(ctx, cfg, injectLogger(i))
}

// ============================================
// 治理组件 Provider（Limiter, Breaker, Discovery）
// ============================================

// ProvideLimiterManager 读取 limiter 段，redis 存储时依赖 redis.Manager
func ProvideLimiterManager(i do.Injector) (*limiter.Manager, error) {
	cfg := limiter.DefaultConfig()
	if err := section(i, "limiter", &cfg); err != nil {
		return nil, err
	}

	log := injectLogger(i)
	opts := []limiter.Option{limiter.WithLogger(log)}

	if cfg.Enabled && limiter.StoreType(cfg.StoreType) == limiter.StoreTypeRedis {
		redisMgr, err := do.Invoke[*redis.Manager](i)
		if err != nil {
			return nil, err
		}
		if redisMgr == nil {
			return nil, fmt.Errorf("limiter: store_type redis requires redis.enabled")
		}
		opts = append(opts, limiter.WithRedisClient(redisMgr.Client()))
	}

	if mgr, err := do.Invoke[*telemetry.Manager](i); err == nil && mgr.MetricsEnabled() {
		metrics := limiter.NewOTelMetrics(limiter.MetricsConfig{Enabled: true, RecordTokens: true})
		if err := metrics.RegisterMetrics(mgr.Meter("springcloud/limiter")); err != nil {
			log.WarnCtx(context.Background(), "⚠️  limiter metrics registration failed", zap.Error(err))
		} else {
			opts = append(opts, limiter.WithMetrics(metrics))
		}
	}

	return limiter.NewManager(cfg, opts...)
}

// ProvideBreakerManager 读取 breaker 段，依赖 limiter.Manager 作为准入检查
func ProvideBreakerManager(i do.Injector) (*breaker.Manager, error) {
	cfg := breaker.DefaultConfig()
	if err := section(i, "breaker", &cfg); err != nil {
		return nil, err
	}
	if policies, err := do.Invoke[BreakerPolicies](i); err == nil {
		for resource, p := range policies {
			cfg.SetDefaultPolicy(resource, p)
		}
	}

	log := injectLogger(i)
	opts := []breaker.Option{breaker.WithLogger(log)}

	if lim, err := do.Invoke[*limiter.Manager](i); err == nil && lim != nil {
		opts = append(opts, breaker.WithAdmission(lim))
	} else if err != nil {
		return nil, err
	}

	if mgr, err := do.Invoke[*telemetry.Manager](i); err == nil && mgr.BreakerMetricsEnabled() {
		metrics := breaker.NewOTelBreakerMetrics(breaker.BreakerMetricsConfig{Enabled: true, RecordState: true})
		if err := metrics.RegisterMetrics(mgr.Meter("springcloud/breaker")); err != nil {
			log.WarnCtx(context.Background(), "⚠️  breaker metrics registration failed", zap.Error(err))
		} else {
			opts = append(opts, breaker.WithMetrics(metrics))
		}
	}

	return breaker.NewManager(cfg, opts...)
}

// ProvideGovernanceConfig 读取 discovery 段
func ProvideGovernanceConfig(i do.Injector) (governance.Config, error) {
	cfg := governance.DefaultConfig()
	if err := section(i, "discovery", &cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("discovery: %w", err)
	}
	return cfg, nil
}

// ProvideDiscovery 按 discovery.type 创建服务发现
func ProvideDiscovery(i do.Injector) (governance.ServiceDiscovery, error) {
	cfg, err := do.Invoke[governance.Config](i)
	if err != nil {
		return nil, err
	}
	return governance.NewDiscovery(cfg, injectLogger(i))
}

// ProvideSelector 创建实例选择器
func ProvideSelector(i do.Injector) (*governance.Selector, error) {
	cfg, err := do.Invoke[governance.Config](i)
	if err != nil {
		return nil, err
	}
	discovery, err := do.Invoke[governance.ServiceDiscovery](i)
	if err != nil {
		return nil, err
	}
	return governance.NewSelector(discovery, cfg, injectLogger(i)), nil
}

// ProvideEtcdRegistry 创建注册器，discovery.register 未启用时返回 nil
func ProvideEtcdRegistry(i do.Injector) (*governance.EtcdRegistry, error) {
	cfg, err := do.Invoke[governance.Config](i)
	if err != nil {
		return nil, err
	}
	if !cfg.Register.Enabled {
		return nil, nil
	}

	log := injectLogger(i)
	client, err := governance.NewEtcdClient(cfg.Etcd, log)
	if err != nil {
		return nil, err
	}
	return governance.NewEtcdRegistry(client, log), nil
}

// ============================================
// 下游调用 Provider
// ============================================

// ProvideHTTPClient 读取 httpclient 段
func ProvideHTTPClient(i do.Injector) (*httpclient.Client, error) {
	var cfg httpclient.Config
	if err := section(i, "httpclient", &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}

	opts := append(cfg.Options(), httpclient.WithLogger(injectLogger(i)))
	return httpclient.NewClient(opts...), nil
}

// section 从 Loader 解码一段配置，未配置时 out 保持默认值
func section(i do.Injector, key string, out interface{}) error {
	loader, err := do.Invoke[*config.Loader](i)
	if err != nil {
		return err
	}
	return loader.UnmarshalKey(key, out)
}

func injectLogger(i do.Injector) *logger.CtxZapLogger {
	log, err := do.Invoke[*logger.CtxZapLogger](i)
	if err != nil || log == nil {
		return logger.GetLogger("springcloud")
	}
	return log
}

// registerTimeout 注册与注销 etcd 的超时
const registerTimeout = 5 * time.Second
