package di

import (
	"github.com/Taro2021/springcloud/logger"
	"github.com/samber/do/v2"
)

// RegisterCoreProviders 按依赖层级注册核心组件 Provider（懒加载）
func RegisterCoreProviders(injector do.Injector, opts ConfigOptions) {
	// ═══════════════════════════════════════════════════════════
	// Layer 0: Config（无依赖）
	// ═══════════════════════════════════════════════════════════
	do.Provide(injector, ProvideConfigLoader(opts))

	// ═══════════════════════════════════════════════════════════
	// Layer 1: Logger（依赖 Config）
	// ═══════════════════════════════════════════════════════════
	do.Provide(injector, ProvideLoggerManager)
	do.Provide(injector, ProvideCtxLogger(moduleName(opts)))

	// ═══════════════════════════════════════════════════════════
	// Layer 2: 基础设施（Telemetry, Redis）
	// ═══════════════════════════════════════════════════════════
	do.Provide(injector, ProvideTelemetryManager(opts.AppName))
	do.Provide(injector, ProvideRedisManager)

	// ═══════════════════════════════════════════════════════════
	// Layer 3: 服务治理（Limiter → Breaker, Discovery → Selector）
	// ═══════════════════════════════════════════════════════════
	do.Provide(injector, ProvideLimiterManager)
	do.Provide(injector, ProvideBreakerManager)
	do.Provide(injector, ProvideGovernanceConfig)
	do.Provide(injector, ProvideDiscovery)
	do.Provide(injector, ProvideSelector)
	do.Provide(injector, ProvideEtcdRegistry)

	// ═══════════════════════════════════════════════════════════
	// Layer 4: 下游调用
	// ═══════════════════════════════════════════════════════════
	do.Provide(injector, ProvideHTTPClient)
}

func moduleName(opts ConfigOptions) string {
	if opts.AppName == "" {
		return "springcloud"
	}
	return opts.AppName
}

// Shutdown 按依赖逆序关闭组件，最后刷新日志
func Shutdown(injector do.Injector) error {
	report := injector.Shutdown()
	logger.CloseAll()
	if report != nil && len(report.Errors) > 0 {
		return report
	}
	return nil
}
