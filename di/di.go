// Package di 基于 samber/do 组装 springcloud 的核心组件
//
// 每个组件一个 Provider，读取自己的配置段后执行 ApplyDefaults 与 Validate。
// 实现 Shutdown 的组件会在 injector.Shutdown 时按依赖逆序关闭。
package di

import "github.com/samber/do/v2"

// NewInjector 创建根注入器并注册核心 Provider
func NewInjector(opts ConfigOptions) *do.RootScope {
	injector := do.New()
	RegisterCoreProviders(injector, opts)
	return injector
}
