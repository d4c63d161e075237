package config

import (
	"fmt"

	"github.com/samber/do/v2"
)

// ProvideLoaderOptions Loader provider 选项
type ProvideLoaderOptions struct {
	ConfigPath string      // 配置目录
	Env        string      // 环境名
	EnvPrefix  string      // 环境变量前缀，默认 APP
	Flags      interface{} // 命令行参数
}

// ProvideLoader 注册 Loader，它是最底层组件，没有依赖
//
//	do.Provide(injector, config.ProvideLoader(config.ProvideLoaderOptions{
//	    ConfigPath: "configs/payment",
//	}))
func ProvideLoader(opts ProvideLoaderOptions) func(do.Injector) (*Loader, error) {
	return func(do.Injector) (*Loader, error) {
		builder := NewLoaderBuilder().
			WithConfigPath(opts.ConfigPath).
			WithEnv(opts.Env).
			WithFlags(opts.Flags)
		if opts.EnvPrefix != "" {
			builder.WithEnvPrefix(opts.EnvPrefix)
		}

		loader, err := builder.Build()
		if err != nil {
			return nil, fmt.Errorf("config loader build failed: %w", err)
		}
		return loader, nil
	}
}

// ProvideLoaderValue 直接注册已有 Loader（测试用）
func ProvideLoaderValue(loader *Loader) func(do.Injector) (*Loader, error) {
	return func(do.Injector) (*Loader, error) {
		return loader, nil
	}
}
