package config

import (
	"os"
	"path/filepath"
)

// LoaderBuilder 构建标准的四层数据源
type LoaderBuilder struct {
	configPath string
	env        string
	envPrefix  string
	flags      interface{}
}

// NewLoaderBuilder 创建构建器
func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{envPrefix: "APP"}
}

// WithConfigPath 配置目录，如 configs/payment
func (b *LoaderBuilder) WithConfigPath(path string) *LoaderBuilder {
	b.configPath = path
	return b
}

// WithEnv 环境名，为空时取 GetEnv()
func (b *LoaderBuilder) WithEnv(env string) *LoaderBuilder {
	b.env = env
	return b
}

// WithEnvPrefix 环境变量前缀，为空时不读取环境变量
func (b *LoaderBuilder) WithEnvPrefix(prefix string) *LoaderBuilder {
	b.envPrefix = prefix
	return b
}

// WithFlags 命令行参数 struct（config tag）
func (b *LoaderBuilder) WithFlags(flags interface{}) *LoaderBuilder {
	b.flags = flags
	return b
}

// Build 创建并加载
//
//	config.yaml (10) < <env>.yaml (20) < APP_* (50) < flags (100)
func (b *LoaderBuilder) Build() (*Loader, error) {
	loader := NewLoader()

	if b.configPath != "" {
		loader.AddSource(NewFileSource(filepath.Join(b.configPath, "config.yaml"), PriorityBaseFile))

		env := b.env
		if env == "" {
			env = GetEnv()
		}
		loader.AddSource(NewFileSource(filepath.Join(b.configPath, env+".yaml"), PriorityEnvFile))
	}

	if b.envPrefix != "" {
		loader.AddSource(NewEnvSource(b.envPrefix, PriorityEnv))
	}

	if b.flags != nil {
		loader.AddSource(NewFlagSource(b.flags, PriorityFlag))
	}

	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}

// GetEnv 当前环境：APP_ENV > ENV > dev
func GetEnv() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "dev"
}
