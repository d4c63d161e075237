// Package config 多数据源配置加载：文件、环境变量、命令行参数按优先级合并后交给 viper 解码
package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Loader 配置加载器
type Loader struct {
	sources     []ConfigSource
	merged      map[string]interface{}
	v           *viper.Viper
	loadedFiles []string
	mu          sync.RWMutex
}

// NewLoader 创建加载器
func NewLoader() *Loader {
	return &Loader{
		merged: make(map[string]interface{}),
		v:      viper.New(),
	}
}

// AddSource 添加数据源
func (l *Loader) AddSource(source ConfigSource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources = append(l.sources, source)
}

// Load 按优先级从低到高加载并合并
func (l *Loader) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sources := make([]ConfigSource, len(l.sources))
	copy(sources, l.sources)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Priority() < sources[j].Priority()
	})

	merged := make(map[string]interface{})
	var files []string
	for _, source := range sources {
		data, err := source.Load()
		if err != nil {
			return fmt.Errorf("加载数据源 %s 失败: %w", source.Name(), err)
		}
		if fs, ok := source.(*FileSource); ok && len(data) > 0 {
			files = append(files, fs.Path())
		}
		for key, value := range data {
			// 高优先级的标量覆盖低优先级的整段（反之亦然）
			dropOverlapping(merged, key)
			merged[key] = value
		}
	}

	v := viper.New()
	for key, value := range unflatten(merged) {
		v.Set(key, value)
	}

	l.merged = merged
	l.loadedFiles = files
	l.v = v
	return nil
}

// Reload 重新加载
func (l *Loader) Reload() error {
	return l.Load()
}

// Unmarshal 解码全部配置
func (l *Loader) Unmarshal(out interface{}) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.Unmarshal(out)
}

// UnmarshalKey 解码某一段配置，key 不存在时 out 保持原值
func (l *Loader) UnmarshalKey(key string, out interface{}) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.v.IsSet(key) {
		return nil
	}
	if err := l.v.UnmarshalKey(key, out); err != nil {
		return fmt.Errorf("解析配置 %s 失败: %w", key, err)
	}
	return nil
}

// Get 获取配置值
func (l *Loader) Get(key string) interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.Get(key)
}

// GetString 获取字符串
func (l *Loader) GetString(key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.GetString(key)
}

// GetInt 获取整数
func (l *Loader) GetInt(key string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.GetInt(key)
}

// GetBool 获取布尔值
func (l *Loader) GetBool(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.GetBool(key)
}

// IsSet 配置项是否存在
func (l *Loader) IsSet(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.IsSet(key)
}

// AllSettings 全部配置
func (l *Loader) AllSettings() map[string]interface{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.AllSettings()
}

// LoadedFiles 实际读到内容的配置文件
func (l *Loader) LoadedFiles() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.loadedFiles...)
}

// dropOverlapping 删除与 key 互为前缀的已有 key
func dropOverlapping(merged map[string]interface{}, key string) {
	for existing := range merged {
		if strings.HasPrefix(existing, key+".") || strings.HasPrefix(key, existing+".") {
			delete(merged, existing)
		}
	}
}

// unflatten {"server.port": 8001} -> {"server": {"port": 8001}}
func unflatten(flat map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})
	for key, value := range flat {
		parts := strings.Split(key, ".")
		current := result
		for _, part := range parts[:len(parts)-1] {
			next, ok := current[part].(map[string]interface{})
			if !ok {
				next = make(map[string]interface{})
				current[part] = next
			}
			current = next
		}
		current[parts[len(parts)-1]] = value
	}
	return result
}
