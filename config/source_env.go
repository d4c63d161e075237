package config

import (
	"os"
	"strings"
)

// EnvSource 环境变量数据源
//
// APP_SERVER_PORT=8002         -> server.port
// APP_HTTPCLIENT_MAX__ATTEMPTS -> httpclient.max_attempts（双下划线表示 key 内的下划线）
type EnvSource struct {
	prefix   string
	priority int
	bindings map[string]string // 配置 key -> 环境变量名
	environ  func() []string
}

// NewEnvSource 创建环境变量数据源
func NewEnvSource(prefix string, priority int) *EnvSource {
	return &EnvSource{
		prefix:   strings.TrimSuffix(prefix, "_"),
		priority: priority,
		bindings: make(map[string]string),
		environ:  os.Environ,
	}
}

// AddBinding 显式绑定，例如 AddBinding("discovery.etcd.endpoints", "ETCD_ENDPOINTS")
func (s *EnvSource) AddBinding(key, envKey string) *EnvSource {
	s.bindings[key] = envKey
	return s
}

// Name 数据源名称
func (s *EnvSource) Name() string {
	return "env:" + s.prefix
}

// Priority 优先级
func (s *EnvSource) Priority() int {
	return s.priority
}

// Load 扫描前缀匹配的环境变量，显式绑定优先
func (s *EnvSource) Load() (map[string]interface{}, error) {
	result := make(map[string]interface{})

	if s.prefix != "" {
		prefix := s.prefix + "_"
		for _, kv := range s.environ() {
			name, value, ok := strings.Cut(kv, "=")
			if !ok || !strings.HasPrefix(name, prefix) {
				continue
			}
			if key := envToKey(strings.TrimPrefix(name, prefix)); key != "" {
				result[key] = value
			}
		}
	}

	for key, envKey := range s.bindings {
		if value, ok := s.lookup(envKey); ok {
			result[key] = value
		}
	}
	return result, nil
}

func (s *EnvSource) lookup(envKey string) (string, bool) {
	for _, kv := range s.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok && name == envKey && value != "" {
			return value, true
		}
	}
	return "", false
}

// envToKey SERVER_PORT -> server.port, MAX__ATTEMPTS -> max_attempts
func envToKey(name string) string {
	const placeholder = "\x00"
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "__", placeholder)
	name = strings.ReplaceAll(name, "_", ".")
	return strings.ReplaceAll(name, placeholder, "_")
}
