package config

// ConfigSource 配置数据源（文件、环境变量、命令行参数）
type ConfigSource interface {
	// Name 数据源名称（日志与调试用）
	Name() string

	// Priority 数值越大优先级越高：
	// config.yaml 10, <env>.yaml 20, 环境变量 50, 命令行参数 100
	Priority() int

	// Load 返回点号分隔 key 的扁平 map，如 "server.port"
	Load() (map[string]interface{}, error)
}

// 内置数据源的优先级
const (
	PriorityBaseFile = 10
	PriorityEnvFile  = 20
	PriorityEnv      = 50
	PriorityFlag     = 100
)
