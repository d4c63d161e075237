// Package redis 创建并持有限流器 redis 存储使用的 go-redis 客户端
package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/Taro2021/springcloud/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Manager 持有一个 redis 客户端
type Manager struct {
	client *redis.Client
	config Config
	logger *logger.CtxZapLogger
	once   sync.Once
}

// NewManager 按配置创建客户端并 Ping
func NewManager(ctx context.Context, cfg Config, log *logger.CtxZapLogger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s failed: %w", cfg.Addr, err)
	}

	log.InfoCtx(ctx, "✅ Redis connected",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.Int("pool_size", cfg.PoolSize))

	return &Manager{client: client, config: cfg, logger: log}, nil
}

// Client 获取客户端
func (m *Manager) Client() *redis.Client {
	return m.client
}

// Ping 检查连接
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis %s failed: %w", m.config.Addr, err)
	}
	return nil
}

// Close 关闭连接，可重复调用
func (m *Manager) Close() error {
	var err error
	m.once.Do(func() {
		err = m.client.Close()
		if err != nil {
			m.logger.ErrorCtx(context.Background(), "failed to close Redis connection",
				zap.String("addr", m.config.Addr), zap.Error(err))
			return
		}
		m.logger.DebugCtx(context.Background(), "Redis connection closed",
			zap.String("addr", m.config.Addr))
	})
	return err
}

// Shutdown 实现 do.Shutdowner，容器关闭时断开连接
func (m *Manager) Shutdown() error {
	return m.Close()
}
