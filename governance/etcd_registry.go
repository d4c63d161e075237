package governance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Taro2021/springcloud/logger"
	"github.com/Taro2021/springcloud/retry"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// EtcdRegistry etcd 服务注册实现（租约 + KeepAlive）
type EtcdRegistry struct {
	client      *clientv3.Client
	serviceInfo *ServiceInfo

	leaseID     clientv3.LeaseID
	keepAliveCh <-chan *clientv3.LeaseKeepAliveResponse

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	registered bool

	// re-registration after the keepalive channel closes
	retryAttempts int
	retryBackoff  retry.BackoffStrategy

	logger *logger.CtxZapLogger
}

// NewEtcdRegistry 创建 etcd 注册器
func NewEtcdRegistry(client *clientv3.Client, log *logger.CtxZapLogger) *EtcdRegistry {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &EtcdRegistry{
		client:        client,
		ctx:           ctx,
		cancel:        cancel,
		retryAttempts: 10,
		retryBackoff:  retry.ExponentialBackoff(time.Second, retry.WithMaxDelay(30*time.Second)),
		logger:        log,
	}
}

// Register 注册服务（幂等，重复注册会先停止旧心跳）
func (r *EtcdRegistry) Register(ctx context.Context, info *ServiceInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.registered {
		r.logger.WarnCtx(ctx, "service already registered, will re-register")
		r.cancel()
		r.ctx, r.cancel = context.WithCancel(context.Background())
	}

	return r.registerLocked(ctx, info)
}

func (r *EtcdRegistry) registerLocked(ctx context.Context, info *ServiceInfo) error {
	r.serviceInfo = info

	leaseResp, err := r.client.Grant(ctx, info.TTL)
	if err != nil {
		return fmt.Errorf("grant lease: %w", err)
	}
	r.leaseID = leaseResp.ID

	key := serviceKey(info.ServiceName, info.InstanceID)
	value, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal service info: %w", err)
	}

	if _, err := r.client.Put(ctx, key, string(value), clientv3.WithLease(r.leaseID)); err != nil {
		_, _ = r.client.Revoke(context.Background(), r.leaseID)
		return fmt.Errorf("put service: %w", err)
	}

	keepAliveCh, err := r.client.KeepAlive(r.ctx, r.leaseID)
	if err != nil {
		_, _ = r.client.Delete(context.Background(), key)
		_, _ = r.client.Revoke(context.Background(), r.leaseID)
		return fmt.Errorf("start keepalive: %w", err)
	}

	r.keepAliveCh = keepAliveCh
	r.registered = true
	go r.monitorKeepAlive(r.ctx, keepAliveCh)

	r.logger.DebugCtx(ctx, "✅ service registered to etcd",
		zap.String("key", key),
		zap.String("service", info.ServiceName),
		zap.String("instance", info.InstanceID),
		zap.Int64("ttl", info.TTL),
		zap.String("lease_id", fmt.Sprintf("%x", r.leaseID)))

	return nil
}

// Deregister 注销服务
func (r *EtcdRegistry) Deregister(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.registered {
		return ErrNotRegistered
	}

	r.cancel()

	key := serviceKey(r.serviceInfo.ServiceName, r.serviceInfo.InstanceID)
	if _, err := r.client.Delete(ctx, key); err != nil {
		r.logger.ErrorCtx(ctx, "failed to delete service", zap.Error(err))
	}
	if r.leaseID > 0 {
		if _, err := r.client.Revoke(ctx, r.leaseID); err != nil {
			r.logger.ErrorCtx(ctx, "failed to revoke lease", zap.Error(err))
		}
	}

	r.registered = false
	r.logger.DebugCtx(ctx, "✅ service deregistered from etcd", zap.String("key", key))
	return nil
}

// IsRegistered 检查服务是否已注册
func (r *EtcdRegistry) IsRegistered() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registered
}

// Close 停止心跳并关闭客户端
func (r *EtcdRegistry) Close() error {
	r.cancel()
	return r.client.Close()
}

// Shutdown 注销（如已注册）后关闭客户端
func (r *EtcdRegistry) Shutdown(ctx context.Context) error {
	if r.IsRegistered() {
		if err := r.Deregister(ctx); err != nil && !errors.Is(err, ErrNotRegistered) {
			r.logger.WarnCtx(ctx, "⚠️  deregister on shutdown failed", zap.Error(err))
		}
	}
	return r.Close()
}

func (r *EtcdRegistry) monitorKeepAlive(ctx context.Context, ch <-chan *clientv3.LeaseKeepAliveResponse) {
	for {
		select {
		case <-ctx.Done():
			return
		case resp, ok := <-ch:
			if !ok {
				r.handleKeepAliveFailure(ctx)
				return
			}
			if resp != nil {
				r.logger.DebugCtx(ctx, "heartbeat renewed", zap.Int64("ttl", resp.TTL))
			}
		}
	}
}

// handleKeepAliveFailure re-registers with exponential backoff
func (r *EtcdRegistry) handleKeepAliveFailure(ctx context.Context) {
	r.mu.Lock()
	r.registered = false
	info := r.serviceInfo
	r.mu.Unlock()

	r.logger.ErrorCtx(ctx, "❌ heartbeat channel closed, starting re-registration",
		zap.String("service", info.ServiceName),
		zap.Error(ErrKeepAliveFailed))

	err := retry.Do(ctx, func(ctx context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.registerLocked(ctx, info)
	},
		retry.MaxAttempts(r.retryAttempts),
		retry.Backoff(r.retryBackoff),
		retry.OnRetry(func(attempt int, err error) {
			r.logger.WarnCtx(ctx, "⚠️  re-registration failed", zap.Int("attempt", attempt), zap.Error(err))
		}),
	)
	if err != nil {
		r.logger.ErrorCtx(ctx, "❌ re-registration gave up", zap.Error(err))
	}
}
