package governance

import (
	"context"
	"fmt"
	"time"

	"github.com/Taro2021/springcloud/logger"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// servicePrefix Key format: /services/{serviceName}/{instanceID}
const servicePrefix = "/services/"

// NewEtcdClient connects to etcd and checks the first endpoint's status
func NewEtcdClient(cfg EtcdRegistryConfig, log *logger.CtxZapLogger) (*clientv3.Client, error) {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("etcd endpoints are empty")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
		Logger:      log.GetZapLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to etcd: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if _, err := client.Status(ctx, cfg.Endpoints[0]); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("etcd health check failed: %w", err)
	}

	log.DebugCtx(ctx, "✅ etcd connection successful", zap.Strings("endpoints", cfg.Endpoints))
	return client, nil
}

func serviceKeyPrefix(serviceName string) string {
	return servicePrefix + serviceName + "/"
}

func serviceKey(serviceName, instanceID string) string {
	return serviceKeyPrefix(serviceName) + instanceID
}
