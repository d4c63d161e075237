package governance

import (
	"context"
	"fmt"
	"sync"

	"github.com/Taro2021/springcloud/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Selector 服务实例选择器：服务发现 + 每个服务一个负载均衡器
type Selector struct {
	discovery ServiceDiscovery
	config    Config
	balancers map[string]LoadBalancer
	sf        singleflight.Group
	mu        sync.RWMutex
	logger    *logger.CtxZapLogger
}

// NewSelector 创建实例选择器
func NewSelector(discovery ServiceDiscovery, cfg Config, log *logger.CtxZapLogger) *Selector {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}
	cfg.ApplyDefaults()

	return &Selector{
		discovery: discovery,
		config:    cfg,
		balancers: make(map[string]LoadBalancer),
		logger:    log,
	}
}

// For returns the balancer of service, creating it on first use.
// Each service keeps its own round robin counter.
func (s *Selector) For(service string) (LoadBalancer, error) {
	s.mu.RLock()
	lb, ok := s.balancers[service]
	s.mu.RUnlock()
	if ok {
		return lb, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lb, ok := s.balancers[service]; ok {
		return lb, nil
	}

	lb, err := NewLoadBalancer(s.config.BalancerFor(service))
	if err != nil {
		return nil, err
	}
	s.balancers[service] = lb
	return lb, nil
}

// Use replaces the balancer of service
func (s *Selector) Use(service string, lb LoadBalancer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balancers[service] = lb
}

// Pick discovers the healthy instances of service and selects one
func (s *Selector) Pick(ctx context.Context, service string) (*ServiceInstance, error) {
	lb, err := s.For(service)
	if err != nil {
		return nil, err
	}

	instances, err := s.discover(ctx, service)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", service, err)
	}

	instances = HealthyOnly(instances)
	instance, err := lb.Select(instances)
	if err != nil {
		s.logger.WarnCtx(ctx, "no instance available",
			zap.String("service", service),
			zap.Error(err))
		return nil, err
	}

	s.logger.DebugCtx(ctx, "instance selected",
		zap.String("service", service),
		zap.String("balancer", lb.Name()),
		zap.String("instance", instance.ID))
	return instance, nil
}

// discover 同一服务的并发查询共享一次 Discover 调用。
// 共享调用不随任何调用方取消，每个调用方只等待自己的 ctx
func (s *Selector) discover(ctx context.Context, service string) ([]*ServiceInstance, error) {
	ch := s.sf.DoChan(service, func() (interface{}, error) {
		return s.discovery.Discover(context.WithoutCancel(ctx), service)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]*ServiceInstance), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Discovery returns the underlying discovery
func (s *Selector) Discovery() ServiceDiscovery {
	return s.discovery
}

// Shutdown 停止底层服务发现
func (s *Selector) Shutdown() {
	s.discovery.Stop()
}

// NewDiscovery 根据配置创建服务发现（static / etcd）
func NewDiscovery(cfg Config, log *logger.CtxZapLogger) (ServiceDiscovery, error) {
	cfg.ApplyDefaults()

	switch cfg.Type {
	case "static":
		return NewStaticDiscovery(cfg.Static, log)
	case "etcd":
		client, err := NewEtcdClient(cfg.Etcd, log)
		if err != nil {
			return nil, err
		}
		d := NewEtcdDiscovery(client, log)
		d.ownsClient = true
		return d, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDiscovery, cfg.Type)
	}
}
