package governance

import (
	"context"
	"fmt"
	"sync"

	"github.com/Taro2021/springcloud/logger"
	"go.uber.org/zap"
)

// StaticDiscovery in-memory service discovery fed from configuration or Set
type StaticDiscovery struct {
	services map[string][]*ServiceInstance
	watchers map[string][]chan []*ServiceInstance
	mu       sync.RWMutex
	stopped  bool
	logger   *logger.CtxZapLogger
}

// NewStaticDiscovery 创建静态服务发现，static 为 service -> ["host:port", ...]
func NewStaticDiscovery(static map[string][]string, log *logger.CtxZapLogger) (*StaticDiscovery, error) {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}

	d := &StaticDiscovery{
		services: make(map[string][]*ServiceInstance, len(static)),
		watchers: make(map[string][]chan []*ServiceInstance),
		logger:   log,
	}

	for service, addrs := range static {
		instances, err := InstancesFromAddrs(service, addrs)
		if err != nil {
			return nil, err
		}
		d.services[service] = instances
	}

	return d, nil
}

// InstancesFromAddrs builds healthy instances from "host:port" strings, keeping their order
func InstancesFromAddrs(service string, addrs []string) ([]*ServiceInstance, error) {
	instances := make([]*ServiceInstance, 0, len(addrs))
	for _, addr := range addrs {
		host, port, err := splitAddr(addr)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", service, err)
		}
		instances = append(instances, &ServiceInstance{
			ID:       instanceID(service, host, port),
			Service:  service,
			Address:  host,
			Port:     port,
			Metadata: make(map[string]string),
			Weight:   100,
			Healthy:  true,
		})
	}
	return instances, nil
}

// Discover returns a copy of the configured instance list (configuration order)
func (d *StaticDiscovery) Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	instances := make([]*ServiceInstance, len(d.services[serviceName]))
	copy(instances, d.services[serviceName])

	d.logger.DebugCtx(ctx, "static discovery",
		zap.String("service", serviceName),
		zap.Int("instances", len(instances)))

	return instances, nil
}

// Set replaces the instance list of a service and notifies watchers
func (d *StaticDiscovery) Set(serviceName string, instances []*ServiceInstance) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.services[serviceName] = instances
	for _, ch := range d.watchers[serviceName] {
		snapshot := make([]*ServiceInstance, len(instances))
		copy(snapshot, instances)
		select {
		case ch <- snapshot:
		default:
			d.logger.WarnCtx(context.Background(), "static discovery watcher is slow, update dropped",
				zap.String("service", serviceName))
		}
	}
}

// Services returns every known service name
func (d *StaticDiscovery) Services() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.services))
	for name := range d.services {
		names = append(names, name)
	}
	return names
}

// Watch registers a watcher that receives the full list after each Set
func (d *StaticDiscovery) Watch(ctx context.Context, serviceName string) (<-chan []*ServiceInstance, error) {
	ch := make(chan []*ServiceInstance, 10)

	d.mu.Lock()
	d.watchers[serviceName] = append(d.watchers[serviceName], ch)
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.removeWatcher(serviceName, ch)
	}()

	return ch, nil
}

func (d *StaticDiscovery) removeWatcher(serviceName string, target chan []*ServiceInstance) {
	d.mu.Lock()
	defer d.mu.Unlock()

	watchers := d.watchers[serviceName]
	for i, ch := range watchers {
		if ch == target {
			d.watchers[serviceName] = append(watchers[:i], watchers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Stop closes every watcher channel
func (d *StaticDiscovery) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	for _, watchers := range d.watchers {
		for _, ch := range watchers {
			close(ch)
		}
	}
	d.watchers = make(map[string][]chan []*ServiceInstance)
}
