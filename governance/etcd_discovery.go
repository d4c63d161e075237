package governance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Taro2021/springcloud/logger"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// EtcdDiscovery etcd service discovery implementation
type EtcdDiscovery struct {
	client *clientv3.Client
	ctx    context.Context
	cancel context.CancelFunc
	logger *logger.CtxZapLogger

	// ownsClient closes client on Stop
	ownsClient bool
}

// NewEtcdDiscovery creates an etcd-backed discovery over an existing client
func NewEtcdDiscovery(client *clientv3.Client, log *logger.CtxZapLogger) *EtcdDiscovery {
	if log == nil {
		log = logger.GetLogger("springcloud")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &EtcdDiscovery{
		client: client,
		ctx:    ctx,
		cancel: cancel,
		logger: log,
	}
}

// Discover reads every instance under /services/<name>/
func (d *EtcdDiscovery) Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error) {
	resp, err := d.client.Get(ctx, serviceKeyPrefix(serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("query service %s: %w", serviceName, err)
	}

	instances := make([]*ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		instance, err := parseServiceInstance(serviceName, string(kv.Key), kv.Value)
		if err != nil {
			d.logger.WarnCtx(ctx, "failed to parse service instance",
				zap.String("key", string(kv.Key)),
				zap.Error(err))
			continue
		}
		instances = append(instances, instance)
	}
	sortInstances(instances)

	d.logger.DebugCtx(ctx, "✅ service discovery successful",
		zap.String("service", serviceName),
		zap.Int("instances", len(instances)))

	return instances, nil
}

// Watch for service changes
func (d *EtcdDiscovery) Watch(ctx context.Context, serviceName string) (<-chan []*ServiceInstance, error) {
	initial, err := d.Discover(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	state := make(map[string]*ServiceInstance, len(initial))
	for _, inst := range initial {
		state[inst.ID] = inst
	}

	out := make(chan []*ServiceInstance, 10)
	go d.watchChanges(ctx, serviceName, state, out)
	return out, nil
}

func (d *EtcdDiscovery) watchChanges(ctx context.Context, serviceName string, state map[string]*ServiceInstance, out chan []*ServiceInstance) {
	defer close(out)

	watchCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-watchCtx.Done():
		}
	}()

	watchChan := d.client.Watch(watchCtx, serviceKeyPrefix(serviceName), clientv3.WithPrefix())
	d.logger.DebugCtx(ctx, "🔍 watching service changes", zap.String("service", serviceName))

	for {
		select {
		case <-watchCtx.Done():
			d.logger.DebugCtx(ctx, "stop service watcher", zap.String("service", serviceName))
			return

		case watchResp, ok := <-watchChan:
			if !ok {
				d.logger.WarnCtx(ctx, "watch channel closed", zap.String("service", serviceName))
				return
			}
			if err := watchResp.Err(); err != nil {
				d.logger.ErrorCtx(ctx, "watch error",
					zap.String("service", serviceName),
					zap.Error(err))
				continue
			}

			if !applyWatchEvents(serviceName, state, watchResp.Events, d.logger) {
				continue
			}

			select {
			case out <- snapshotInstances(state):
			case <-watchCtx.Done():
				return
			}
		}
	}
}

// applyWatchEvents folds put/delete events into state, reporting whether anything changed
func applyWatchEvents(serviceName string, state map[string]*ServiceInstance, events []*clientv3.Event, log *logger.CtxZapLogger) bool {
	changed := false
	for _, event := range events {
		key := string(event.Kv.Key)

		switch event.Type {
		case clientv3.EventTypePut:
			instance, err := parseServiceInstance(serviceName, key, event.Kv.Value)
			if err != nil {
				log.Warn("failed to parse service instance", zap.String("key", key), zap.Error(err))
				continue
			}
			if _, exists := state[instance.ID]; !exists {
				log.Debug("🟢 service instance online",
					zap.String("service", serviceName),
					zap.String("instance", instance.ID),
					zap.String("address", instance.Addr()))
			}
			state[instance.ID] = instance
			changed = true

		case clientv3.EventTypeDelete:
			instanceID := extractInstanceIDFromKey(key)
			if _, exists := state[instanceID]; exists {
				log.Warn("🔴 service instance offline",
					zap.String("service", serviceName),
					zap.String("instance", instanceID))
				delete(state, instanceID)
				changed = true
			}
		}
	}
	return changed
}

func snapshotInstances(state map[string]*ServiceInstance) []*ServiceInstance {
	instances := make([]*ServiceInstance, 0, len(state))
	for _, inst := range state {
		instances = append(instances, inst)
	}
	sortInstances(instances)
	return instances
}

// Stop stops every watcher started by this discovery
func (d *EtcdDiscovery) Stop() {
	d.cancel()
	if d.ownsClient {
		_ = d.client.Close()
	}
	d.logger.DebugCtx(context.Background(), "✅ etcd service discovery stopped")
}

// parseServiceInstance accepts a JSON ServiceInfo value or a bare "host:port"
func parseServiceInstance(serviceName, key string, value []byte) (*ServiceInstance, error) {
	instanceID := extractInstanceIDFromKey(key)

	var info ServiceInfo
	if err := json.Unmarshal(value, &info); err != nil {
		raw := string(value)
		port := parsePort(raw)
		if port == 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
		}
		return &ServiceInstance{
			ID:       instanceID,
			Service:  serviceName,
			Address:  parseAddress(raw),
			Port:     port,
			Metadata: make(map[string]string),
			Weight:   100,
			Healthy:  true,
		}, nil
	}

	weight := info.Weight
	if weight <= 0 {
		weight = 100
	}
	metadata := info.Metadata
	if metadata == nil {
		metadata = make(map[string]string)
	}
	return &ServiceInstance{
		ID:       instanceID,
		Service:  serviceName,
		Address:  info.Address,
		Port:     info.Port,
		Metadata: metadata,
		Weight:   weight,
		Healthy:  true,
	}, nil
}

// Key format: /services/{serviceName}/{instanceID}
func extractInstanceIDFromKey(key string) string {
	parts := strings.Split(key, "/")
	return parts[len(parts)-1]
}

// "127.0.0.1:9002" -> "127.0.0.1"
func parseAddress(addr string) string {
	if idx := strings.LastIndex(addr, ":"); idx > 0 {
		return addr[:idx]
	}
	return addr
}

// "127.0.0.1:9002" -> 9002
func parsePort(addr string) int {
	if idx := strings.LastIndex(addr, ":"); idx > 0 && idx < len(addr)-1 {
		var port int
		_, _ = fmt.Sscanf(addr[idx+1:], "%d", &port)
		return port
	}
	return 0
}
