package governance

import (
	"context"
	"sort"
)

// ServiceDiscovery service discovery interface (the registry collaborator seen by callers)
type ServiceDiscovery interface {
	// Discover returns the current instance list of a service, ordered by instance ID
	Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error)

	// Watch emits the full instance list each time it changes
	Watch(ctx context.Context, serviceName string) (<-chan []*ServiceInstance, error)

	// Stop stops all watchers
	Stop()
}

// ServiceInstance service instance information
type ServiceInstance struct {
	ID       string            `json:"id"`       // instance ID
	Service  string            `json:"service"`  // service name
	Address  string            `json:"address"`  // IP address
	Port     int               `json:"port"`     // port
	Metadata map[string]string `json:"metadata"` // metadata
	Weight   int               `json:"weight"`   // weight (for the weighted balancer)
	Healthy  bool              `json:"healthy"`  // health status
}

// Addr returns host:port
func (s *ServiceInstance) Addr() string {
	return joinHostPort(s.Address, s.Port)
}

// BaseURL returns the http base URL of the instance
func (s *ServiceInstance) BaseURL() string {
	scheme := "http"
	if v, ok := s.Metadata["scheme"]; ok && v != "" {
		scheme = v
	}
	return scheme + "://" + s.Addr()
}

// HealthyOnly returns the healthy subset, preserving order
func HealthyOnly(instances []*ServiceInstance) []*ServiceInstance {
	healthy := make([]*ServiceInstance, 0, len(instances))
	for _, inst := range instances {
		if inst != nil && inst.Healthy {
			healthy = append(healthy, inst)
		}
	}
	return healthy
}

// sortInstances orders instances by ID so round robin sees a stable sequence
func sortInstances(instances []*ServiceInstance) {
	sort.Slice(instances, func(i, j int) bool {
		return instances[i].ID < instances[j].ID
	})
}
