package governance

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync/atomic"
)

// LoadBalancer 负载均衡器接口
type LoadBalancer interface {
	// Select 选择一个服务实例，实例集为空时返回 ErrEmptyInstanceSet
	Select(instances []*ServiceInstance) (*ServiceInstance, error)

	// Name 负载均衡器名称
	Name() string
}

// RoundRobinBalancer 轮询负载均衡器
// 计数器保存上一次选中的下标，通过 CAS 自旋更新
type RoundRobinBalancer struct {
	counter atomic.Int64
}

// NewRoundRobinBalancer 创建轮询负载均衡器，第一次选择返回下标 1
func NewRoundRobinBalancer() *RoundRobinBalancer {
	return &RoundRobinBalancer{}
}

// NewRoundRobinBalancerAt 创建计数器初始值为 start 的轮询负载均衡器（负数按 0 处理）
func NewRoundRobinBalancerAt(start int64) *RoundRobinBalancer {
	b := &RoundRobinBalancer{}
	if start > 0 {
		b.counter.Store(start)
	}
	return b
}

// Select 轮询选择实例
func (b *RoundRobinBalancer) Select(instances []*ServiceInstance) (*ServiceInstance, error) {
	n := int64(len(instances))
	if n == 0 {
		return nil, ErrEmptyInstanceSet
	}

	for {
		current := b.counter.Load()
		base := current
		if base == math.MaxInt64 {
			base = 0
		}
		next := (base + 1) % n
		if b.counter.CompareAndSwap(current, next) {
			return instances[next], nil
		}
	}
}

// Counter returns the last stored index
func (b *RoundRobinBalancer) Counter() int64 {
	return b.counter.Load()
}

// Name 负载均衡器名称
func (b *RoundRobinBalancer) Name() string {
	return "round_robin"
}

// RandomBalancer 均匀随机选择
type RandomBalancer struct{}

func NewRandomBalancer() *RandomBalancer { return &RandomBalancer{} }

func (b *RandomBalancer) Select(instances []*ServiceInstance) (*ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrEmptyInstanceSet
	}
	return instances[rand.IntN(len(instances))], nil
}

func (b *RandomBalancer) Name() string { return "random" }

// WeightedBalancer 按 Weight 展开后轮询，全部权重非正时按实例轮询
type WeightedBalancer struct {
	next atomic.Uint64
}

func NewWeightedBalancer() *WeightedBalancer { return &WeightedBalancer{} }

func (b *WeightedBalancer) Select(instances []*ServiceInstance) (*ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrEmptyInstanceSet
	}

	var total uint64
	for _, inst := range instances {
		total += uint64(max(inst.Weight, 0))
	}
	ticket := b.next.Add(1) - 1
	if total == 0 {
		return instances[ticket%uint64(len(instances))], nil
	}

	ticket %= total
	for _, inst := range instances {
		w := uint64(max(inst.Weight, 0))
		if ticket < w {
			return inst, nil
		}
		ticket -= w
	}
	return instances[0], nil
}

func (b *WeightedBalancer) Name() string { return "weighted" }

// NewLoadBalancer 根据名称创建负载均衡器
func NewLoadBalancer(name string) (LoadBalancer, error) {
	switch name {
	case "round_robin", "":
		return NewRoundRobinBalancer(), nil
	case "random":
		return NewRandomBalancer(), nil
	case "weighted":
		return NewWeightedBalancer(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBalancer, name)
	}
}
