package governance

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstances(ids ...string) []*ServiceInstance {
	instances := make([]*ServiceInstance, 0, len(ids))
	for i, id := range ids {
		instances = append(instances, &ServiceInstance{
			ID:      id,
			Service: "cloud-payment-service",
			Address: "127.0.0.1",
			Port:    8001 + i,
			Weight:  100,
			Healthy: true,
		})
	}
	return instances
}

func selectIDs(t *testing.T, lb LoadBalancer, instances []*ServiceInstance, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		inst, err := lb.Select(instances)
		require.NoError(t, err)
		ids = append(ids, inst.ID)
	}
	return ids
}

func TestRoundRobinBalancer_Sequence(t *testing.T) {
	lb := NewRoundRobinBalancer()
	instances := newInstances("A", "B", "C")

	// 计数器保存上一次的下标，首个选择为下标 1
	assert.Equal(t, []string{"B", "C", "A", "B", "C", "A"}, selectIDs(t, lb, instances, 6))
	assert.Equal(t, int64(0), lb.Counter())
}

func TestRoundRobinBalancer_SingleInstance(t *testing.T) {
	lb := NewRoundRobinBalancer()
	instances := newInstances("only")

	assert.Equal(t, []string{"only", "only", "only"}, selectIDs(t, lb, instances, 3))
}

func TestRoundRobinBalancer_Empty(t *testing.T) {
	lb := NewRoundRobinBalancer()

	inst, err := lb.Select(nil)
	assert.Nil(t, inst)
	assert.ErrorIs(t, err, ErrEmptyInstanceSet)

	_, err = lb.Select([]*ServiceInstance{})
	assert.ErrorIs(t, err, ErrEmptyInstanceSet)
	assert.Equal(t, int64(0), lb.Counter(), "empty selection must not move the counter")
}

func TestRoundRobinBalancer_WrapAtMaxInt(t *testing.T) {
	lb := NewRoundRobinBalancerAt(math.MaxInt64)
	instances := newInstances("A", "B", "C")

	inst, err := lb.Select(instances)
	require.NoError(t, err)
	assert.Equal(t, "B", inst.ID)
	assert.Equal(t, int64(1), lb.Counter())
}

func TestRoundRobinBalancer_NegativeStart(t *testing.T) {
	lb := NewRoundRobinBalancerAt(-5)
	assert.Equal(t, int64(0), lb.Counter())
}

func TestRoundRobinBalancer_ShrinkingSet(t *testing.T) {
	lb := NewRoundRobinBalancerAt(4)

	// 存储的下标可能超出新的实例数，取模后仍然有效
	inst, err := lb.Select(newInstances("A", "B"))
	require.NoError(t, err)
	assert.Equal(t, "B", inst.ID)
}

func TestRoundRobinBalancer_Concurrent(t *testing.T) {
	const (
		workers = 16
		rounds  = 300
	)
	lb := NewRoundRobinBalancer()
	instances := newInstances("A", "B", "C")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		counts = make(map[string]int)
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make(map[string]int)
			for i := 0; i < rounds; i++ {
				inst, err := lb.Select(instances)
				if err != nil {
					t.Error(err)
					return
				}
				local[inst.ID]++
			}
			mu.Lock()
			for id, n := range local {
				counts[id] += n
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	// workers*rounds 是 3 的倍数，每个实例恰好被选中相同次数
	total := workers * rounds
	for _, id := range []string{"A", "B", "C"} {
		assert.Equal(t, total/3, counts[id], id)
	}
}

func TestRandomBalancer(t *testing.T) {
	lb := NewRandomBalancer()
	instances := newInstances("A", "B", "C")

	for i := 0; i < 50; i++ {
		inst, err := lb.Select(instances)
		require.NoError(t, err)
		assert.Contains(t, []string{"A", "B", "C"}, inst.ID)
	}

	_, err := lb.Select(nil)
	assert.ErrorIs(t, err, ErrEmptyInstanceSet)
	assert.Equal(t, "random", lb.Name())
}

func TestWeightedBalancer(t *testing.T) {
	lb := NewWeightedBalancer()
	instances := newInstances("A", "B")
	instances[0].Weight = 3
	instances[1].Weight = 1

	assert.Equal(t, []string{"A", "A", "A", "B", "A", "A", "A", "B"}, selectIDs(t, lb, instances, 8))

	t.Run("no positive weight falls back to round robin", func(t *testing.T) {
		lb := NewWeightedBalancer()
		instances := newInstances("A", "B")
		instances[0].Weight = 0
		instances[1].Weight = 0

		assert.Equal(t, []string{"A", "B", "A"}, selectIDs(t, lb, instances, 3))
	})
}

func TestNewLoadBalancer(t *testing.T) {
	for _, name := range []string{"round_robin", "random", "weighted"} {
		lb, err := NewLoadBalancer(name)
		require.NoError(t, err)
		assert.Equal(t, name, lb.Name())
	}

	lb, err := NewLoadBalancer("")
	require.NoError(t, err)
	assert.Equal(t, "round_robin", lb.Name())

	_, err = NewLoadBalancer("least_conn")
	assert.ErrorIs(t, err, ErrUnknownBalancer)
}
