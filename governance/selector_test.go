package governance

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Taro2021/springcloud/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type countingDiscovery struct {
	instances []*ServiceInstance
	err       error
	delay     time.Duration
	calls     atomic.Int32
}

func (d *countingDiscovery) Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error) {
	d.calls.Add(1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	return d.instances, d.err
}

func (d *countingDiscovery) Watch(ctx context.Context, serviceName string) (<-chan []*ServiceInstance, error) {
	return nil, errors.New("not supported")
}

func (d *countingDiscovery) Stop() {}

func TestSelector_Pick(t *testing.T) {
	tl := logger.NewTestLogger("governance")
	d := &countingDiscovery{instances: newInstances("A", "B", "C")}
	s := NewSelector(d, DefaultConfig(), tl.CtxZapLogger)

	var ids []string
	for i := 0; i < 4; i++ {
		inst, err := s.Pick(context.Background(), "cloud-payment-service")
		require.NoError(t, err)
		ids = append(ids, inst.ID)
	}
	assert.Equal(t, []string{"B", "C", "A", "B"}, ids)
	assert.True(t, tl.HasLog(zapcore.DebugLevel, "instance selected"))
}

func TestSelector_SkipsUnhealthy(t *testing.T) {
	d := &countingDiscovery{instances: newInstances("A", "B", "C")}
	d.instances[1].Healthy = false
	s := NewSelector(d, DefaultConfig(), nil)

	inst, err := s.Pick(context.Background(), "svc")
	require.NoError(t, err)
	assert.Equal(t, "C", inst.ID)
}

func TestSelector_EmptyAndUnhealthy(t *testing.T) {
	tl := logger.NewTestLogger("governance")

	s := NewSelector(&countingDiscovery{}, DefaultConfig(), tl.CtxZapLogger)
	_, err := s.Pick(context.Background(), "svc")
	assert.ErrorIs(t, err, ErrEmptyInstanceSet)

	down := newInstances("A")
	down[0].Healthy = false
	s = NewSelector(&countingDiscovery{instances: down}, DefaultConfig(), tl.CtxZapLogger)
	_, err = s.Pick(context.Background(), "svc")
	assert.ErrorIs(t, err, ErrEmptyInstanceSet)
	assert.Equal(t, 2, tl.CountMessage(zapcore.WarnLevel, "no instance available"))
}

func TestSelector_DiscoverError(t *testing.T) {
	boom := errors.New("registry down")
	s := NewSelector(&countingDiscovery{err: boom}, DefaultConfig(), nil)

	_, err := s.Pick(context.Background(), "svc")
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "discover svc")
}

func TestSelector_PerServiceBalancer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Balancers = map[string]string{"cloud-order-service": "random"}
	s := NewSelector(&countingDiscovery{}, cfg, nil)

	lb, err := s.For("cloud-payment-service")
	require.NoError(t, err)
	assert.Equal(t, "round_robin", lb.Name())

	same, err := s.For("cloud-payment-service")
	require.NoError(t, err)
	assert.Same(t, lb, same)

	lb, err = s.For("cloud-order-service")
	require.NoError(t, err)
	assert.Equal(t, "random", lb.Name())

	custom := NewRoundRobinBalancerAt(2)
	s.Use("svc", custom)
	got, _ := s.For("svc")
	assert.Same(t, custom, got)
}

func TestSelector_UnknownBalancer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Balancer = "least_conn"
	s := NewSelector(&countingDiscovery{}, cfg, nil)

	_, err := s.Pick(context.Background(), "svc")
	assert.ErrorIs(t, err, ErrUnknownBalancer)
}

func TestSelector_CoalescesDiscover(t *testing.T) {
	d := &countingDiscovery{instances: newInstances("A", "B"), delay: 50 * time.Millisecond}
	s := NewSelector(d, DefaultConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Pick(context.Background(), "svc")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Less(t, d.calls.Load(), int32(10))
}

func TestNewDiscovery(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Static = map[string][]string{"svc": {"127.0.0.1:8001"}}

	d, err := NewDiscovery(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &StaticDiscovery{}, d)

	cfg.Type = "consul"
	_, err = NewDiscovery(cfg, nil)
	assert.ErrorIs(t, err, ErrUnknownDiscovery)
}

// gatedDiscovery 阻塞到 release 关闭，ctx 取消时提前返回
type gatedDiscovery struct {
	countingDiscovery
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (d *gatedDiscovery) Discover(ctx context.Context, serviceName string) ([]*ServiceInstance, error) {
	d.calls.Add(1)
	d.once.Do(func() { close(d.started) })
	select {
	case <-d.release:
		return d.instances, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSelector_CanceledCallerDoesNotFailOthers(t *testing.T) {
	d := &gatedDiscovery{
		countingDiscovery: countingDiscovery{instances: newInstances("A", "B")},
		started:           make(chan struct{}),
		release:           make(chan struct{}),
	}
	s := NewSelector(d, DefaultConfig(), nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := s.Pick(ctxA, "svc")
		errA <- err
	}()
	<-d.started

	type pick struct {
		instance *ServiceInstance
		err      error
	}
	resB := make(chan pick, 1)
	go func() {
		inst, err := s.Pick(context.Background(), "svc")
		resB <- pick{inst, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(d.release)
	b := <-resB
	require.NoError(t, b.err)
	assert.NotNil(t, b.instance)
	assert.Equal(t, int32(1), d.calls.Load(), "second caller joined the shared lookup")
}
