package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Taro2021/springcloud/breaker"
	"github.com/Taro2021/springcloud/config"
	"github.com/Taro2021/springcloud/governance"
	"github.com/Taro2021/springcloud/httpclient"
	"github.com/Taro2021/springcloud/limiter"
	"github.com/Taro2021/springcloud/logger"
	"github.com/Taro2021/springcloud/redis"
	"github.com/Taro2021/springcloud/telemetry"
	"github.com/alicebob/miniredis/v2"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseConfig = `
discovery:
  type: static
  static:
    cloud-payment-service:
      - 127.0.0.1:8001
      - 127.0.0.1:8002
limiter:
  enabled: true
  store_type: memory
  resources:
    /test1:
      rate: 1
      capacity: 1
breaker:
  resources:
    order_test3:
      request_volume_threshold: 7
httpclient:
  timeout: 2s
`

func newInjector(t *testing.T, yaml string) *do.RootScope {
	t.Helper()
	dir := t.TempDir()
	yaml = "logger:\n  level: error\n  enable_file: false\n" + yaml
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	injector := NewInjector(ConfigOptions{AppName: "order", ConfigPath: dir, Env: "test"})
	t.Cleanup(func() { _ = Shutdown(injector) })
	return injector
}

func TestRegisterCoreProviders(t *testing.T) {
	injector := newInjector(t, baseConfig)
	ctx := context.Background()

	log, err := do.Invoke[*logger.CtxZapLogger](injector)
	require.NoError(t, err)
	require.NoError(t, StartCoreComponents(ctx, injector, log))

	lim := do.MustInvoke[*limiter.Manager](injector)
	assert.True(t, lim.IsEnabled())
	ok, err := lim.Allow(ctx, "/test1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = lim.Allow(ctx, "/test1")
	assert.False(t, ok)

	selector := do.MustInvoke[*governance.Selector](injector)
	inst, err := selector.Pick(ctx, "cloud-payment-service")
	require.NoError(t, err)
	assert.Equal(t, 8002, inst.Port)

	tm := do.MustInvoke[*telemetry.Manager](injector)
	assert.False(t, tm.IsEnabled())
	assert.Equal(t, "order", tm.GetConfig().ServiceName)

	_, err = do.Invoke[*httpclient.Client](injector)
	assert.NoError(t, err)

	redisMgr, err := do.Invoke[*redis.Manager](injector)
	require.NoError(t, err)
	assert.Nil(t, redisMgr)

	registry, err := do.Invoke[*governance.EtcdRegistry](injector)
	require.NoError(t, err)
	assert.Nil(t, registry)
}

func TestProvideBreakerManager_Policies(t *testing.T) {
	injector := newInjector(t, baseConfig)
	do.ProvideValue(injector, BreakerPolicies{
		"order.test3": {RequestVolumeThreshold: 5, SleepWindow: 5 * time.Second},
		"order.ok":    {Timeout: 3 * time.Second},
	})

	m := do.MustInvoke[*breaker.Manager](injector)
	assert.Equal(t, 7, m.Policy("order.test3").RequestVolumeThreshold)
	assert.Equal(t, 3*time.Second, m.Policy("order.ok").Timeout)
	assert.Equal(t, time.Second, m.Policy("order.other").Timeout)
}

func TestProvideLimiterManager_Redis(t *testing.T) {
	t.Run("requires redis section", func(t *testing.T) {
		injector := newInjector(t, "limiter:\n  enabled: true\n  store_type: redis\n")
		_, err := do.Invoke[*limiter.Manager](injector)
		assert.Error(t, err)
	})

	t.Run("uses redis client", func(t *testing.T) {
		mr := miniredis.RunT(t)
		injector := newInjector(t, "redis:\n  enabled: true\n  addr: "+mr.Addr()+
			"\nlimiter:\n  enabled: true\n  store_type: redis\n  resources:\n    byresource:\n      rate: 1\n      capacity: 1\n")

		lim, err := do.Invoke[*limiter.Manager](injector)
		require.NoError(t, err)
		ok, err := lim.Allow(context.Background(), "byResource")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotEmpty(t, mr.Keys())
	})
}

func TestProvideGovernanceConfig_Invalid(t *testing.T) {
	injector := newInjector(t, "discovery:\n  type: zookeeper\n")
	_, err := do.Invoke[*governance.Selector](injector)
	assert.Error(t, err)
}

func TestRegisterService_Disabled(t *testing.T) {
	injector := newInjector(t, baseConfig)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RegisterService(ctx, injector, 8001) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RegisterService did not return after cancel")
	}
}

func TestServiceInfo(t *testing.T) {
	info := serviceInfo(governance.RegisterConfig{
		ServiceName: "cloud-payment-service",
		Address:     "10.0.0.1",
		TTL:         10,
	}, 8001)
	require.NoError(t, info.Validate())
	assert.Equal(t, "cloud-payment-service-10.0.0.1-8001", info.InstanceID)
	assert.Equal(t, "http", info.Protocol)

	local := serviceInfo(governance.RegisterConfig{ServiceName: "cloud-payment-service"}, 8001)
	assert.NotEmpty(t, local.Address)
}

func TestProvideConfigLoader_Value(t *testing.T) {
	loader := config.NewLoader()
	require.NoError(t, loader.Load())

	injector := do.New()
	do.Provide(injector, config.ProvideLoaderValue(loader))
	do.Provide(injector, ProvideGovernanceConfig)

	cfg, err := do.Invoke[governance.Config](injector)
	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Type)
	assert.Equal(t, "round_robin", cfg.Balancer)
}
