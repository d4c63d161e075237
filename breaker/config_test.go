package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 500, cfg.EventBusBuffer)
	assert.Equal(t, 100, cfg.PoolSize)
	assert.Equal(t, time.Second, cfg.Default.Timeout)
	assert.True(t, cfg.Default.Breaker())
	assert.Equal(t, 20, cfg.Default.RequestVolumeThreshold)
	assert.Equal(t, 50, cfg.Default.ErrorThresholdPercentage)
	assert.Equal(t, 5*time.Second, cfg.Default.SleepWindow)
	require.NoError(t, cfg.Validate())
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Default: Policy{Timeout: 3 * time.Second}}
	cfg.ApplyDefaults()

	assert.Equal(t, 500, cfg.EventBusBuffer)
	assert.Equal(t, 100, cfg.PoolSize)
	assert.Equal(t, 3*time.Second, cfg.Default.Timeout, "explicit value kept")
	assert.Equal(t, 10*time.Second, cfg.Default.WindowSize)
	assert.NotNil(t, cfg.Resources)
}

func TestConfig_PolicyFor(t *testing.T) {
	cfg := Config{
		Resources: map[string]Policy{
			"payment.circuit": {
				RequestVolumeThreshold:   10,
				ErrorThresholdPercentage: 60,
				SleepWindow:              10 * time.Second,
			},
			"payment.timeout": {
				Timeout:        3 * time.Second,
				BreakerEnabled: Bool(false),
			},
		},
	}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	circuit := cfg.PolicyFor("payment.circuit")
	assert.Equal(t, 10, circuit.RequestVolumeThreshold)
	assert.Equal(t, 60, circuit.ErrorThresholdPercentage)
	assert.Equal(t, 10*time.Second, circuit.SleepWindow)
	assert.Equal(t, time.Second, circuit.Timeout, "inherits default timeout")
	assert.True(t, circuit.Breaker())

	timeout := cfg.PolicyFor("payment.timeout")
	assert.Equal(t, 3*time.Second, timeout.Timeout)
	assert.False(t, timeout.Breaker())

	assert.Equal(t, cfg.Default, cfg.PolicyFor("unknown"))
}

func TestPolicy_Merge(t *testing.T) {
	base := DefaultPolicy()

	merged := base.Merge(Policy{})
	assert.Equal(t, base, merged)

	merged = base.Merge(Policy{BucketCount: 5, WindowSize: 5 * time.Second})
	assert.Equal(t, 5, merged.BucketCount)
	assert.Equal(t, 5*time.Second, merged.WindowSize)

	// Merge 复制指针，不共享 override 的值
	override := Policy{BreakerEnabled: Bool(false)}
	merged = base.Merge(override)
	*override.BreakerEnabled = true
	assert.False(t, merged.Breaker())
}

func TestPolicy_MergeZeroInherits(t *testing.T) {
	base := DefaultPolicy()
	base.RequestVolumeThreshold = 10
	base.ErrorThresholdPercentage = 60

	// 0 表示未设置，资源级策略无法把阈值覆盖为 0
	merged := base.Merge(Policy{RequestVolumeThreshold: 0, ErrorThresholdPercentage: 0})
	assert.Equal(t, 10, merged.RequestVolumeThreshold)
	assert.Equal(t, 60, merged.ErrorThresholdPercentage)

	merged = base.Merge(Policy{RequestVolumeThreshold: 1, ErrorThresholdPercentage: 1})
	assert.Equal(t, 1, merged.RequestVolumeThreshold)
	assert.Equal(t, 1, merged.ErrorThresholdPercentage)
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Policy)
		field  string
	}{
		{"timeout 为 0", func(p *Policy) { p.Timeout = 0 }, "Timeout"},
		{"负的样本阈值", func(p *Policy) { p.RequestVolumeThreshold = -1 }, "RequestVolumeThreshold"},
		{"失败率超过 100", func(p *Policy) { p.ErrorThresholdPercentage = 101 }, "ErrorThresholdPercentage"},
		{"休眠窗口为 0", func(p *Policy) { p.SleepWindow = 0 }, "SleepWindow"},
		{"窗口为 0", func(p *Policy) { p.WindowSize = 0 }, "WindowSize"},
		{"桶数为 0", func(p *Policy) { p.BucketCount = 0 }, "BucketCount"},
		{"窗口小于桶数", func(p *Policy) { p.WindowSize = 5; p.BucketCount = 10 }, "WindowSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.modify(&p)

			err := p.Validate()
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestConfig_ValidateResourceError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resources["bad"] = Policy{ErrorThresholdPercentage: 200}

	err := cfg.Validate()
	require.Error(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "bad", vErr.Resource)
	assert.Contains(t, err.Error(), "ErrorThresholdPercentage")
}

func TestConfig_ValidateNegativeSizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoolSize = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.EventBusBuffer = -1
	assert.Error(t, cfg.Validate())
}

func TestConfig_PolicyForConfigKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resources["payment_timeout"] = Policy{Timeout: 3 * time.Second}

	assert.Equal(t, "payment_timeout", ConfigKey("Payment.Timeout"))
	assert.Equal(t, 3*time.Second, cfg.PolicyFor("payment.timeout").Timeout)
	assert.Equal(t, time.Second, cfg.PolicyFor("payment.circuit").Timeout)
}

func TestConfig_SetDefaultPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resources["payment_timeout"] = Policy{Timeout: 2 * time.Second}

	cfg.SetDefaultPolicy("payment.timeout", Policy{Timeout: 3 * time.Second})
	cfg.SetDefaultPolicy("payment.circuit", Policy{RequestVolumeThreshold: 10})

	assert.Equal(t, 2*time.Second, cfg.PolicyFor("payment.timeout").Timeout, "configured policy wins")
	assert.Equal(t, 10, cfg.PolicyFor("payment.circuit").RequestVolumeThreshold)
}
