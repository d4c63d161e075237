package redis

import (
	"context"
	"testing"

	"github.com/Taro2021/springcloud/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewManager(t *testing.T) {
	mr := miniredis.RunT(t)
	tl := logger.NewTestLogger("redis")

	m, err := NewManager(context.Background(), Config{Enabled: true, Addr: mr.Addr()}, tl.CtxZapLogger)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	assert.True(t, tl.HasLog(zapcore.InfoLevel, "✅ Redis connected"))
	assert.NoError(t, m.Ping(context.Background()))

	require.NoError(t, m.Client().Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewManager_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewManager(context.Background(), Config{Enabled: true, Addr: addr, MaxRetries: -1}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")
}

func TestManager_CloseTwice(t *testing.T) {
	mr := miniredis.RunT(t)
	m, err := NewManager(context.Background(), Config{Enabled: true, Addr: mr.Addr()}, nil)
	require.NoError(t, err)

	assert.NoError(t, m.Close())
	assert.NoError(t, m.Shutdown())
	assert.Error(t, m.Ping(context.Background()))
}

func TestConfig(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()
	assert.Equal(t, "127.0.0.1:6379", cfg.Addr)
	assert.Equal(t, 10, cfg.PoolSize)
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"db out of range", func(c *Config) { c.DB = 16 }},
		{"negative pool", func(c *Config) { c.PoolSize = -1 }},
		{"idle above pool", func(c *Config) { c.MinIdleConns = 20 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	disabled := Config{DB: 99}
	assert.NoError(t, disabled.Validate())
}
