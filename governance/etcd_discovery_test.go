package governance

import (
	"testing"

	"github.com/Taro2021/springcloud/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap/zapcore"
)

func TestExtractInstanceIDFromKey(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"/services/test-service/instance-1", "instance-1"},
		{"/services/test-service/192.168.1.1-8080", "192.168.1.1-8080"},
		{"instance-only", "instance-only"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			result := extractInstanceIDFromKey(tt.key)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		addr     string
		expected string
	}{
		{"127.0.0.1:9002", "127.0.0.1"},
		{"192.168.1.100:8080", "192.168.1.100"},
		{"localhost:80", "localhost"},
		{"no-port", "no-port"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			result := parseAddress(tt.addr)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParsePort(t *testing.T) {
	tests := []struct {
		addr     string
		expected int
	}{
		{"127.0.0.1:9002", 9002},
		{"192.168.1.100:8080", 8080},
		{"localhost:443", 443},
		{"no-port", 0},
		{"", 0},
		{"invalid:", 0},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			result := parsePort(tt.addr)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseServiceInstance(t *testing.T) {
	t.Run("json value", func(t *testing.T) {
		value := []byte(`{"service_name":"cloud-payment-service","address":"10.0.0.2","port":8002,"weight":7,"metadata":{"scheme":"https"}}`)
		inst, err := parseServiceInstance("cloud-payment-service", "/services/cloud-payment-service/p2", value)
		require.NoError(t, err)

		assert.Equal(t, "p2", inst.ID)
		assert.Equal(t, "10.0.0.2:8002", inst.Addr())
		assert.Equal(t, 7, inst.Weight)
		assert.Equal(t, "https://10.0.0.2:8002", inst.BaseURL())
		assert.True(t, inst.Healthy)
	})

	t.Run("json without weight", func(t *testing.T) {
		value := []byte(`{"address":"10.0.0.2","port":8002}`)
		inst, err := parseServiceInstance("svc", "/services/svc/p2", value)
		require.NoError(t, err)
		assert.Equal(t, 100, inst.Weight)
		assert.NotNil(t, inst.Metadata)
	})

	t.Run("bare address", func(t *testing.T) {
		inst, err := parseServiceInstance("svc", "/services/svc/p1", []byte("127.0.0.1:8001"))
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", inst.Address)
		assert.Equal(t, 8001, inst.Port)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := parseServiceInstance("svc", "/services/svc/p1", []byte("garbage"))
		assert.ErrorIs(t, err, ErrInvalidAddress)
	})
}

func TestApplyWatchEvents(t *testing.T) {
	tl := logger.NewTestLogger("governance")
	state := map[string]*ServiceInstance{}

	put := func(key, value string) *clientv3.Event {
		return &clientv3.Event{
			Type: clientv3.EventTypePut,
			Kv:   &mvccpb.KeyValue{Key: []byte(key), Value: []byte(value)},
		}
	}
	del := func(key string) *clientv3.Event {
		return &clientv3.Event{
			Type: clientv3.EventTypeDelete,
			Kv:   &mvccpb.KeyValue{Key: []byte(key)},
		}
	}

	changed := applyWatchEvents("svc", state, []*clientv3.Event{
		put("/services/svc/b", "127.0.0.1:8002"),
		put("/services/svc/a", "127.0.0.1:8001"),
	}, tl.CtxZapLogger)
	assert.True(t, changed)

	snapshot := snapshotInstances(state)
	require.Len(t, snapshot, 2)
	assert.Equal(t, "a", snapshot[0].ID)
	assert.Equal(t, "b", snapshot[1].ID)
	assert.Equal(t, 2, tl.CountMessage(zapcore.DebugLevel, "🟢 service instance online"))

	assert.False(t, applyWatchEvents("svc", state, []*clientv3.Event{del("/services/svc/zzz")}, tl.CtxZapLogger))
	assert.False(t, applyWatchEvents("svc", state, []*clientv3.Event{put("/services/svc/c", "bad")}, tl.CtxZapLogger))

	assert.True(t, applyWatchEvents("svc", state, []*clientv3.Event{del("/services/svc/a")}, tl.CtxZapLogger))
	assert.Len(t, state, 1)
	assert.True(t, tl.HasLog(zapcore.WarnLevel, "🔴 service instance offline"))
}
