package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestTestLogger(t *testing.T) {
	log := NewTestLogger("order")
	ctx := WithTraceID(context.Background(), "t-1")

	log.InfoCtx(ctx, "Create order", zap.Int64("id", 7))
	log.WarnCtx(ctx, "slow call")
	log.ErrorCtx(ctx, "fallback failed")
	log.DebugCtx(ctx, "trace")

	assert.True(t, log.HasLog(zapcore.InfoLevel, "Create order"))
	assert.False(t, log.HasLog(zapcore.ErrorLevel, "Create order"))
	assert.Equal(t, 1, log.CountLogs(zapcore.ErrorLevel))
	assert.Len(t, log.Entries(), 4)

	id, ok := log.Field("Create order", "id")
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	traceID, ok := log.Field("Create order", "trace_id")
	assert.True(t, ok)
	assert.Equal(t, "t-1", traceID)

	log.Clear()
	assert.Empty(t, log.Entries())
}
