package breaker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Taro2021/springcloud/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// eventRecorder 收集事件
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type())
	}
	return out
}

func (r *eventRecorder) find(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

func TestEventBus_PublishSubscribe(t *testing.T) {
	bus := NewEventBus(10, logger.NewTestLogger("breaker").CtxZapLogger)
	rec := &eventRecorder{}
	bus.Subscribe(rec)

	ctx := context.Background()
	bus.Publish(&CallEvent{BaseEvent: NewBaseEvent(EventCallSuccess, "r", ctx), Success: true})
	bus.Publish(&CallEvent{BaseEvent: NewBaseEvent(EventCallFailure, "r", ctx)})
	bus.Close()

	assert.Equal(t, []EventType{EventCallSuccess, EventCallFailure}, rec.types())
}

func TestManager_PublishesLifecycleEvents(t *testing.T) {
	m, clock := newTestManager(t, circuitConfig())
	rec := &eventRecorder{}
	m.EventBus().Subscribe(rec)
	fb := &countingFallback{}
	ctx := context.Background()

	// 1 次成功 + 9 次失败达到样本数，随后的调用被短路
	_, _ = Invoke(ctx, m, "payment.circuit", okPrimary, fb.fn, 1)
	for i := 0; i < 9; i++ {
		_, _ = Invoke(ctx, m, "payment.circuit", failingPrimary, fb.fn, -1)
	}
	_, _ = Invoke(ctx, m, "payment.circuit", okPrimary, fb.fn, 1)
	clock.Advance(10 * time.Second)
	_, _ = Invoke(ctx, m, "payment.circuit", okPrimary, fb.fn, 1)

	m.Close()

	assert.Len(t, rec.find(EventCallSuccess), 2)
	assert.Len(t, rec.find(EventCallFailure), 9)
	assert.Len(t, rec.find(EventCallRejected), 1)
	assert.Len(t, rec.find(EventFallbackSuccess), 10)

	changes := rec.find(EventStateChanged)
	require.Len(t, changes, 3)

	transitions := make([][2]State, 0, len(changes))
	for _, e := range changes {
		sc := e.(*StateChangedEvent)
		assert.Equal(t, "payment.circuit", sc.Resource())
		transitions = append(transitions, [2]State{sc.FromState, sc.ToState})
	}
	assert.Equal(t, [][2]State{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}, transitions)

	opened := changes[0].(*StateChangedEvent)
	assert.Equal(t, "error threshold exceeded", opened.Reason)
	assert.Equal(t, StateOpen, opened.Snapshot.State)

	rejected := rec.find(EventCallRejected)[0].(*RejectedEvent)
	assert.Equal(t, FailureBreakerOpen, rejected.Kind)
	assert.Equal(t, StateOpen, rejected.CurrentState)
}

func TestManager_ResetPublishesStateChange(t *testing.T) {
	m, _ := newTestManager(t, circuitConfig())
	rec := &eventRecorder{}
	m.EventBus().Subscribe(rec, EventStateChanged)
	fb := &countingFallback{}

	for i := 0; i < 10; i++ {
		_, _ = Invoke(context.Background(), m, "payment.circuit", failingPrimary, fb.fn, -1)
	}
	m.Reset("payment.circuit")
	m.Reset("payment.circuit")
	m.Close()

	changes := rec.find(EventStateChanged)
	require.Len(t, changes, 2, "second reset is a no-op")
	assert.Equal(t, "manual reset", changes[1].(*StateChangedEvent).Reason)
}

func TestManager_LogsOpening(t *testing.T) {
	tl := logger.NewTestLogger("breaker")
	m, _ := newTestManager(t, circuitConfig(), WithLogger(tl.CtxZapLogger))
	fb := &countingFallback{}

	for i := 0; i < 10; i++ {
		_, _ = Invoke(context.Background(), m, "payment.circuit", failingPrimary, fb.fn, -1)
	}

	assert.True(t, tl.HasLog(zapcore.WarnLevel, "⛔ [Breaker] error threshold exceeded, circuit opened"))
	requests, ok := tl.Field("⛔ [Breaker] error threshold exceeded, circuit opened", "requests")
	require.True(t, ok)
	assert.EqualValues(t, 10, requests)
}

func TestFailureKind_String(t *testing.T) {
	tests := map[FailureKind]string{
		FailureTimeout:       "Timeout",
		FailureException:     "Exception",
		FailureBreakerOpen:   "BreakerOpen",
		FailureRateLimited:   "RateLimited",
		FailureHotKeyBlocked: "HotKeyBlocked",
		FailureKind(0):       "Unknown",
	}
	for kind, want := range tests {
		assert.Equal(t, want, kind.String())
	}

	assert.False(t, FailureTimeout.Rejected())
	assert.False(t, FailureException.Rejected())
	assert.True(t, FailureBreakerOpen.Rejected())
}

func TestFailure_Error(t *testing.T) {
	f := &Failure{Kind: FailureBreakerOpen, Resource: "payment.circuit"}
	assert.Equal(t, "payment.circuit: BreakerOpen", f.Error())

	f.Cause = ErrCircuitOpen
	assert.Equal(t, "payment.circuit: BreakerOpen: circuit breaker is open", f.Error())
}
