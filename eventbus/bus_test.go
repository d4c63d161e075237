package eventbus

import (
	"context"
	"sync"
	"testing"

	"github.com/Taro2021/springcloud/logger"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

type kind string

type testEvent struct {
	Base[kind]
	N int
}

type recorder struct {
	mu     sync.Mutex
	events []*testEvent
}

func (r *recorder) OnEvent(e *testEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) seen() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.N)
	}
	return out
}

type listenerFunc func(*testEvent)

func (f listenerFunc) OnEvent(e *testEvent) { f(e) }

func newEvent(k kind, n int) *testEvent {
	return &testEvent{Base: NewBase(k, "res", context.Background()), N: n}
}

func newBus(buffer int, log *logger.CtxZapLogger) *Bus[kind, *testEvent] {
	return New[kind, *testEvent]("test", buffer, log)
}

func TestBus_DeliversInOrder(t *testing.T) {
	bus := newBus(10, nil)
	rec := &recorder{}
	bus.Subscribe(rec)

	for i := 1; i <= 5; i++ {
		bus.Publish(newEvent("a", i))
	}
	bus.Close()

	assert.Equal(t, []int{1, 2, 3, 4, 5}, rec.seen())
	assert.Equal(t, "res", rec.events[0].Resource())
	assert.Equal(t, kind("a"), rec.events[0].Type())
	assert.False(t, rec.events[0].Timestamp().IsZero())
}

func TestBus_TypeFilter(t *testing.T) {
	bus := newBus(10, nil)
	all, onlyB := &recorder{}, &recorder{}
	bus.Subscribe(all)
	bus.Subscribe(onlyB, "b")

	bus.Publish(newEvent("a", 1))
	bus.Publish(newEvent("b", 2))
	bus.Close()

	assert.Equal(t, []int{1, 2}, all.seen())
	assert.Equal(t, []int{2}, onlyB.seen())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := newBus(10, nil)
	first, second := &recorder{}, &recorder{}
	id := bus.Subscribe(first)
	bus.Subscribe(second)
	bus.Unsubscribe(id)
	bus.Unsubscribe("unknown")

	bus.Publish(newEvent("a", 1))
	bus.Close()

	assert.Empty(t, first.seen())
	assert.Equal(t, []int{1}, second.seen())
}

func TestBus_PanicRecovered(t *testing.T) {
	tl := logger.NewTestLogger("eventbus")
	bus := newBus(10, tl.CtxZapLogger)
	rec := &recorder{}
	bus.Subscribe(listenerFunc(func(*testEvent) { panic("listener bug") }))
	bus.Subscribe(rec)

	bus.Publish(newEvent("a", 1))
	bus.Close()

	assert.Equal(t, []int{1}, rec.seen())
	assert.True(t, tl.HasLog(zapcore.ErrorLevel, "❌ event listener panicked"))
}

func TestBus_DropsWhenFull(t *testing.T) {
	tl := logger.NewTestLogger("eventbus")
	bus := newBus(1, tl.CtxZapLogger)

	block := make(chan struct{})
	bus.Subscribe(listenerFunc(func(*testEvent) { <-block }))

	for i := 0; i < 5; i++ {
		bus.Publish(newEvent("a", i))
	}
	close(block)
	bus.Close()

	assert.Positive(t, tl.CountMessage(zapcore.WarnLevel, "⚠️  event bus full, event dropped"))
}

func TestBus_CloseIsIdempotent(t *testing.T) {
	bus := newBus(0, nil)
	bus.Close()
	bus.Close()

	rec := &recorder{}
	bus.Subscribe(rec)
	assert.NotPanics(t, func() { bus.Publish(newEvent("a", 1)) })
	assert.Empty(t, rec.seen())
}
