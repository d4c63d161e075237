// Package eventbus 异步事件总线：单协程按发布顺序分发，缓冲区满时丢弃
//
// breaker 与 limiter 各自定义事件类型，通过类型参数复用同一实现。
package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/Taro2021/springcloud/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event 可分发的事件
type Event[T comparable] interface {
	Type() T
	Resource() string
	Timestamp() time.Time
	Context() context.Context
}

// Listener 事件监听者
type Listener[E any] interface {
	OnEvent(event E)
}

// SubscriptionID 订阅 ID
type SubscriptionID string

// Base 嵌入到具体事件中的公共字段
type Base[T comparable] struct {
	kind     T
	resource string
	at       time.Time
	ctx      context.Context
}

// NewBase 以当前时间创建事件头
func NewBase[T comparable](kind T, resource string, ctx context.Context) Base[T] {
	return Base[T]{kind: kind, resource: resource, at: time.Now(), ctx: ctx}
}

func (b *Base[T]) Type() T                  { return b.kind }
func (b *Base[T]) Resource() string         { return b.resource }
func (b *Base[T]) Timestamp() time.Time     { return b.at }
func (b *Base[T]) Context() context.Context { return b.ctx }

type subscriber[T comparable, E Event[T]] struct {
	id       SubscriptionID
	listener Listener[E]
	types    map[T]struct{}
}

func (s *subscriber[T, E]) wants(kind T) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[kind]
	return ok
}

// Bus 事件总线
type Bus[T comparable, E Event[T]] struct {
	name   string
	queue  chan E
	subs   []*subscriber[T, E]
	closed bool
	mu     sync.RWMutex
	done   sync.WaitGroup
	logger *logger.CtxZapLogger
}

// New 创建并启动总线，buffer <= 0 时使用 100
func New[T comparable, E Event[T]](name string, buffer int, log *logger.CtxZapLogger) *Bus[T, E] {
	if buffer <= 0 {
		buffer = 100
	}
	if log == nil {
		log = logger.GetLogger("springcloud")
	}

	b := &Bus[T, E]{
		name:   name,
		queue:  make(chan E, buffer),
		logger: log,
	}
	b.done.Add(1)
	go b.run()
	return b
}

// Subscribe 订阅事件，types 为空时接收全部类型
func (b *Bus[T, E]) Subscribe(listener Listener[E], types ...T) SubscriptionID {
	sub := &subscriber[T, E]{
		id:       SubscriptionID(uuid.NewString()),
		listener: listener,
		types:    make(map[T]struct{}, len(types)),
	}
	for _, t := range types {
		sub.types[t] = struct{}{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.subs = append(b.subs, sub)
	}
	return sub.id
}

// Unsubscribe 取消订阅
func (b *Bus[T, E]) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish 非阻塞入队，关闭后静默忽略
func (b *Bus[T, E]) Publish(event E) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	select {
	case b.queue <- event:
	default:
		b.logger.WarnCtx(event.Context(), "⚠️  event bus full, event dropped",
			zap.String("bus", b.name),
			zap.Any("type", event.Type()),
			zap.String("resource", event.Resource()))
	}
}

// Close 停止接收，等待已入队事件分发完，可重复调用
func (b *Bus[T, E]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()

	b.done.Wait()
}

func (b *Bus[T, E]) run() {
	defer b.done.Done()

	for event := range b.queue {
		b.mu.RLock()
		subs := make([]*subscriber[T, E], len(b.subs))
		copy(subs, b.subs)
		b.mu.RUnlock()

		for _, sub := range subs {
			if sub.wants(event.Type()) {
				b.deliver(sub.listener, event)
			}
		}
	}
}

func (b *Bus[T, E]) deliver(l Listener[E], event E) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorCtx(event.Context(), "❌ event listener panicked",
				zap.String("bus", b.name),
				zap.Any("type", event.Type()),
				zap.Any("panic", r))
		}
	}()
	l.OnEvent(event)
}
