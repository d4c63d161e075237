package limiter

import (
	"context"
	"time"

	"github.com/Taro2021/springcloud/eventbus"
	"github.com/Taro2021/springcloud/logger"
)

// EventType 限流事件类型
type EventType string

const (
	EventAllowed       EventType = "allowed"
	EventRejected      EventType = "rejected"        // 流控规则拒绝
	EventHotKeyBlocked EventType = "hot_key_blocked" // 热点参数规则拒绝
	EventWaitSuccess   EventType = "wait_success"
	EventWaitTimeout   EventType = "wait_timeout" // ctx 结束前未拿到令牌
)

// Event 限流事件
type Event = eventbus.Event[EventType]

// EventBus 限流事件总线
type EventBus = *eventbus.Bus[EventType, Event]

// EventListener 事件监听者
type EventListener = eventbus.Listener[Event]

// EventListenerFunc 函数式监听者
type EventListenerFunc func(event Event)

func (f EventListenerFunc) OnEvent(event Event) { f(event) }

// NewEventBus 创建限流事件总线
func NewEventBus(bufferSize int, log *logger.CtxZapLogger) EventBus {
	return eventbus.New[EventType, Event]("limiter", bufferSize, log)
}

// BaseEvent 事件公共字段
type BaseEvent = eventbus.Base[EventType]

func NewBaseEvent(eventType EventType, resource string, ctx context.Context) BaseEvent {
	return eventbus.NewBase(eventType, resource, ctx)
}

// AllowedEvent 放行，Remaining 为流控规则剩余令牌
type AllowedEvent struct {
	BaseEvent
	Remaining int64
	Limit     int64
}

// RejectedEvent 流控拒绝
type RejectedEvent struct {
	BaseEvent
	RetryAfter time.Duration
	Reason     string
}

// HotKeyBlockedEvent 热点参数拒绝，Index 为参数下标
type HotKeyBlockedEvent struct {
	BaseEvent
	Index int
	Value string
}

// WaitEvent Wait 的结果
type WaitEvent struct {
	BaseEvent
	Success bool
	Waited  time.Duration
}
