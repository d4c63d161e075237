package breaker

import (
	"context"
	"time"

	"github.com/Taro2021/springcloud/eventbus"
	"github.com/Taro2021/springcloud/logger"
)

// Event 事件接口
type Event interface {
	Type() EventType
	Resource() string
	Timestamp() time.Time
	Context() context.Context
}

// EventType 事件类型
type EventType string

const (
	// EventStateChanged 状态变化
	EventStateChanged EventType = "state_changed"

	// EventCallSuccess primary 调用成功
	EventCallSuccess EventType = "call_success"

	// EventCallFailure primary 调用失败
	EventCallFailure EventType = "call_failure"

	// EventCallTimeout primary 调用超时
	EventCallTimeout EventType = "call_timeout"

	// EventCallRejected 调用被拒绝（熔断、限流、热点参数）
	EventCallRejected EventType = "call_rejected"

	// EventFallbackSuccess 降级成功
	EventFallbackSuccess EventType = "fallback_success"

	// EventFallbackFailure 降级失败
	EventFallbackFailure EventType = "fallback_failure"
)

// EventBus 熔断事件总线
type EventBus = *eventbus.Bus[EventType, Event]

// EventListener 事件监听者（应用层实现）
type EventListener = eventbus.Listener[Event]

// SubscriptionID 订阅 ID
type SubscriptionID = eventbus.SubscriptionID

// EventListenerFunc 函数式监听者
type EventListenerFunc func(event Event)

func (f EventListenerFunc) OnEvent(event Event) {
	f(event)
}

// NewEventBus 创建熔断事件总线
func NewEventBus(bufferSize int, log *logger.CtxZapLogger) EventBus {
	return eventbus.New[EventType, Event]("breaker", bufferSize, log)
}

// BaseEvent 基础事件
type BaseEvent = eventbus.Base[EventType]

// NewBaseEvent 创建基础事件
func NewBaseEvent(eventType EventType, resource string, ctx context.Context) BaseEvent {
	return eventbus.NewBase(eventType, resource, ctx)
}

// StateChangedEvent 状态变化事件
type StateChangedEvent struct {
	BaseEvent
	FromState State
	ToState   State
	Reason    string
	Snapshot  Snapshot
}

// CallEvent primary 调用事件（成功/失败/超时）
type CallEvent struct {
	BaseEvent
	Success  bool
	Kind     FailureKind // 成功时为 0
	Duration time.Duration
	Error    error
}

// RejectedEvent 拒绝事件
type RejectedEvent struct {
	BaseEvent
	Kind         FailureKind
	CurrentState State
}

// FallbackEvent 降级事件
type FallbackEvent struct {
	BaseEvent
	Kind     FailureKind // 触发降级的失败类型
	Success  bool
	Duration time.Duration
	Error    error
}
