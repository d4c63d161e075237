package breaker

import (
	"context"
	"time"

	"github.com/Taro2021/springcloud/logger"
	"go.uber.org/zap"
)

// Snapshot 资源当前的窗口统计
type Snapshot struct {
	Resource        string
	State           State
	Requests        int64 // successes + failures + timeouts
	Successes       int64
	Failures        int64
	Timeouts        int64
	Rejections      int64 // 熔断短路次数
	ErrorPercentage float64
}

// circuit 单个资源的熔断器
type circuit struct {
	resource string
	policy   Policy
	gated    bool // Config.Enabled && Policy.Breaker()
	state    *stateManager
	window   *rollingWindow
	bus      EventBus
	metrics  *OTelBreakerMetrics
	logger   *logger.CtxZapLogger
	now      func() time.Time
}

func newCircuit(resource string, policy Policy, gated bool, m *Manager) *circuit {
	return &circuit{
		resource: resource,
		policy:   policy,
		gated:    gated,
		state:    newStateManager(),
		window:   newRollingWindow(policy.WindowSize, policy.BucketCount),
		bus:      m.eventBus,
		metrics:  m.metrics,
		logger:   m.logger,
		now:      m.now,
	}
}

// permit runs the breaker gate. A non-nil failure means the call is short-circuited.
func (c *circuit) permit(ctx context.Context) (trial bool, failure *Failure) {
	if !c.gated {
		return false, nil
	}

	admitted, trial, halfOpened := c.state.admit(c.now(), c.policy.SleepWindow)
	if halfOpened {
		c.logger.InfoCtx(ctx, "🔄 [Breaker] sleep window elapsed, trial call allowed",
			zap.String("resource", c.resource))
		c.publishStateChanged(ctx, StateOpen, StateHalfOpen, "sleep window elapsed")
	}
	if !admitted {
		return false, &Failure{Kind: FailureBreakerOpen, Resource: c.resource, Cause: ErrCircuitOpen}
	}
	return trial, nil
}

func (c *circuit) recordSuccess(ctx context.Context, duration time.Duration, trial bool) {
	if c.metrics != nil {
		c.metrics.RecordSuccess(ctx, c.resource, duration)
	}
	c.publish(&CallEvent{
		BaseEvent: NewBaseEvent(EventCallSuccess, c.resource, ctx),
		Success:   true,
		Duration:  duration,
	})

	if !c.gated {
		return
	}

	c.window.recordSuccess(c.now())
	if trial && c.state.trialSucceeded() {
		c.window.reset()
		c.logger.InfoCtx(ctx, "✅ [Breaker] trial call succeeded, circuit closed",
			zap.String("resource", c.resource))
		c.publishStateChanged(ctx, StateHalfOpen, StateClosed, "trial call succeeded")
	}
}

func (c *circuit) recordFailure(ctx context.Context, failure *Failure, duration time.Duration, trial bool) {
	if c.metrics != nil {
		c.metrics.RecordFailure(ctx, c.resource, duration, failure.Kind)
	}

	eventType := EventCallFailure
	if failure.Kind == FailureTimeout {
		eventType = EventCallTimeout
	}
	c.publish(&CallEvent{
		BaseEvent: NewBaseEvent(eventType, c.resource, ctx),
		Kind:      failure.Kind,
		Duration:  duration,
		Error:     failure.Cause,
	})

	if !c.gated {
		return
	}

	now := c.now()
	if failure.Kind == FailureTimeout {
		c.window.recordTimeout(now)
	} else {
		c.window.recordFailure(now)
	}

	if trial {
		if c.state.trialFailed(now) {
			c.logger.WarnCtx(ctx, "⛔ [Breaker] trial call failed, circuit re-opened",
				zap.String("resource", c.resource),
				zap.String("kind", failure.Kind.String()))
			c.publishStateChanged(ctx, StateHalfOpen, StateOpen, "trial call failed")
		}
		return
	}

	counts := c.window.sum(now)
	if counts.total() < int64(c.policy.RequestVolumeThreshold) {
		return
	}
	if counts.errorPercentage() < float64(c.policy.ErrorThresholdPercentage) {
		return
	}
	if c.state.open(now) {
		c.logger.WarnCtx(ctx, "⛔ [Breaker] error threshold exceeded, circuit opened",
			zap.String("resource", c.resource),
			zap.Int64("requests", counts.total()),
			zap.Float64("error_percentage", counts.errorPercentage()))
		c.publishStateChanged(ctx, StateClosed, StateOpen, "error threshold exceeded")
	}
}

func (c *circuit) recordRejection(ctx context.Context, failure *Failure) {
	if failure.Kind == FailureBreakerOpen {
		c.window.recordRejection(c.now())
	}
	if c.metrics != nil {
		c.metrics.RecordRejection(ctx, c.resource, failure.Kind)
	}

	c.logger.DebugCtx(ctx, "⛔ [Breaker] call rejected",
		zap.String("resource", c.resource),
		zap.String("kind", failure.Kind.String()))

	c.publish(&RejectedEvent{
		BaseEvent:    NewBaseEvent(EventCallRejected, c.resource, ctx),
		Kind:         failure.Kind,
		CurrentState: c.state.GetState(),
	})
}

func (c *circuit) recordFallback(ctx context.Context, failure *Failure, err error, duration time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordFallback(ctx, c.resource, err == nil)
	}

	eventType := EventFallbackSuccess
	if err != nil {
		eventType = EventFallbackFailure
	}
	c.publish(&FallbackEvent{
		BaseEvent: NewBaseEvent(eventType, c.resource, ctx),
		Kind:      failure.Kind,
		Success:   err == nil,
		Duration:  duration,
		Error:     err,
	})
}

func (c *circuit) snapshot() Snapshot {
	counts := c.window.sum(c.now())
	return Snapshot{
		Resource:        c.resource,
		State:           c.state.GetState(),
		Requests:        counts.total(),
		Successes:       counts.successes,
		Failures:        counts.failures,
		Timeouts:        counts.timeouts,
		Rejections:      counts.rejections,
		ErrorPercentage: counts.errorPercentage(),
	}
}

func (c *circuit) reset(ctx context.Context) {
	changed, from := c.state.reset()
	c.window.reset()
	if changed {
		c.publishStateChanged(ctx, from, StateClosed, "manual reset")
	}
}

func (c *circuit) publish(event Event) {
	if c.bus != nil {
		c.bus.Publish(event)
	}
}

func (c *circuit) publishStateChanged(ctx context.Context, from, to State, reason string) {
	c.publish(&StateChangedEvent{
		BaseEvent: NewBaseEvent(EventStateChanged, c.resource, ctx),
		FromState: from,
		ToState:   to,
		Reason:    reason,
		Snapshot:  c.snapshot(),
	})
}
