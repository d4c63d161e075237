package breaker

import (
	"sync"
	"time"
)

// stateManager 熔断状态机：Closed -> Open -> HalfOpen（仅一次试探）-> Closed/Open
type stateManager struct {
	mu            sync.Mutex
	state         State
	openedAt      time.Time
	trialInFlight bool
}

func newStateManager() *stateManager {
	return &stateManager{state: StateClosed}
}

// GetState 获取当前状态
func (sm *stateManager) GetState() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state
}

// admit decides whether a call may reach the primary.
// trial is true for the single call let through after the sleep window.
func (sm *stateManager) admit(now time.Time, sleepWindow time.Duration) (admitted, trial, halfOpened bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch sm.state {
	case StateClosed:
		return true, false, false

	case StateOpen:
		if now.Sub(sm.openedAt) < sleepWindow {
			return false, false, false
		}
		sm.state = StateHalfOpen
		sm.trialInFlight = true
		return true, true, true

	case StateHalfOpen:
		// 试探调用尚未结束，其余调用一律短路
		if sm.trialInFlight {
			return false, false, false
		}
		sm.trialInFlight = true
		return true, true, false
	}

	return false, false, false
}

// trialSucceeded closes the breaker after a successful trial
func (sm *stateManager) trialSucceeded() (changed bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.trialInFlight = false
	if sm.state != StateHalfOpen {
		return false
	}
	sm.state = StateClosed
	return true
}

// trialFailed re-opens the breaker and restarts the sleep window
func (sm *stateManager) trialFailed(now time.Time) (changed bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.trialInFlight = false
	if sm.state != StateHalfOpen {
		return false
	}
	sm.state = StateOpen
	sm.openedAt = now
	return true
}

// open trips a closed breaker
func (sm *stateManager) open(now time.Time) (changed bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.state != StateClosed {
		return false
	}
	sm.state = StateOpen
	sm.openedAt = now
	return true
}

// reset 手动重置为 Closed
func (sm *stateManager) reset() (changed bool, from State) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	from = sm.state
	sm.state = StateClosed
	sm.trialInFlight = false
	return from != StateClosed, from
}
