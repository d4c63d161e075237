package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateManager_Closed(t *testing.T) {
	sm := newStateManager()
	assert.Equal(t, StateClosed, sm.GetState())

	admitted, trial, halfOpened := sm.admit(time.Now(), time.Second)
	assert.True(t, admitted)
	assert.False(t, trial)
	assert.False(t, halfOpened)
}

func TestStateManager_OpenThenHalfOpen(t *testing.T) {
	sm := newStateManager()
	base := time.Unix(1_700_000_000, 0)

	assert.True(t, sm.open(base))
	assert.False(t, sm.open(base), "already open")
	assert.Equal(t, StateOpen, sm.GetState())

	// 休眠窗口内短路
	admitted, _, _ := sm.admit(base.Add(9*time.Second), 10*time.Second)
	assert.False(t, admitted)

	// 窗口结束，放行一次试探
	admitted, trial, halfOpened := sm.admit(base.Add(10*time.Second), 10*time.Second)
	assert.True(t, admitted)
	assert.True(t, trial)
	assert.True(t, halfOpened)
	assert.Equal(t, StateHalfOpen, sm.GetState())

	// 试探未结束时其余调用短路
	admitted, _, _ = sm.admit(base.Add(11*time.Second), 10*time.Second)
	assert.False(t, admitted)
}

func TestStateManager_TrialSucceeded(t *testing.T) {
	sm := newStateManager()
	base := time.Unix(1_700_000_000, 0)
	sm.open(base)
	sm.admit(base.Add(time.Minute), time.Second)

	assert.True(t, sm.trialSucceeded())
	assert.Equal(t, StateClosed, sm.GetState())
	assert.False(t, sm.trialSucceeded(), "not half-open anymore")
}

func TestStateManager_TrialFailedRestartsSleepWindow(t *testing.T) {
	sm := newStateManager()
	base := time.Unix(1_700_000_000, 0)
	sm.open(base)

	trialAt := base.Add(10 * time.Second)
	sm.admit(trialAt, 10*time.Second)
	assert.True(t, sm.trialFailed(trialAt))
	assert.Equal(t, StateOpen, sm.GetState())

	admitted, _, _ := sm.admit(trialAt.Add(5*time.Second), 10*time.Second)
	assert.False(t, admitted, "sleep window counts from the failed trial")

	admitted, trial, _ := sm.admit(trialAt.Add(10*time.Second), 10*time.Second)
	assert.True(t, admitted)
	assert.True(t, trial)
}

func TestStateManager_Reset(t *testing.T) {
	sm := newStateManager()

	changed, from := sm.reset()
	assert.False(t, changed)
	assert.Equal(t, StateClosed, from)

	sm.open(time.Now())
	changed, from = sm.reset()
	assert.True(t, changed)
	assert.Equal(t, StateOpen, from)
	assert.Equal(t, StateClosed, sm.GetState())
}

func TestStateManager_SingleTrialUnderConcurrency(t *testing.T) {
	sm := newStateManager()
	base := time.Unix(1_700_000_000, 0)
	sm.open(base)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		trials int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if admitted, trial, _ := sm.admit(base.Add(time.Minute), time.Second); admitted && trial {
				mu.Lock()
				trials++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, trials)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Closed", StateClosed.String())
	assert.Equal(t, "Open", StateOpen.String())
	assert.Equal(t, "HalfOpen", StateHalfOpen.String())
	assert.Equal(t, "Unknown", State(99).String())
}
