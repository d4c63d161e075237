package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRollingWindow_Sum(t *testing.T) {
	w := newRollingWindow(10*time.Second, 10)
	now := time.Unix(1_700_000_000, 0)

	w.recordSuccess(now)
	w.recordSuccess(now.Add(time.Second))
	w.recordFailure(now.Add(2 * time.Second))
	w.recordTimeout(now.Add(3 * time.Second))
	w.recordRejection(now.Add(3 * time.Second))

	c := w.sum(now.Add(3 * time.Second))
	assert.Equal(t, int64(2), c.successes)
	assert.Equal(t, int64(1), c.failures)
	assert.Equal(t, int64(1), c.timeouts)
	assert.Equal(t, int64(1), c.rejections)
	assert.Equal(t, int64(4), c.total(), "rejections are not attempts")
	assert.Equal(t, 50.0, c.errorPercentage())
}

func TestRollingWindow_OldBucketsExpire(t *testing.T) {
	w := newRollingWindow(10*time.Second, 10)
	now := time.Unix(1_700_000_000, 0)

	w.recordFailure(now)
	w.recordSuccess(now.Add(5 * time.Second))

	assert.Equal(t, int64(2), w.sum(now.Add(9*time.Second)).total())

	// 10 秒后第一个桶滑出窗口
	c := w.sum(now.Add(10 * time.Second))
	assert.Equal(t, int64(1), c.total())
	assert.Equal(t, int64(0), c.failures)

	assert.Equal(t, int64(0), w.sum(now.Add(30*time.Second)).total())
}

func TestRollingWindow_SlotReuse(t *testing.T) {
	w := newRollingWindow(time.Second, 2)
	now := time.Unix(1_700_000_000, 0)

	w.recordFailure(now)
	// 同一个槽位，新纪元替换旧桶
	w.recordSuccess(now.Add(time.Second))

	c := w.sum(now.Add(time.Second))
	assert.Equal(t, int64(1), c.successes)
	assert.Equal(t, int64(0), c.failures)
}

func TestRollingWindow_Reset(t *testing.T) {
	w := newRollingWindow(10*time.Second, 10)
	now := time.Now()

	w.recordFailure(now)
	w.reset()
	assert.Equal(t, int64(0), w.sum(now).total())
}

func TestRollingWindow_Concurrent(t *testing.T) {
	w := newRollingWindow(10*time.Second, 10)
	now := time.Unix(1_700_000_000, 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				w.recordSuccess(now)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10000), w.sum(now).successes)
}

func TestRollingWindow_DegenerateSizes(t *testing.T) {
	w := newRollingWindow(0, 0)
	assert.Len(t, w.buckets, 1)
	assert.Equal(t, time.Nanosecond, w.width)
}

func TestCounts_ErrorPercentageEmpty(t *testing.T) {
	assert.Equal(t, 0.0, counts{}.errorPercentage())
}
