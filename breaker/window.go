package breaker

import (
	"sync/atomic"
	"time"
)

// bucket 时间桶，计数器全部原子更新
type bucket struct {
	epoch      int64 // now / bucketWidth
	successes  atomic.Int64
	failures   atomic.Int64
	timeouts   atomic.Int64
	rejections atomic.Int64
}

// rollingWindow 环形滚动窗口
// A slot whose epoch is stale is replaced by a fresh bucket via CompareAndSwap,
// so a bucket is never zeroed while another goroutine is writing to it.
type rollingWindow struct {
	width   time.Duration
	buckets []atomic.Pointer[bucket]
}

func newRollingWindow(size time.Duration, count int) *rollingWindow {
	if count <= 0 {
		count = 1
	}
	width := size / time.Duration(count)
	if width <= 0 {
		width = time.Nanosecond
	}
	return &rollingWindow{
		width:   width,
		buckets: make([]atomic.Pointer[bucket], count),
	}
}

func (w *rollingWindow) epochOf(now time.Time) int64 {
	return now.UnixNano() / int64(w.width)
}

// current returns the bucket for now, rotating its slot if needed
func (w *rollingWindow) current(now time.Time) *bucket {
	epoch := w.epochOf(now)
	slot := &w.buckets[epoch%int64(len(w.buckets))]

	for {
		b := slot.Load()
		if b != nil && b.epoch >= epoch {
			return b
		}
		fresh := &bucket{epoch: epoch}
		if slot.CompareAndSwap(b, fresh) {
			return fresh
		}
	}
}

func (w *rollingWindow) recordSuccess(now time.Time) {
	w.current(now).successes.Add(1)
}

func (w *rollingWindow) recordFailure(now time.Time) {
	w.current(now).failures.Add(1)
}

func (w *rollingWindow) recordTimeout(now time.Time) {
	w.current(now).timeouts.Add(1)
}

func (w *rollingWindow) recordRejection(now time.Time) {
	w.current(now).rejections.Add(1)
}

// counts 窗口内的计数
type counts struct {
	successes  int64
	failures   int64
	timeouts   int64
	rejections int64
}

// total counts attempted calls, timeouts included
func (c counts) total() int64 {
	return c.successes + c.failures + c.timeouts
}

// errorPercentage 失败（含超时）占比，0-100
func (c counts) errorPercentage() float64 {
	total := c.total()
	if total == 0 {
		return 0
	}
	return float64(c.failures+c.timeouts) * 100 / float64(total)
}

// sum aggregates the buckets that are still inside the window
func (w *rollingWindow) sum(now time.Time) counts {
	oldest := w.epochOf(now) - int64(len(w.buckets)) + 1

	var c counts
	for i := range w.buckets {
		b := w.buckets[i].Load()
		if b == nil || b.epoch < oldest {
			continue
		}
		c.successes += b.successes.Load()
		c.failures += b.failures.Load()
		c.timeouts += b.timeouts.Load()
		c.rejections += b.rejections.Load()
	}
	return c
}

// reset drops every bucket
func (w *rollingWindow) reset() {
	for i := range w.buckets {
		w.buckets[i].Store(nil)
	}
}
