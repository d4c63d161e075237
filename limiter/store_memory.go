package limiter

import (
	"context"
	"sync"
	"time"
)

// memoryStore 进程内令牌桶，空闲桶按 bucketTTL 回收
type memoryStore struct {
	mu      sync.Mutex
	buckets map[string]*memoryBucket
	closed  bool
	stop    chan struct{}
}

type memoryBucket struct {
	tokens   int64
	last     int64 // unix ms
	idleTill time.Time
}

// NewMemoryStore 创建内存存储，每分钟回收一次空闲桶
func NewMemoryStore() Store {
	return newMemoryStore(time.Minute)
}

func newMemoryStore(sweepEvery time.Duration) *memoryStore {
	s := &memoryStore{
		buckets: make(map[string]*memoryBucket),
		stop:    make(chan struct{}),
	}
	go s.sweepLoop(sweepEvery)
	return s
}

// Take 本地读改写，同一把锁保证原子
func (s *memoryStore) Take(_ context.Context, bucket string, rule FlowRule, n int64, now time.Time) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, 0, ErrStoreClosed
	}

	nowMs := now.UnixMilli()
	b, ok := s.buckets[bucket]
	if !ok || now.After(b.idleTill) {
		b = &memoryBucket{tokens: rule.initialTokens(), last: nowMs}
		s.buckets[bucket] = b
	} else {
		b.tokens, b.last = refill(b.tokens, b.last, nowMs, rule)
	}

	allowed := b.tokens >= n
	if allowed {
		b.tokens -= n
	}
	b.idleTill = now.Add(bucketTTL(rule))
	return allowed, b.tokens, nil
}

func (s *memoryStore) Reset(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	delete(s.buckets, bucket)
	return nil
}

// Close 停止回收协程，可重复调用
func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.buckets = nil
	close(s.stop)
	return nil
}

func (s *memoryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func (s *memoryStore) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *memoryStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, b := range s.buckets {
		if now.After(b.idleTill) {
			delete(s.buckets, key)
		}
	}
}
