package payment

import (
	"context"
	"sync"
)

// Repository 支付记录存储
type Repository interface {
	// Create 插入记录，返回影响行数；ID 为 0 时自动分配
	Create(ctx context.Context, p *Payment) (int, error)

	// GetByID 查询记录，不存在时返回 nil, nil
	GetByID(ctx context.Context, id int64) (*Payment, error)
}

// MemoryRepository 内存存储
type MemoryRepository struct {
	mu    sync.RWMutex
	seq   int64
	items map[int64]Payment
}

// NewMemoryRepository 创建内存存储，可预置记录
func NewMemoryRepository(seed ...Payment) *MemoryRepository {
	r := &MemoryRepository{items: make(map[int64]Payment, len(seed))}
	for _, p := range seed {
		r.items[p.ID] = p
		if p.ID > r.seq {
			r.seq = p.ID
		}
	}
	return r
}

// Create 主键冲突时影响行数为 0
func (r *MemoryRepository) Create(ctx context.Context, p *Payment) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == 0 {
		r.seq++
		p.ID = r.seq
	} else if _, exists := r.items[p.ID]; exists {
		return 0, nil
	} else if p.ID > r.seq {
		r.seq = p.ID
	}

	r.items[p.ID] = *p
	return 1, nil
}

// GetByID 查询记录
func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Len 记录数
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

var _ Repository = (*MemoryRepository)(nil)
