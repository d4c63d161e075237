package errcode

import (
	"fmt"
	"sync"
)

// Registry 错误码注册表（防止错误码冲突）
type Registry struct {
	mu     sync.RWMutex
	codes  map[int]string // code -> module:msgKey
	locked bool
}

var globalRegistry = NewRegistry()

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{codes: make(map[int]string)}
}

// Register 注册错误码到全局注册表，冲突时 panic
func Register(err *LayeredError) *LayeredError {
	return globalRegistry.Register(err)
}

// Register 注册错误码（相同 code 与 key 重复注册是幂等的）
func (r *Registry) Register(err *LayeredError) *LayeredError {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locked {
		panic(fmt.Sprintf("registry is locked, cannot register error code: %d", err.Code()))
	}

	key := fmt.Sprintf("%s:%s", err.Module(), err.MsgKey())
	if existing, ok := r.codes[err.Code()]; ok {
		if existing != key {
			panic(fmt.Sprintf(
				"error code conflict: code %d is already registered as %s, cannot register as %s",
				err.Code(), existing, key,
			))
		}
		return err
	}

	r.codes[err.Code()] = key
	return err
}

// Lock 锁定注册表，通常在启动完成后调用
func (r *Registry) Lock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = true
}

// Lookup returns the module:msgKey registered for code
func (r *Registry) Lookup(code int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.codes[code]
	return key, ok
}

// Count 获取已注册错误码数量
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.codes)
}

// LockGlobalRegistry 锁定全局注册表
func LockGlobalRegistry() {
	globalRegistry.Lock()
}

// LookupCode looks code up in the global registry
func LookupCode(code int) (string, bool) {
	return globalRegistry.Lookup(code)
}
