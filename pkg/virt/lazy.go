package virt

import (
	"sync"
	"sync/atomic"
)

// Lazy 按需获取并缓存一个代价较高的属性（如 XML 描述符）
//
// 读路径无锁；填充与 Invalidate 共用同一把锁，
// 失效之后的读取一定会重新获取。
type Lazy[T any] struct {
	mu    sync.Mutex
	val   atomic.Pointer[T]
	fetch func() (T, error)
}

// NewLazy 创建惰性缓存
func NewLazy[T any](fetch func() (T, error)) *Lazy[T] {
	return &Lazy[T]{fetch: fetch}
}

// Get 返回缓存值，为空时获取
// 获取失败时缓存保持为空，下一次 Get 重试
func (l *Lazy[T]) Get() (T, error) {
	if p := l.val.Load(); p != nil {
		return *p, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if p := l.val.Load(); p != nil {
		return *p, nil
	}

	v, err := l.fetch()
	if err != nil {
		var zero T
		return zero, err
	}
	l.val.Store(&v)
	return v, nil
}

// Cached 返回当前缓存值，不触发获取
func (l *Lazy[T]) Cached() (T, bool) {
	if p := l.val.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// Invalidate 清空缓存，不会立即重新获取
func (l *Lazy[T]) Invalidate() {
	l.mu.Lock()
	l.val.Store(nil)
	l.mu.Unlock()
}
