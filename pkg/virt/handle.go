package virt

import (
	"sync"
)

// handleRef 持有一个原生句柄的引用
//
// 构造时已经持有一次引用，release 只释放一次。
// 原生调用通过 with 借用句柄，release 会等待借用结束，
// 因此调用方永远拿不到已释放的句柄。
type handleRef struct {
	drv Driver

	mu       sync.RWMutex
	h        Handle
	released bool
}

// adoptHandle 接管一个已计入引用的句柄（查找/枚举的返回值）
func adoptHandle(drv Driver, h Handle) *handleRef {
	return &handleRef{drv: drv, h: h}
}

// refHandle 对借用的句柄（事件回调）增加一次引用后接管
func refHandle(drv Driver, h Handle) (*handleRef, error) {
	if err := drv.Ref(h); err != nil {
		return nil, queryError("ref native handle", err)
	}
	return &handleRef{drv: drv, h: h}, nil
}

// with 在持有读锁期间调用 fn
func (r *handleRef) with(fn func(h Handle) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.released {
		return ErrDisposed
	}
	return fn(r.h)
}

// release 释放引用，重复调用无副作用
func (r *handleRef) release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	r.released = true
	h := r.h
	r.h = nil
	return r.drv.Free(h)
}

// isReleased 是否已经释放
func (r *handleRef) isReleased() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.released
}

// withValue 借用句柄并返回一个值
func withValue[T any](r *handleRef, fn func(h Handle) (T, error)) (T, error) {
	var out T
	err := r.with(func(h Handle) error {
		v, err := fn(h)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
